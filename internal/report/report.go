// Package report renders the table registry and allocation results as
// human-readable lines.
package report

import (
	"fmt"
	"io"

	"github.com/eugenenazirov/table-seating/internal/allocation"
	"github.com/eugenenazirov/table-seating/internal/registry"
)

// Lister provides the identity-ordered tables to render.
type Lister interface {
	Ordered() []registry.Table
}

// Render returns one line per table in ascending identity order.
func Render(src Lister) []string {
	tables := src.Ordered()
	lines := make([]string, 0, len(tables))
	for _, t := range tables {
		lines = append(lines, TableLine(t))
	}
	return lines
}

// TableLine formats a single table with its free seats.
func TableLine(t registry.Table) string {
	return fmt.Sprintf("Tisch %d: %d Plätze", t.ID(), t.Capacity())
}

// AllocationLines returns one line per table that received cards, followed
// by a line for cards that could not be seated.
func AllocationLines(res allocation.Result) []string {
	lines := make([]string, 0, len(res.Allocations)+1)
	for _, a := range res.Allocations {
		lines = append(lines, fmt.Sprintf("Tisch %d: %d Karten", a.TableID, a.Cards))
	}
	if res.Shortfall() {
		lines = append(lines, fmt.Sprintf("Nicht zugeteilt: %d Karten", res.Unassigned))
	}
	return lines
}

// Write prints lines followed by an empty line.
func Write(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
