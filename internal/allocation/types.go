package allocation

import "github.com/eugenenazirov/table-seating/internal/registry"

// Strategy names the branch of the algorithm that satisfied a request.
type Strategy string

const (
	// StrategyNone is used for empty requests, nothing is assigned.
	StrategyNone Strategy = "none"
	// StrategyExactMatch assigns the request to the first table whose free
	// seats equal the request.
	StrategyExactMatch Strategy = "exact_match"
	// StrategySingleTable assigns the request to the largest table.
	StrategySingleTable Strategy = "single_table"
	// StrategySpread drains tables from largest to smallest.
	StrategySpread Strategy = "spread"
)

// Allocation assigns a number of cards to one table.
type Allocation struct {
	TableID int
	Cards   int
}

// Result summarises one allocation request.
// Assigned + Unassigned always equals Requested.
type Result struct {
	Requested   int
	Assigned    int
	Unassigned  int
	Strategy    Strategy
	Allocations []Allocation
}

// Shortfall reports whether part of the request could not be seated.
func (r Result) Shortfall() bool {
	return r.Unassigned > 0
}

// Allocator describes the behaviour required from a card allocator.
type Allocator interface {
	Allocate(reg *registry.Registry, cards int) (Result, error)
}
