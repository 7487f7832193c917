// Package eventstate serves the static event snapshot consumed by the web
// front-end. The snapshot is built once from the seed capacities and never
// reflects allocations made afterwards.
package eventstate

import (
	"maps"
	"slices"
)

const (
	defaultStandingCapacity = 76

	areaStanding = "standing"
	areaLeft     = "left"
	areaMiddle   = "middle"
	areaRight    = "right"
)

var defaultNotes = map[int]string{16: "oben"}

// TableDefinition describes one table of the floor plan.
type TableDefinition struct {
	Number   int     `json:"number"`
	Capacity int     `json:"capacity"`
	Area     string  `json:"area"`
	Note     *string `json:"note"`
}

// Snapshot is the event state handed to clients on start-up.
type Snapshot struct {
	Tables                   []TableDefinition           `json:"tisch"`
	AllActions               string                      `json:"alleAktionen"`
	AllExportCodes           string                      `json:"alleExportCodes"`
	ReservationsByTable      map[int][]map[string]string `json:"reservationsByTable"`
	ExternalEventName        string                      `json:"externalEventName"`
	LastBookingSeq           int                         `json:"lastBookingSeq"`
	LastReservationsFilename *string                     `json:"lastReservationsFilename"`
}

// Service provides the static snapshot.
type Service struct {
	tables []TableDefinition
}

// Option configures the Service.
type Option func(*options)

type options struct {
	standingCapacity int
	notes            map[int]string
}

// WithStandingCapacity overrides the size of the standing area. Zero or a
// negative value removes the standing area from the floor plan.
func WithStandingCapacity(capacity int) Option {
	return func(o *options) {
		o.standingCapacity = capacity
	}
}

// WithNotes sets free-text notes per table number.
func WithNotes(notes map[int]string) Option {
	return func(o *options) {
		o.notes = maps.Clone(notes)
	}
}

// New builds the floor plan from seed capacities, where capacities[i]
// belongs to table i+1.
func New(capacities []int, opts ...Option) *Service {
	o := options{
		standingCapacity: defaultStandingCapacity,
		notes:            defaultNotes,
	}
	for _, opt := range opts {
		opt(&o)
	}

	tables := make([]TableDefinition, 0, len(capacities)+1)
	if o.standingCapacity > 0 {
		tables = append(tables, TableDefinition{Number: 0, Capacity: o.standingCapacity, Area: areaStanding})
	}
	for i, capacity := range capacities {
		number := i + 1
		def := TableDefinition{Number: number, Capacity: capacity, Area: areaFor(number)}
		if note, ok := o.notes[number]; ok {
			def.Note = &note
		}
		tables = append(tables, def)
	}

	return &Service{tables: tables}
}

// Snapshot returns a fresh copy of the default event state.
func (s *Service) Snapshot() Snapshot {
	return Snapshot{
		Tables:              slices.Clone(s.tables),
		ReservationsByTable: map[int][]map[string]string{},
	}
}

func areaFor(number int) string {
	switch {
	case number <= 5:
		return areaLeft
	case number <= 13:
		return areaMiddle
	default:
		return areaRight
	}
}
