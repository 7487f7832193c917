package registry

import (
	"fmt"
	"slices"
	"sync"
)

var defaultCapacities = []int{18, 18, 18, 18, 18, 12, 18, 24, 24, 24, 24, 18, 12, 18, 18, 18, 18, 0, 0, 0}

// Table is a seating unit with a fixed identity and a mutable free-seat count.
type Table struct {
	id       int
	capacity int
}

// ID returns the table identity.
func (t Table) ID() int {
	return t.id
}

// Capacity returns the number of free seats.
func (t Table) Capacity() int {
	return t.capacity
}

// Consume removes n seats from the table.
func (t *Table) Consume(n int) error {
	if n < 0 || n > t.capacity {
		return fmt.Errorf("consume %d seats from table %d with %d free: %w", n, t.id, t.capacity, ErrInvalidCapacity)
	}
	t.capacity -= n
	return nil
}

// Registry keeps the tables in identity order and guards access with a RWMutex.
type Registry struct {
	mu     sync.RWMutex
	tables []Table
}

// New creates a registry where capacities[i] seeds table i+1.
func New(capacities []int) (*Registry, error) {
	if len(capacities) == 0 {
		return nil, ErrInvalidSeed
	}

	tables := make([]Table, len(capacities))
	for i, capacity := range capacities {
		if capacity < 0 {
			return nil, fmt.Errorf("table %d seeded with %d: %w", i+1, capacity, ErrInvalidSeed)
		}
		tables[i] = Table{id: i + 1, capacity: capacity}
	}

	return &Registry{tables: tables}, nil
}

// NewDefault creates a registry from the default seed capacities.
func NewDefault() *Registry {
	reg, err := New(defaultCapacities)
	if err != nil {
		panic(fmt.Sprintf("default seed is invalid: %v", err))
	}
	return reg
}

// DefaultCapacities returns a copy of the default seed capacities.
func DefaultCapacities() []int {
	return slices.Clone(defaultCapacities)
}

// Len returns the number of tables. It never changes after creation.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tables)
}

// Get returns a copy of the table with the given identity.
func (r *Registry) Get(id int) (Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, err := r.index(id)
	if err != nil {
		return Table{}, err
	}
	return r.tables[idx], nil
}

// SetCapacity overwrites the free-seat count of a single table.
func (r *Registry) SetCapacity(id, capacity int) error {
	if capacity < 0 {
		return fmt.Errorf("set table %d to %d: %w", id, capacity, ErrInvalidCapacity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.index(id)
	if err != nil {
		return err
	}
	r.tables[idx].capacity = capacity
	return nil
}

// Ordered returns a copy of the tables sorted by ascending identity.
func (r *Registry) Ordered() []Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.tables)
}

// OrderedByCapacityDescending returns a copy of the tables sorted by
// descending capacity. Ties keep ascending identity order.
func (r *Registry) OrderedByCapacityDescending() []Table {
	return ByCapacityDescending(r.Ordered())
}

// TotalCapacity returns the sum of free seats across all tables.
func (r *Registry) TotalCapacity() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, t := range r.tables {
		total += t.capacity
	}
	return total
}

// Update runs fn under the write lock with a capacity-descending view of the
// live tables. Capacities are restored if fn fails or leaves a table below
// zero, so a failed update never leaves partial changes behind.
func (r *Registry) Update(fn func(view []*Table) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := slices.Clone(r.tables)

	view := make([]*Table, len(r.tables))
	for i := range r.tables {
		view[i] = &r.tables[i]
	}
	slices.SortStableFunc(view, func(a, b *Table) int {
		return b.capacity - a.capacity
	})

	if err := fn(view); err != nil {
		copy(r.tables, snapshot)
		return err
	}

	for _, t := range r.tables {
		if t.capacity < 0 {
			copy(r.tables, snapshot)
			return fmt.Errorf("table %d left with %d seats: %w", t.id, t.capacity, ErrInvalidCapacity)
		}
	}
	return nil
}

// ByCapacityDescending returns a copy of tables stably sorted by descending
// capacity: tables with equal capacity keep the order they were passed in.
func ByCapacityDescending(tables []Table) []Table {
	out := slices.Clone(tables)
	slices.SortStableFunc(out, func(a, b Table) int {
		return b.capacity - a.capacity
	})
	return out
}

func (r *Registry) index(id int) (int, error) {
	if id < 1 || id > len(r.tables) {
		return 0, fmt.Errorf("table %d (valid 1..%d): %w", id, len(r.tables), ErrInvalidIdentity)
	}
	return id - 1, nil
}
