// Package registry holds the fixed set of event tables and their free-seat
// capacity. Tables are created once from seed capacities, where position i
// of the seed becomes table identity i+1. The registry keeps one canonical
// identity-ordered store and derives the capacity-descending allocation view
// on demand without reordering that store.
package registry
