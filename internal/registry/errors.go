package registry

import "errors"

var (
	// ErrInvalidIdentity is returned when a table identity is outside the registry's range.
	ErrInvalidIdentity = errors.New("table identity out of range")
	// ErrInvalidCapacity is returned when a capacity change would leave a table below zero seats.
	ErrInvalidCapacity = errors.New("table capacity must be a non-negative integer")
	// ErrInvalidSeed is returned when the seed capacities are missing or contain negative values.
	ErrInvalidSeed = errors.New("seed capacities must contain at least one non-negative integer")
)
