package allocation

import "errors"

// ErrInvalidRequest is returned when the requested number of cards is negative.
var ErrInvalidRequest = errors.New("cards must be a non-negative integer")
