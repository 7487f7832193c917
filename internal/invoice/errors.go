package invoice

import "errors"

// ErrInvalidInvoice is returned when a save request is incomplete or its
// document cannot be decoded.
var ErrInvalidInvoice = errors.New("invalid invoice")
