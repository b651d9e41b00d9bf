package testexports

import "errors"

// Sentinel kinds for generator errors.
var (
	ErrInvalidDays = errors.New("days must be positive")
)
