package derive

import "errors"

// Sentinel kinds for derive errors.
var (
	ErrInvalidPair = errors.New("invalid duration pair")
)
