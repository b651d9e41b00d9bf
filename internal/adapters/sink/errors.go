package sink

import "errors"

// Sentinel kinds for sink errors.
var (
	ErrUnknownKind  = errors.New("unknown output kind")
	ErrInvalidTable = errors.New("invalid table name")
)
