package service

import "errors"

// Sentinel kinds for batch run errors.
var (
	ErrRowsRejected  = errors.New("rows rejected")
	ErrMissingColumn = errors.New("missing column")
)
