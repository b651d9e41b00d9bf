package repository

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrDuplicateSeq = errors.New("sequence already stored")
)
