package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrUnknownEvent = errors.New("unknown event type")
)
