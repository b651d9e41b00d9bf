package sanitize

import (
	"errors"
	"fmt"

	"github.com/okian/habitflow/internal/domain/model"
)

// Sentinel kinds for sanitize errors.
var (
	ErrInvalidClock  = errors.New("decoded clock time out of range")
	ErrUnknownPolicy = errors.New("unknown clock policy")
)

// ValidationError reports a decoded clock time that is not a real time of day.
type ValidationError struct {
	Event model.EventType
	Raw   int64
	Clock model.ClockTime
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: raw %d decodes to %02d:%02d", e.Event, e.Raw, e.Clock.Hour, e.Clock.Minute)
}

// Unwrap lets errors.Is match ErrInvalidClock.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidClock
}
