package normalize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/habitflow/internal/domain/sanitize"
)

// Sentinel kinds for normalize errors.
var (
	ErrDateParse  = errors.New("unparseable date")
	ErrFieldParse = errors.New("unparseable event value")
)

// DateParseError rejects a row whose date cell cannot be read.
type DateParseError struct {
	Line  int
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("line %d: %s %q: %v", e.Line, ErrDateParse, e.Value, e.Err)
}

// Is matches ErrDateParse.
func (e *DateParseError) Is(target error) bool { return target == ErrDateParse }

func (e *DateParseError) Unwrap() error { return e.Err }

// FieldParseError rejects a row whose event cell is not a number.
type FieldParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("line %d: %s in %q: %q", e.Line, ErrFieldParse, e.Column, e.Value)
}

// Is matches ErrFieldParse.
func (e *FieldParseError) Is(target error) bool { return target == ErrFieldParse }

func (e *FieldParseError) Unwrap() error { return e.Err }

// RecordError wraps a stage failure with the row it came from.
type RecordError struct {
	Line int
	Date time.Time
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Date.Format(time.DateOnly), e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Reason returns a short metric label for a row error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrDateParse):
		return "date_parse"
	case errors.Is(err, ErrFieldParse):
		return "field_parse"
	case errors.Is(err, sanitize.ErrInvalidClock):
		return "invalid_clock"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
