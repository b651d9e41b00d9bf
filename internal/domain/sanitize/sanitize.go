// Package sanitize decodes raw habit-tracker integers into clock times.
//
// The tracker stores a time of day as a number whose value divided by ten
// (floored) reads as HHMM, so 8300 is 08:30. The codes 3 ("skipped") and any
// negative number carry no reading and decode to an unknown clock time.
package sanitize

import (
	"fmt"
	"strings"

	"github.com/okian/habitflow/internal/domain/model"
)

// Skipped is the code the tracker writes when an entry was skipped.
const Skipped = 3

const (
	scaleDivisor = 10
	hhmmDivisor  = 100
	maxHour      = 23
	maxMinute    = 59
)

// Policy decides what happens to decoded values outside a real clock.
type Policy string

const (
	// PolicyPassthrough keeps out-of-range values; the timestamp stage then
	// normalizes them (minute 75 becomes the next hour).
	PolicyPassthrough Policy = "passthrough"
	// PolicyReject fails the record with a ValidationError.
	PolicyReject Policy = "reject"
)

// ParsePolicy maps a config string to a Policy. Empty means passthrough.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyPassthrough:
		return PolicyPassthrough, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// IsSentinel reports whether raw carries no clock reading.
func IsSentinel(raw model.RawValue) bool {
	return !raw.Present || raw.Value < 0 || raw.Value == Skipped
}

// Decode turns a raw value into a clock time. It never fails.
func Decode(raw model.RawValue) model.ClockTime {
	if IsSentinel(raw) {
		return model.ClockTime{}
	}
	scaled := raw.Value / scaleDivisor
	return model.Clock(int(scaled/hhmmDivisor), int(scaled%hhmmDivisor))
}

// InRange reports whether c is a real wall clock reading.
func InRange(c model.ClockTime) bool {
	return c.Hour >= 0 && c.Hour <= maxHour && c.Minute >= 0 && c.Minute <= maxMinute
}

// Sanitizer applies Decode to whole records under a Policy.
type Sanitizer struct {
	policy Policy
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithPolicy sets the out-of-range policy.
func WithPolicy(p Policy) Option {
	return func(s *Sanitizer) {
		if p != "" {
			s.policy = p
		}
	}
}

// New creates a Sanitizer. The default policy is passthrough.
func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{policy: PolicyPassthrough}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record returns a copy of rec with every event's clock decoded.
func (s *Sanitizer) Record(rec model.Record) (model.Record, error) {
	events := rec.Events
	for i := range events {
		c := Decode(events[i].Raw)
		if c.Known && s.policy == PolicyReject && !InRange(c) {
			return model.Record{}, &ValidationError{Event: events[i].Type, Raw: events[i].Raw.Value, Clock: c}
		}
		events[i].Clock = c
	}
	return rec.WithEvents(events), nil
}
