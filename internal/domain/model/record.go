package model

import (
	"time"
)

// Events is a full set of events in canonical order. Being an array it is
// copied on assignment, so stages never share event state.
type Events [EventCount]Event

// Duration is a named elapsed time between two events, in fractional hours.
type Duration struct {
	Name  string
	Hours float64
	Known bool
}

// Record is the per-day unit carried through the pipeline.
type Record struct {
	// Seq is the position of the source row, used to keep output order.
	Seq int
	// Line is the 1-based source line, for error reporting.
	Line      int
	Date      time.Time
	Events    Events
	Durations []Duration
}

// NewRecord builds a record for date from raw values in canonical order.
// The date is truncated to midnight in its own location.
func NewRecord(seq, line int, date time.Time, raws [EventCount]RawValue) Record {
	r := Record{
		Seq:  seq,
		Line: line,
		Date: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
	}
	for i, t := range CanonicalOrder {
		r.Events[i] = Event{Type: t, Raw: raws[i]}
	}
	return r
}

// Event returns the event of type t.
func (r Record) Event(t EventType) Event {
	return r.Events[t]
}

// WithEvents returns a copy of r carrying events.
func (r Record) WithEvents(events Events) Record {
	out := r
	out.Events = events
	out.Durations = cloneDurations(r.Durations)
	return out
}

// WithDurations returns a copy of r carrying durations.
func (r Record) WithDurations(durations []Duration) Record {
	out := r
	out.Durations = cloneDurations(durations)
	return out
}

// Duration looks up a derived duration by name.
func (r Record) Duration(name string) (Duration, bool) {
	for _, d := range r.Durations {
		if d.Name == name {
			return d, true
		}
	}
	return Duration{}, false
}

// KnownTimestamps returns the known timestamps in canonical order.
func (r Record) KnownTimestamps() []time.Time {
	out := make([]time.Time, 0, EventCount)
	for _, e := range r.Events {
		if e.Timestamp.Known {
			out = append(out, e.Timestamp.Time)
		}
	}
	return out
}

// Rollovers lists the events that were moved to the next day.
func (r Record) Rollovers() []EventType {
	var out []EventType
	for _, e := range r.Events {
		if e.RolledOver {
			out = append(out, e.Type)
		}
	}
	return out
}

func cloneDurations(in []Duration) []Duration {
	if in == nil {
		return nil
	}
	out := make([]Duration, len(in))
	copy(out, in)
	return out
}
