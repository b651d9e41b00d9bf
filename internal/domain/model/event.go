// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// EventType identifies one of the tracked daily events.
type EventType int

// Canonical order. All ordering and anchor searches walk events in this order.
const (
	WakeUp EventType = iota
	Meal1
	Meal2
	Meal3
	Sleep
)

// EventCount is the number of tracked events per record.
const EventCount = 5

// CanonicalOrder lists the event types in the order they happen during a day.
var CanonicalOrder = [EventCount]EventType{WakeUp, Meal1, Meal2, Meal3, Sleep}

var eventKeys = [EventCount]string{"wake_up", "meal_1", "meal_2", "meal_3", "sleep"}

// String returns the stable key of the event type, e.g. "wake_up".
func (t EventType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("event(%d)", int(t))
	}
	return eventKeys[t]
}

// Valid reports whether t is one of the five known event types.
func (t EventType) Valid() bool {
	return t >= WakeUp && t <= Sleep
}

// ParseEventType maps a stable key back to its EventType.
func ParseEventType(key string) (EventType, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, k := range eventKeys {
		if k == key {
			return EventType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, key)
}

// RawValue is an encoded integer as received from the source. The zero value
// means the cell was empty.
type RawValue struct {
	Value   int64
	Present bool
}

// Raw wraps a present raw value.
func Raw(v int64) RawValue {
	return RawValue{Value: v, Present: true}
}

// ClockTime is an hour/minute pair. The zero value is unknown.
type ClockTime struct {
	Hour   int
	Minute int
	Known  bool
}

// Clock builds a known clock time. No range check is applied.
func Clock(hour, minute int) ClockTime {
	return ClockTime{Hour: hour, Minute: minute, Known: true}
}

// String renders HH:MM, or the empty string when unknown.
func (c ClockTime) String() string {
	if !c.Known {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Timestamp is an absolute date and time. The zero value is unknown.
type Timestamp struct {
	Time  time.Time
	Known bool
}

// At wraps a known timestamp.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t, Known: true}
}

// Before reports whether both timestamps are known and ts is strictly earlier.
func (ts Timestamp) Before(other Timestamp) bool {
	return ts.Known && other.Known && ts.Time.Before(other.Time)
}

// NextDay returns the same wall clock time one calendar day later.
func (ts Timestamp) NextDay() Timestamp {
	if !ts.Known {
		return ts
	}
	return At(ts.Time.AddDate(0, 0, 1))
}

// Event is one tracked event within a record.
type Event struct {
	Type      EventType
	Raw       RawValue
	Clock     ClockTime
	Timestamp Timestamp
	// RolledOver is set when reconciliation moved the timestamp to the next day.
	RolledOver bool
}
