// Package synthesize anchors clock times to a record's calendar date.
package synthesize

import (
	"time"

	"github.com/okian/habitflow/internal/domain/model"
)

// Timestamp places clock on date, with seconds set to zero. An unknown clock
// yields an unknown timestamp. Out-of-range clocks are normalized by time.Date.
func Timestamp(date time.Time, clock model.ClockTime) model.Timestamp {
	if !clock.Known {
		return model.Timestamp{}
	}
	return model.At(time.Date(date.Year(), date.Month(), date.Day(), clock.Hour, clock.Minute, 0, 0, date.Location()))
}

// Record returns a copy of rec with a same-day timestamp for every event.
func Record(rec model.Record) model.Record {
	events := rec.Events
	for i := range events {
		events[i].Timestamp = Timestamp(rec.Date, events[i].Clock)
		events[i].RolledOver = false
	}
	return rec.WithEvents(events)
}
