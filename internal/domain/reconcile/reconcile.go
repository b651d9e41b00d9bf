// Package reconcile repairs event chains that cross midnight.
//
// Events of one record are logged against a single calendar date, so going to
// sleep at 00:40 appears to happen before waking up at 08:00. Walking the
// events in canonical order, any known timestamp earlier than the nearest
// preceding known timestamp is moved forward by exactly one day. Unknown
// events are skipped and never break the chain.
//
// A gap of more than a day between two known events is not detected: each
// event moves by at most one day.
package reconcile

import (
	"github.com/okian/habitflow/internal/domain/model"
)

// Events returns a copy of events with rollovers applied. The order of events
// is never changed, only individual timestamps move forward.
func Events(events model.Events) model.Events {
	var anchor model.Timestamp
	for i := range events {
		ts := events[i].Timestamp
		if !ts.Known {
			continue
		}
		if ts.Before(anchor) {
			ts = ts.NextDay()
			events[i].Timestamp = ts
			events[i].RolledOver = true
		}
		anchor = ts
	}
	return events
}

// Record returns a copy of rec with reconciled timestamps.
func Record(rec model.Record) model.Record {
	return rec.WithEvents(Events(rec.Events))
}

// Ordered reports whether the known timestamps of events are non-decreasing
// in canonical order.
func Ordered(events model.Events) bool {
	var prev model.Timestamp
	for _, e := range events {
		if !e.Timestamp.Known {
			continue
		}
		if e.Timestamp.Before(prev) {
			return false
		}
		prev = e.Timestamp
	}
	return true
}
