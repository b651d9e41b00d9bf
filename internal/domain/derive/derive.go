// Package derive computes elapsed-time metrics from reconciled timestamps.
package derive

import (
	"fmt"
	"strings"

	"github.com/okian/habitflow/internal/domain/model"
)

const secondsPerHour = 3600

// TimeAwake is the name of the wake-up to sleep duration.
const TimeAwake = "time_awake_hours"

// Pair names a duration measured from one event to another.
type Pair struct {
	Name string
	From model.EventType
	To   model.EventType
}

// ParsePair reads a "from->to" expression such as "wake_up->meal_1".
func ParsePair(name, expr string) (Pair, error) {
	from, to, ok := strings.Cut(expr, "->")
	if !ok || strings.TrimSpace(name) == "" {
		return Pair{}, fmt.Errorf("%w: %s=%q", ErrInvalidPair, name, expr)
	}
	f, err := model.ParseEventType(from)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %w", ErrInvalidPair, err)
	}
	t, err := model.ParseEventType(to)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %w", ErrInvalidPair, err)
	}
	return Pair{Name: strings.TrimSpace(name), From: f, To: t}, nil
}

// Duration returns to-from in fractional hours. It reports false when either
// timestamp is unknown.
func Duration(from, to model.Timestamp) (float64, bool) {
	if !from.Known || !to.Known {
		return 0, false
	}
	return to.Time.Sub(from.Time).Seconds() / secondsPerHour, true
}

// Deriver annotates records with the configured durations.
type Deriver struct {
	pairs []Pair
}

// New creates a Deriver. TimeAwake is always derived first.
func New(opts ...Option) *Deriver {
	d := &Deriver{
		pairs: []Pair{{Name: TimeAwake, From: model.WakeUp, To: model.Sleep}},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Names returns the duration names in output order.
func (d *Deriver) Names() []string {
	names := make([]string, len(d.pairs))
	for i, p := range d.pairs {
		names[i] = p.Name
	}
	return names
}

// Record returns a copy of rec carrying one Duration per pair.
func (d *Deriver) Record(rec model.Record) model.Record {
	durations := make([]model.Duration, len(d.pairs))
	for i, p := range d.pairs {
		hours, ok := Duration(rec.Event(p.From).Timestamp, rec.Event(p.To).Timestamp)
		durations[i] = model.Duration{Name: p.Name, Hours: hours, Known: ok}
	}
	return rec.WithDurations(durations)
}
