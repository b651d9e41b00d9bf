// Package normalize runs one source row through every record stage:
// parse, sanitize, synthesize, reconcile and derive.
package normalize

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/habitflow/internal/domain/classify"
	"github.com/okian/habitflow/internal/domain/derive"
	"github.com/okian/habitflow/internal/domain/model"
	"github.com/okian/habitflow/internal/domain/reconcile"
	"github.com/okian/habitflow/internal/domain/sanitize"
	"github.com/okian/habitflow/internal/domain/synthesize"
)

// DefaultDateLayout is the date format of tracker exports.
const DefaultDateLayout = time.DateOnly

// Columns maps the record fields to source column names.
type Columns struct {
	Date   string
	Events [model.EventCount]string
}

// DefaultColumns are the column names of a Loop Habit Tracker export.
func DefaultColumns() Columns {
	return Columns{
		Date:   "Date",
		Events: [model.EventCount]string{"Wake up", "First Meal", "Second Meal", "Third Meal", "Going sleep"},
	}
}

// EventColumns returns the event column names in canonical order.
func (c Columns) EventColumns() []string {
	out := make([]string, model.EventCount)
	copy(out, c.Events[:])
	return out
}

// Result is a normalized record plus what the stages noticed on the way.
type Result struct {
	Record model.Record
	// Unordered is set when the chain still decreases after reconciliation,
	// i.e. the day spans more than 24 hours.
	Unordered bool
}

// Normalizer is safe for concurrent use; it holds no mutable state.
type Normalizer struct {
	columns    Columns
	dateLayout string
	location   *time.Location
	sanitizer  *sanitize.Sanitizer
	deriver    *derive.Deriver
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		columns:    DefaultColumns(),
		dateLayout: DefaultDateLayout,
		location:   time.UTC,
		sanitizer:  sanitize.New(),
		deriver:    derive.New(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Columns returns the configured column mapping.
func (n *Normalizer) Columns() Columns {
	return n.columns
}

// DurationNames returns the derived duration names in output order.
func (n *Normalizer) DurationNames() []string {
	return n.deriver.Names()
}

// Process turns one row into a final record. seq keeps the output order.
func (n *Normalizer) Process(ctx context.Context, seq int, row model.Row) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	rec, err := n.FromRow(seq, row)
	if err != nil {
		return Result{}, err
	}
	return n.Normalize(rec)
}

// ParseDate reads the date cell of row in the configured layout and location.
func (n *Normalizer) ParseDate(row model.Row) (time.Time, error) {
	cell, _ := row.Get(n.columns.Date)
	date, err := time.ParseInLocation(n.dateLayout, strings.TrimSpace(cell), n.location)
	if err != nil {
		return time.Time{}, &DateParseError{Line: row.Line, Value: cell, Err: err}
	}
	return date, nil
}

// FromRow parses the date and raw event values of row.
func (n *Normalizer) FromRow(seq int, row model.Row) (model.Record, error) {
	date, err := n.ParseDate(row)
	if err != nil {
		return model.Record{}, err
	}

	var raws [model.EventCount]model.RawValue
	for i, col := range n.columns.Events {
		cell, _ := row.Get(col)
		raw, err := ParseRaw(cell)
		if err != nil {
			return model.Record{}, &FieldParseError{Line: row.Line, Column: col, Value: cell, Err: err}
		}
		raws[i] = raw
	}
	return model.NewRecord(seq, row.Line, date, raws), nil
}

// Normalize runs the stages on a parsed record. Each stage returns a new
// record; rec is left untouched.
func (n *Normalizer) Normalize(rec model.Record) (Result, error) {
	sanitized, err := n.sanitizer.Record(rec)
	if err != nil {
		return Result{}, &RecordError{Line: rec.Line, Date: rec.Date, Err: err}
	}
	reconciled := reconcile.Record(synthesize.Record(sanitized))
	return Result{
		Record:    n.deriver.Record(reconciled),
		Unordered: !reconcile.Ordered(reconciled.Events),
	}, nil
}

// ParseRaw reads a raw event cell. Empty and NaN cells are null; decimals
// are floored, so "8300.0" reads as 8300.
func ParseRaw(cell string) (model.RawValue, error) {
	cell = strings.TrimSpace(cell)
	if classify.IsNull(cell) {
		return model.RawValue{}, nil
	}
	if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return model.Raw(v), nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return model.RawValue{}, err
	}
	if math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
		return model.RawValue{}, strconv.ErrRange
	}
	return model.Raw(int64(math.Floor(f))), nil
}
