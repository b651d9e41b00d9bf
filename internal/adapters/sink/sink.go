// Package sink writes normalized records out as a flat table.
package sink

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/habitflow/internal/domain/model"
)

const (
	dateLayout  = "2006-01-02"
	stampLayout = "2006-01-02 15:04"
)

// Batch is one run's output.
type Batch struct {
	RunID   uuid.UUID
	Records []model.Record
	// Durations lists derived duration names in column order.
	Durations []string
}

// Writer persists a batch.
type Writer interface {
	Write(ctx context.Context, b Batch) error
}

// Header returns the output columns: date, then per event its clock, its
// timestamp and its rollover flag, then one column per duration.
func Header(durations []string) []string {
	cols := []string{"date"}
	for _, t := range model.CanonicalOrder {
		cols = append(cols, t.String()+"_clock")
	}
	for _, t := range model.CanonicalOrder {
		cols = append(cols, t.String()+"_at")
	}
	for _, t := range model.CanonicalOrder {
		cols = append(cols, t.String()+"_rolled")
	}
	return append(cols, durations...)
}

// RunIDColumn tags every SQLite row with the run that wrote it.
const RunIDColumn = "run_id"

// ReservedColumns lists the column names a duration may not take.
func ReservedColumns() []string {
	return append(Header(nil), RunIDColumn)
}

// cell is one output value. Valid is false for unknown values.
type cell struct {
	Text  string
	Value any
	Valid bool
}

func known(text string, v any) cell { return cell{Text: text, Value: v, Valid: true} }

// cells renders rec in Header order.
func cells(rec model.Record, durations []string) []cell { //nolint:gocritic // hugeParam: Record is read-only here
	out := make([]cell, 0, 1+3*model.EventCount+len(durations))
	date := rec.Date.Format(dateLayout)
	out = append(out, known(date, date))

	for _, ev := range rec.Events {
		if ev.Clock.Known {
			out = append(out, known(ev.Clock.String(), ev.Clock.String()))
		} else {
			out = append(out, cell{})
		}
	}
	for _, ev := range rec.Events {
		if ev.Timestamp.Known {
			at := ev.Timestamp.Time.Format(stampLayout)
			out = append(out, known(at, at))
		} else {
			out = append(out, cell{})
		}
	}
	for _, ev := range rec.Events {
		out = append(out, known(strconv.FormatBool(ev.RolledOver), ev.RolledOver))
	}
	for _, name := range durations {
		d, ok := rec.Duration(name)
		if !ok || !d.Known {
			out = append(out, cell{})
			continue
		}
		out = append(out, known(strconv.FormatFloat(d.Hours, 'f', 2, 64), d.Hours))
	}
	return out
}

// Row renders rec as CSV text in Header order. Unknown values are empty.
func Row(rec model.Record, durations []string) []string { //nolint:gocritic // hugeParam: Record is read-only here
	cs := cells(rec, durations)
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Text
	}
	return out
}

// New returns the writer for kind.
func New(kind, path, table string) (Writer, error) {
	switch kind {
	case KindCSV:
		return NewCSVWriter(path), nil
	case KindSQLite:
		return NewSQLiteWriter(path, WithTable(table))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Kinds accepted by New.
const (
	KindCSV    = "csv"
	KindSQLite = "sqlite"
)
