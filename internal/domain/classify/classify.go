// Package classify splits habit columns into binary-coded and continuous.
//
// A column is binary-coded when every non-null value it holds is one of the
// tracker's check codes -1, 0, 1, 2 or 3. Anything else, including text,
// makes it continuous.
package classify

import (
	"math"
	"strconv"
	"strings"

	"github.com/okian/habitflow/internal/domain/model"
)

// Kind is the category of a habit column.
type Kind string

const (
	KindBinary     Kind = "binary"
	KindContinuous Kind = "continuous"
	KindTimeBased  Kind = "time_based"
)

var codeSpace = map[float64]struct{}{-1: {}, 0: {}, 1: {}, 2: {}, 3: {}}

// Classification lists column names per kind in table column order.
type Classification struct {
	Binary     []string `json:"binary"`
	Continuous []string `json:"continuous"`
	TimeBased  []string `json:"time_based"`
}

// Table classifies every column of t except dateColumn. Columns named in
// timeColumns are reported as time based without inspecting their values.
func Table(t model.Table, dateColumn string, timeColumns []string) Classification {
	timeBased := make(map[string]bool, len(timeColumns))
	for _, c := range timeColumns {
		timeBased[c] = true
	}

	out := Classification{
		Binary:     []string{},
		Continuous: []string{},
		TimeBased:  []string{},
	}
	for _, col := range t.Columns {
		switch {
		case col == dateColumn:
			continue
		case timeBased[col]:
			out.TimeBased = append(out.TimeBased, col)
		case isBinary(t.Rows, col):
			out.Binary = append(out.Binary, col)
		default:
			out.Continuous = append(out.Continuous, col)
		}
	}
	return out
}

func isBinary(rows []model.Row, col string) bool {
	for _, r := range rows {
		cell, _ := r.Get(col)
		cell = strings.TrimSpace(cell)
		if IsNull(cell) {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil || v != math.Trunc(v) {
			return false
		}
		if _, ok := codeSpace[v]; !ok {
			return false
		}
	}
	return true
}

// IsNull reports whether a cell holds no value.
func IsNull(cell string) bool {
	return cell == "" || strings.EqualFold(cell, "nan")
}
