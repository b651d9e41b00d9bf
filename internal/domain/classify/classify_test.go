package classify_test

import (
	"testing"

	"github.com/okian/habitflow/internal/domain/classify"
	"github.com/okian/habitflow/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func row(cells map[string]string) model.Row {
	return model.Row{Cells: cells}
}

func TestTable(t *testing.T) {
	Convey("Given an export with time, check and amount columns", t, func() {
		tbl := model.Table{
			Columns: []string{"Date", "Wake up", "Reach out", "mL of Water", "Day Mood", "Unnamed: 109", "Notes"},
			Rows: []model.Row{
				row(map[string]string{"Date": "2025-04-30", "Wake up": "8300", "Reach out": "1", "mL of Water": "-1", "Day Mood": "2", "Notes": "tired"}),
				row(map[string]string{"Date": "2025-04-29", "Wake up": "9450", "Reach out": "3", "mL of Water": "4000", "Day Mood": "NaN"}),
				row(map[string]string{"Date": "2025-04-28", "Wake up": "12450", "Reach out": "-1.0", "mL of Water": "3000", "Day Mood": "0"}),
			},
		}

		c := classify.Table(tbl, "Date", []string{"Wake up", "Going sleep"})

		Convey("Then code-only columns are binary", func() {
			So(c.Binary, ShouldResemble, []string{"Reach out", "Day Mood", "Unnamed: 109"})
		})

		Convey("Then columns with other values or text are continuous", func() {
			So(c.Continuous, ShouldResemble, []string{"mL of Water", "Notes"})
		})

		Convey("Then time columns present in the table are time based", func() {
			So(c.TimeBased, ShouldResemble, []string{"Wake up"})
		})
	})

	Convey("Given an empty table", t, func() {
		c := classify.Table(model.Table{}, "Date", nil)

		Convey("Then every list is empty but not nil", func() {
			So(c.Binary, ShouldNotBeNil)
			So(c.Binary, ShouldBeEmpty)
			So(c.Continuous, ShouldBeEmpty)
			So(c.TimeBased, ShouldBeEmpty)
		})
	})

	Convey("Given fractional values inside the code range", t, func() {
		tbl := model.Table{
			Columns: []string{"Mass"},
			Rows:    []model.Row{row(map[string]string{"Mass": "1.5"})},
		}

		Convey("Then the column is continuous", func() {
			So(classify.Table(tbl, "Date", nil).Continuous, ShouldResemble, []string{"Mass"})
		})
	})
}
