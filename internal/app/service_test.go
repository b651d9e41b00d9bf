package service_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	service "github.com/okian/habitflow/internal/app"
	"github.com/okian/habitflow/internal/domain/model"
	"github.com/okian/habitflow/internal/domain/normalize"
	"github.com/okian/habitflow/internal/domain/sanitize"
	"github.com/okian/habitflow/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

var header = []string{"Date", "Wake up", "First Meal", "Second Meal", "Third Meal", "Going sleep", "Reading"}

// table builds a source table; each row lists cells in header order.
func table(rows ...[]string) model.Table {
	t := model.Table{Name: "Checkmarks.csv", Columns: header}
	for i, cells := range rows {
		r := model.Row{Line: i + 2, Cells: map[string]string{}}
		for j, c := range cells {
			r.Cells[header[j]] = c
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should be usable", func() {
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeDates(true),
			service.WithDedupeSize(25_000),
			service.WithNormalizer(nil),
			service.WithLogger(nil),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_Run(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := service.New(service.WithWorkerCount(3), service.WithQueueSize(2))

		Convey("When the table holds well-formed days", func() {
			res, err := svc.Run(ctx, table(
				[]string{"2025-04-28", "8300", "", "", "", "300", "2"},
				[]string{"2025-04-29", "8000", "12000", "", "", "22000", "0"},
				[]string{"2025-04-30", "3", "3", "", "-1", "3", "1"},
			))

			Convey("Then every record comes back in source order", func() {
				So(err, ShouldBeNil)
				So(res.RunID, ShouldNotEqual, uuid.Nil)
				So(res.Source, ShouldEqual, "Checkmarks.csv")
				So(res.Rejections, ShouldBeEmpty)
				So(res.DurationNames, ShouldResemble, []string{"time_awake_hours"})

				recs := res.Records()
				So(recs, ShouldHaveLength, 3)
				for i, r := range recs {
					So(r.Seq, ShouldEqual, i)
				}
			})

			Convey("Then midnight crossings are rolled forward", func() {
				first := res.Records()[0]
				So(first.Event(model.Sleep).RolledOver, ShouldBeTrue)
				d, _ := first.Duration("time_awake_hours")
				So(d.Known, ShouldBeTrue)
				So(d.Hours, ShouldAlmostEqual, 16.0, 1e-9)

				second := res.Records()[1]
				d, _ = second.Duration("time_awake_hours")
				So(d.Hours, ShouldAlmostEqual, 14.0, 1e-9)
				So(second.Rollovers(), ShouldBeEmpty)
			})

			Convey("Then an all-unknown day has an unknown duration", func() {
				third := res.Records()[2]
				So(third.KnownTimestamps(), ShouldBeEmpty)
				d, _ := third.Duration("time_awake_hours")
				So(d.Known, ShouldBeFalse)
			})
		})

		Convey("When some rows cannot be parsed", func() {
			res, err := svc.Run(ctx, table(
				[]string{"2025-04-28", "8300", "", "", "", "300", "2"},
				[]string{"28/04/2025", "8300", "", "", "", "300", "2"},
				[]string{"2025-04-30", "eight", "", "", "", "300", "2"},
			))

			Convey("Then good records are kept and row errors are joined", func() {
				So(res, ShouldNotBeNil)
				So(res.Records(), ShouldHaveLength, 1)
				So(res.Rejections, ShouldHaveLength, 2)

				So(errors.Is(err, service.ErrRowsRejected), ShouldBeTrue)
				So(errors.Is(err, normalize.ErrDateParse), ShouldBeTrue)
				So(errors.Is(err, normalize.ErrFieldParse), ShouldBeTrue)

				var dateErr *normalize.DateParseError
				So(errors.As(err, &dateErr), ShouldBeTrue)
				So(dateErr.Line, ShouldEqual, 3)
				So(dateErr.Value, ShouldEqual, "28/04/2025")
			})
		})

		Convey("When the clock policy rejects impossible times", func() {
			strict := service.New(service.WithNormalizer(normalize.New(
				normalize.WithSanitizer(sanitize.New(sanitize.WithPolicy(sanitize.PolicyReject))),
			)))
			res, err := strict.Run(ctx, table(
				[]string{"2025-04-28", "8300", "", "", "", "1990", "2"},
			))

			Convey("Then the row is rejected with a validation error", func() {
				So(res.Records(), ShouldBeEmpty)
				var verr *sanitize.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Event, ShouldEqual, model.Sleep)
				So(res.Rejections[0].Reason, ShouldEqual, "invalid_clock")
			})
		})

		Convey("When a required column is missing", func() {
			t := table([]string{"2025-04-28"})
			t.Columns = []string{"Date", "Wake up"}
			res, err := svc.Run(ctx, t)

			Convey("Then the run fails before any row is read", func() {
				So(res, ShouldBeNil)
				So(errors.Is(err, service.ErrMissingColumn), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "Going sleep")
			})
		})

		Convey("When the context is already canceled", func() {
			done, stop := context.WithCancel(ctx)
			stop()
			rows := make([][]string, 50)
			for i := range rows {
				rows[i] = []string{"2025-04-28", "8300", "", "", "", "300", "2"}
			}
			res, err := service.New(service.WithWorkerCount(1), service.WithQueueSize(1)).Run(done, table(rows...))

			Convey("Then the run is aborted", func() {
				So(res, ShouldBeNil)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestService_RunDedupe(t *testing.T) {
	Convey("Given a table with a repeated date", t, func() {
		ctx := context.Background()
		tbl := table(
			[]string{"2025-04-28", "8300", "", "", "", "300", "2"},
			[]string{" 2025-04-28", "7000", "", "", "", "23000", "2"},
			[]string{"2025-04-29", "7000", "", "", "", "23000", "2"},
		)

		Convey("When deduplication is off", func() {
			res, err := service.New().Run(ctx, tbl)

			Convey("Then both rows are kept", func() {
				So(err, ShouldBeNil)
				So(res.Records(), ShouldHaveLength, 3)
				So(res.Duplicates, ShouldEqual, 0)
			})
		})

		Convey("When deduplication is on", func() {
			res, err := service.New(service.WithDedupeDates(true), service.WithDedupeSize(0)).Run(ctx, tbl)

			Convey("Then the first row for the date wins", func() {
				So(err, ShouldBeNil)
				So(res.Duplicates, ShouldEqual, 1)
				recs := res.Records()
				So(recs, ShouldHaveLength, 2)
				So(recs[0].Event(model.WakeUp).Clock, ShouldResemble, model.Clock(8, 30))
				So(recs[1].Seq, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a table with repeated blank and unreadable dates", t, func() {
		ctx := context.Background()
		tbl := table(
			[]string{"2025-04-28", "8300", "", "", "", "300", "2"},
			[]string{"", "7000", "", "", "", "23000", "2"},
			[]string{"", "7000", "", "", "", "23000", "2"},
			[]string{"garbage", "7000", "", "", "", "23000", "2"},
			[]string{"garbage", "7000", "", "", "", "23000", "2"},
		)

		Convey("When deduplication is on", func() {
			res, err := service.New(service.WithDedupeDates(true)).Run(ctx, tbl)

			Convey("Then every bad row is rejected instead of dropped", func() {
				So(errors.Is(err, service.ErrRowsRejected), ShouldBeTrue)
				So(errors.Is(err, normalize.ErrDateParse), ShouldBeTrue)
				So(res.Duplicates, ShouldEqual, 0)
				So(res.Records(), ShouldHaveLength, 1)
				So(res.Rejections, ShouldHaveLength, 4)
				for _, r := range res.Rejections {
					var perr *normalize.DateParseError
					So(errors.As(r.Err, &perr), ShouldBeTrue)
				}
			})
		})
	})

	Convey("Given one day written in two date layouts", t, func() {
		ctx := context.Background()
		tbl := table(
			[]string{"2025-04-28", "8300", "", "", "", "300", "2"},
			[]string{"2025-4-28", "7000", "", "", "", "23000", "2"},
		)
		n := normalize.New(normalize.WithDateLayout("2006-1-2"))

		Convey("When deduplication is on", func() {
			res, err := service.New(service.WithNormalizer(n), service.WithDedupeDates(true)).Run(ctx, tbl)

			Convey("Then the parsed dates collide", func() {
				So(err, ShouldBeNil)
				So(res.Duplicates, ShouldEqual, 1)
				So(res.Records(), ShouldHaveLength, 1)
			})
		})
	})
}
