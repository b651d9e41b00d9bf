package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/habitflow/internal/config"
	"github.com/okian/habitflow/internal/domain/model"
	"github.com/okian/habitflow/internal/domain/normalize"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.SourceKind, convey.ShouldEqual, config.SourceAuto)
			convey.So(cfg.DateColumn, convey.ShouldEqual, "Date")
			convey.So(cfg.DateLayout, convey.ShouldEqual, time.DateOnly)
			convey.So(cfg.ClockPolicy, convey.ShouldEqual, "passthrough")
			convey.So(cfg.DedupeDates, convey.ShouldBeFalse)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.OutputPath, convey.ShouldEqual, "habits_cleaned.csv")
			convey.So(cfg.OutputKind, convey.ShouldEqual, config.OutputCSV)
			convey.So(cfg.OutputTable, convey.ShouldEqual, "habits_cleaned")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"bad log format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"bad source kind", func(c *config.Config) { c.SourceKind = "excel" }},
			{"bad output kind", func(c *config.Config) { c.OutputKind = "parquet" }},
			{"empty output path", func(c *config.Config) { c.OutputPath = "" }},
			{"empty output table", func(c *config.Config) { c.OutputKind = config.OutputSQLite; c.OutputTable = "" }},
			{"negative workers", func(c *config.Config) { c.WorkerCount = -1 }},
			{"zero queue", func(c *config.Config) { c.QueueSize = 0 }},
			{"empty date layout", func(c *config.Config) { c.DateLayout = "" }},
			{"unknown timezone", func(c *config.Config) { c.Timezone = "Mars/Olympus" }},
			{"unknown clock policy", func(c *config.Config) { c.ClockPolicy = "round" }},
			{"unknown event key", func(c *config.Config) { c.EventColumns = map[string]string{"lunch": "Lunch"} }},
			{"bad duration", func(c *config.Config) { c.ExtraDurations = map[string]string{"x": "wake_up"} }},
			{"reserved duration", func(c *config.Config) {
				c.ExtraDurations = map[string]string{"time_awake_hours": "wake_up->meal_1"}
			}},
			{"duration named like the date column", func(c *config.Config) {
				c.ExtraDurations = map[string]string{"date": "wake_up->meal_1"}
			}},
			{"duration named like an event column", func(c *config.Config) {
				c.ExtraDurations = map[string]string{"Wake_Up_Clock": "wake_up->meal_1"}
			}},
			{"duration named like the run id column", func(c *config.Config) {
				c.ExtraDurations = map[string]string{"run_id": "wake_up->meal_1"}
			}},
		}

		for _, tc := range cases {
			convey.Convey("When the config has a "+tc.name, func() {
				tc.mutate(cfg)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}

func TestConfig_NormalizerOptions(t *testing.T) {
	convey.Convey("Given a config with overrides", t, func() {
		cfg := config.New(context.Background())
		cfg.DateColumn = "Day"
		cfg.EventColumns = map[string]string{"wake_up": "Woke", "sleep": "Bed"}
		cfg.ExtraDurations = map[string]string{
			"sleep_after_dinner": "meal_3->sleep",
			"breakfast_delay":    "wake_up->meal_1",
		}

		convey.Convey("When building a normalizer from it", func() {
			opts, err := cfg.NormalizerOptions()
			convey.So(err, convey.ShouldBeNil)
			n := normalize.New(opts...)

			convey.Convey("Then columns merge over the defaults", func() {
				cols := n.Columns()
				convey.So(cols.Date, convey.ShouldEqual, "Day")
				convey.So(cols.Events[model.WakeUp], convey.ShouldEqual, "Woke")
				convey.So(cols.Events[model.Meal1], convey.ShouldEqual, "First Meal")
				convey.So(cols.Events[model.Sleep], convey.ShouldEqual, "Bed")
			})

			convey.Convey("Then extra durations follow time awake in name order", func() {
				convey.So(n.DurationNames(), convey.ShouldResemble,
					[]string{"time_awake_hours", "breakfast_delay", "sleep_after_dinner"})
			})
		})
	})
}
