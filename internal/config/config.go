// Package config defines habitflow configuration and how it is loaded.
//
// Conventions:
//   - New(ctx) returns a Config holding every default.
//   - Load(ctx, ...) layers a YAML file and HABITFLOW_* env vars on top.
//   - Errors wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/okian/habitflow/internal/adapters/sink"
	"github.com/okian/habitflow/internal/domain/derive"
	"github.com/okian/habitflow/internal/domain/model"
	"github.com/okian/habitflow/internal/domain/normalize"
	"github.com/okian/habitflow/internal/domain/sanitize"
)

// Source kinds.
const (
	SourceAuto   = "auto"
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// Output kinds.
const (
	OutputCSV    = "csv"
	OutputSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// SourceDir is searched for the newest export.
	SourceDir string `koanf:"source_dir"`
	// SourceKind is auto, csv or sqlite.
	SourceKind string `koanf:"source_kind"`
	// Habit selects a per-habit subfolder of a CSV export by substring.
	Habit string `koanf:"habit"`
	// DBFile names a database explicitly instead of the newest *.db.
	DBFile string `koanf:"db_file"`

	DateColumn string `koanf:"date_column"`
	DateLayout string `koanf:"date_layout"`
	// Timezone is the IANA location dates are anchored in.
	Timezone string `koanf:"timezone"`
	// EventColumns overrides source column names by event key,
	// e.g. wake_up: "Woke".
	EventColumns map[string]string `koanf:"event_columns"`

	// ClockPolicy is passthrough or reject.
	ClockPolicy string `koanf:"clock_policy"`

	// DedupeDates keeps only the first row of each date.
	DedupeDates bool `koanf:"dedupe_dates"`
	DedupeSize  int  `koanf:"dedupe_size"`

	WorkerCount int `koanf:"worker_count"`
	QueueSize   int `koanf:"queue_size"`

	OutputPath  string `koanf:"output_path"`
	OutputKind  string `koanf:"output_kind"`
	OutputTable string `koanf:"output_table"`

	// MetricsFile receives Prometheus text output after a run when set.
	MetricsFile string `koanf:"metrics_file"`

	// ExtraDurations adds derived durations by name, e.g.
	// first_meal_delay: "wake_up->meal_1".
	ExtraDurations map[string]string `koanf:"extra_durations"`
}

// New creates a Config with defaults. ctx is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		SourceDir:   ".",
		SourceKind:  SourceAuto,
		DateColumn:  "Date",
		DateLayout:  time.DateOnly,
		Timezone:    "UTC",
		ClockPolicy: string(sanitize.PolicyPassthrough),
		DedupeSize:  50_000,
		WorkerCount: runtime.NumCPU(),
		QueueSize:   1024,
		OutputPath:  "habits_cleaned.csv",
		OutputKind:  OutputCSV,
		OutputTable: "habits_cleaned",
	}
}

// Validate checks every field and returns an error wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if !slices.Contains([]string{SourceAuto, SourceCSV, SourceSQLite}, c.SourceKind) {
		return fmt.Errorf("%w: source_kind %q", ErrInvalidConfig, c.SourceKind)
	}
	if !slices.Contains([]string{OutputCSV, OutputSQLite}, c.OutputKind) {
		return fmt.Errorf("%w: output_kind %q", ErrInvalidConfig, c.OutputKind)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("%w: output_path must not be empty", ErrInvalidConfig)
	}
	if c.OutputKind == OutputSQLite && c.OutputTable == "" {
		return fmt.Errorf("%w: output_table must not be empty", ErrInvalidConfig)
	}
	if c.WorkerCount < 0 {
		return fmt.Errorf("%w: worker_count %d", ErrInvalidConfig, c.WorkerCount)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size %d", ErrInvalidConfig, c.QueueSize)
	}
	if c.DateLayout == "" {
		return fmt.Errorf("%w: date_layout must not be empty", ErrInvalidConfig)
	}
	_, err := c.NormalizerOptions()
	return err
}

// NormalizerOptions translates the record settings into normalize options.
func (c *Config) NormalizerOptions() ([]normalize.Option, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}

	policy, err := sanitize.ParsePolicy(c.ClockPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cols := normalize.Columns{Date: c.DateColumn}
	for key, name := range c.EventColumns {
		t, err := model.ParseEventType(key)
		if err != nil {
			return nil, fmt.Errorf("%w: event_columns: %w", ErrInvalidConfig, err)
		}
		cols.Events[t] = name
	}

	names := make([]string, 0, len(c.ExtraDurations))
	for name := range c.ExtraDurations {
		names = append(names, name)
	}
	slices.Sort(names)
	pairs := make([]derive.Pair, 0, len(names))
	for _, name := range names {
		p, err := derive.ParsePair(name, c.ExtraDurations[name])
		if err != nil {
			return nil, fmt.Errorf("%w: extra_durations: %w", ErrInvalidConfig, err)
		}
		if p.Name == derive.TimeAwake || slices.ContainsFunc(sink.ReservedColumns(), func(col string) bool {
			return strings.EqualFold(col, p.Name)
		}) {
			return nil, fmt.Errorf("%w: extra_durations: %q is reserved", ErrInvalidConfig, p.Name)
		}
		pairs = append(pairs, p)
	}

	return []normalize.Option{
		normalize.WithColumns(cols),
		normalize.WithDateLayout(c.DateLayout),
		normalize.WithLocation(loc),
		normalize.WithSanitizer(sanitize.New(sanitize.WithPolicy(policy))),
		normalize.WithDeriver(derive.New(derive.WithPairs(pairs))),
	}, nil
}
