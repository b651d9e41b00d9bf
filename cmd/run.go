package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/habitflow/internal/adapters/sink"
	"github.com/okian/habitflow/internal/adapters/source"
	app "github.com/okian/habitflow/internal/app"
	"github.com/okian/habitflow/internal/config"
	"github.com/okian/habitflow/internal/domain/normalize"
	"github.com/okian/habitflow/pkg/logger"
	"github.com/okian/habitflow/pkg/metrics"
)

var errNoRecords = errors.New("every row was rejected")

// runOptions holds flags of the run command. Empty or zero values keep
// the configured setting.
type runOptions struct {
	*rootOptions
	SourceDir   string
	SourceKind  string
	Habit       string
	DBFile      string
	Output      string
	OutputKind  string
	Workers     int
	Dedupe      bool
	MetricsFile string
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Normalize the newest export and write the cleaned table",
		Long: `Resolve the newest export under the source directory, normalize every
day and write the cleaned table. Rows that fail to parse are logged and left
out; the command fails without writing when every row was rejected.

Example:
  habitflow run --source-dir ~/Downloads
  habitflow run --source-kind sqlite --output habits.db --output-kind sqlite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.SourceDir, "source-dir", "d", "", "directory searched for exports")
	f.StringVar(&opts.SourceKind, "source-kind", "", "auto, csv or sqlite")
	f.StringVar(&opts.Habit, "habit", "", "read only the habit subfolder matching this name")
	f.StringVar(&opts.DBFile, "db", "", "database file instead of the newest *.db")
	f.StringVarP(&opts.Output, "output", "o", "", "output path")
	f.StringVar(&opts.OutputKind, "output-kind", "", "csv or sqlite")
	f.IntVarP(&opts.Workers, "workers", "w", 0, "number of workers")
	f.BoolVar(&opts.Dedupe, "dedupe", false, "keep only the first row of each date")
	f.StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics here after the run")

	return cmd
}

// apply copies the flags that were set over cfg and revalidates it.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	set := func(name string, dst *string, val string) {
		if f.Changed(name) {
			*dst = val
		}
	}
	set("source-dir", &cfg.SourceDir, o.SourceDir)
	set("source-kind", &cfg.SourceKind, o.SourceKind)
	set("habit", &cfg.Habit, o.Habit)
	set("db", &cfg.DBFile, o.DBFile)
	set("output", &cfg.OutputPath, o.Output)
	set("output-kind", &cfg.OutputKind, o.OutputKind)
	set("metrics-file", &cfg.MetricsFile, o.MetricsFile)
	if f.Changed("workers") {
		cfg.WorkerCount = o.Workers
	}
	if f.Changed("dedupe") {
		cfg.DedupeDates = o.Dedupe
	}
	return cfg.Validate()
}

func runPipeline(cmd *cobra.Command, opts *runOptions) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, opts.rootOptions)
	if err != nil {
		return err
	}
	if err := opts.apply(cmd, cfg); err != nil {
		return err
	}
	log := logger.Get().Named("habitflow")

	resolver, err := source.New(cfg.SourceKind, cfg.SourceDir,
		source.WithHabit(cfg.Habit),
		source.WithDBFile(cfg.DBFile),
	)
	if err != nil {
		return err
	}
	tbl, err := resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve export: %w", err)
	}

	normOpts, err := cfg.NormalizerOptions()
	if err != nil {
		return err
	}
	svc := app.New(
		app.WithNormalizer(normalize.New(normOpts...)),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeDates(cfg.DedupeDates),
		app.WithDedupeSize(cfg.DedupeSize),
	)
	res, err := svc.Run(ctx, tbl)
	switch {
	case res == nil:
		return err
	case errors.Is(err, app.ErrRowsRejected):
		for _, r := range res.Rejections {
			log.Warn(ctx, "row skipped",
				logger.Int("line", r.Line),
				logger.String("reason", r.Reason),
				logger.Error(r.Err),
			)
		}
		if len(res.Entries) == 0 {
			return fmt.Errorf("%w: %d rows in %s", errNoRecords, len(res.Rejections), res.Source)
		}
	case err != nil:
		return err
	}

	w, err := sink.New(cfg.OutputKind, cfg.OutputPath, cfg.OutputTable)
	if err != nil {
		return err
	}
	if err := w.Write(ctx, sink.Batch{
		RunID:     res.RunID,
		Records:   res.Records(),
		Durations: res.DurationNames,
	}); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn(ctx, "metrics not written", logger.Error(err))
		}
	}

	log.Info(ctx, "output written",
		logger.String("run_id", res.RunID.String()),
		logger.String("path", cfg.OutputPath),
		logger.Int("records", len(res.Entries)),
		logger.Int("skipped", len(res.Rejections)),
	)
	return nil
}
