package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/habitflow/internal/testexports"
)

type generateOptions struct {
	*rootOptions
	Dir         string
	Days        int
	End         string
	Seed        uint64
	MissingRate float64
}

func newGenerateCommand(rootOpts *rootOptions) *cobra.Command {
	def := testexports.DefaultConfig()
	opts := &generateOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic tracker export",
		Long: `Write a reproducible synthetic "Loop Habits CSV" folder, handy for trying
the run command without real data.

Example:
  habitflow generate --dir /tmp/exports --days 90 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Dir, "dir", "d", def.Dir, "directory receiving the export folder")
	f.IntVar(&opts.Days, "days", def.Days, "number of days")
	f.StringVar(&opts.End, "end", def.End.Format(time.DateOnly), "newest day, YYYY-MM-DD")
	f.Uint64Var(&opts.Seed, "seed", def.Seed, "random seed")
	f.Float64Var(&opts.MissingRate, "missing-rate", def.MissingRate, "chance of an event being left out")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	level, format := "info", "text"
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		format = opts.LogFormat
	}
	if err := initLogger(cmd, level, format); err != nil {
		return err
	}

	end, err := time.Parse(time.DateOnly, opts.End)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	root, err := testexports.Run(cmd.Context(), testexports.Config{
		Dir:         opts.Dir,
		Days:        opts.Days,
		End:         end,
		Seed:        opts.Seed,
		MissingRate: opts.MissingRate,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), root)
	return err
}
