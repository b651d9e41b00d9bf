package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/habitflow/internal/adapters/source"
	"github.com/okian/habitflow/internal/domain/classify"
	"github.com/okian/habitflow/internal/domain/normalize"
)

var validFormats = []string{"text", "json"}

type classifyOptions struct {
	*rootOptions
	SourceDir string
	Format    string
}

func newClassifyCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &classifyOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Sort the habit columns of the newest export into categories",
		Long: `Read the newest export and report which habit columns are binary
(checkmark codes only), continuous (any other number) or time based (the
configured event columns).`,
		Args: cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClassify(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.SourceDir, "source-dir", "d", "", "directory searched for exports")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	return cmd
}

func runClassify(cmd *cobra.Command, opts *classifyOptions) error {
	cfg, err := loadConfig(cmd, opts.rootOptions)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("source-dir") {
		cfg.SourceDir = opts.SourceDir
	}

	resolver, err := source.New(cfg.SourceKind, cfg.SourceDir,
		source.WithHabit(cfg.Habit),
		source.WithDBFile(cfg.DBFile),
	)
	if err != nil {
		return err
	}
	tbl, err := resolver.Resolve(cmd.Context())
	if err != nil {
		return fmt.Errorf("resolve export: %w", err)
	}

	normOpts, err := cfg.NormalizerOptions()
	if err != nil {
		return err
	}
	cols := normalize.New(normOpts...).Columns()
	c := classify.Table(tbl, cols.Date, cols.EventColumns())

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}
	for _, line := range []struct {
		kind  classify.Kind
		names []string
	}{
		{classify.KindBinary, c.Binary},
		{classify.KindContinuous, c.Continuous},
		{classify.KindTimeBased, c.TimeBased},
	} {
		if _, err := fmt.Fprintf(out, "%s: %s\n", line.kind, strings.Join(line.names, ", ")); err != nil {
			return err
		}
	}
	return nil
}
