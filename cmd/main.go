package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/habitflow/internal/config"
	"github.com/okian/habitflow/pkg/logger"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
}

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		// The logger may not be initialized yet.
		fmt.Fprintln(os.Stderr, "habitflow: "+err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "habitflow",
		Short: "Normalize habit tracker exports",
		Long: `habitflow reads the newest Loop Habit Tracker export (a CSV folder or a
SQLite backup), turns the encoded clock values of the daily events into real
timestamps, rolls late events onto the next day and writes a cleaned table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file (default $HABITFLOW_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newClassifyCommand(opts))
	cmd.AddCommand(newGenerateCommand(opts))
	return cmd
}

// loadConfig layers defaults, file and env, then the global flags, and
// initializes the logger from the result.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	var loadOpts []config.LoadOption
	if opts.ConfigFile != "" {
		loadOpts = append(loadOpts, config.WithFile(opts.ConfigFile))
	}
	cfg, err := config.Load(cmd.Context(), loadOpts...)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	if err := initLogger(cmd, cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogger(cmd *cobra.Command, level, format string) error {
	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithFormat(format)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(level); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", level), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}
