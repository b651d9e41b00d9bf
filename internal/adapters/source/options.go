package source

import (
	"github.com/okian/habitflow/pkg/logger"
)

// Option configures a resolver.
type Option func(*settings)

type settings struct {
	habit  string
	dbFile string
	logger logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{logger: logger.Get().Named("source")}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithHabit selects the per-habit subfolder of a CSV export whose name
// contains habit. Empty or "all" reads the combined file.
func WithHabit(habit string) Option {
	return func(s *settings) {
		s.habit = habit
	}
}

// WithDBFile reads the named database instead of the newest *.db. Relative
// names are taken from the source directory.
func WithDBFile(name string) Option {
	return func(s *settings) {
		s.dbFile = name
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
