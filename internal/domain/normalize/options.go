package normalize

import (
	"time"

	"github.com/okian/habitflow/internal/domain/derive"
	"github.com/okian/habitflow/internal/domain/sanitize"
)

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithColumns sets the source column names. Empty names keep the default.
func WithColumns(c Columns) Option {
	return func(n *Normalizer) {
		if c.Date != "" {
			n.columns.Date = c.Date
		}
		for i, name := range c.Events {
			if name != "" {
				n.columns.Events[i] = name
			}
		}
	}
}

// WithDateLayout sets the time.Parse layout of the date column.
func WithDateLayout(layout string) Option {
	return func(n *Normalizer) {
		if layout != "" {
			n.dateLayout = layout
		}
	}
}

// WithLocation sets the location dates are anchored in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.location = loc
		}
	}
}

// WithSanitizer replaces the clock sanitizer.
func WithSanitizer(s *sanitize.Sanitizer) Option {
	return func(n *Normalizer) {
		if s != nil {
			n.sanitizer = s
		}
	}
}

// WithDeriver replaces the duration deriver.
func WithDeriver(d *derive.Deriver) Option {
	return func(n *Normalizer) {
		if d != nil {
			n.deriver = d
		}
	}
}
