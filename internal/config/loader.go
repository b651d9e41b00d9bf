package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "HABITFLOW_"
	envConfig  = envPrefix + "CONFIG"
	envNesting = "__"
)

// LoadOption adjusts how Load finds its inputs.
type LoadOption func(*loadSettings)

type loadSettings struct {
	path string
}

// WithFile loads the YAML file at path instead of $HABITFLOW_CONFIG.
func WithFile(path string) LoadOption {
	return func(s *loadSettings) {
		if path != "" {
			s.path = path
		}
	}
}

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) from WithFile or HABITFLOW_CONFIG
//  3. env (prefix HABITFLOW_); a double underscore nests, so
//     HABITFLOW_EVENT_COLUMNS__WAKE_UP sets event_columns.wake_up
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	s := loadSettings{path: os.Getenv(envConfig)}
	for _, opt := range opts {
		opt(&s)
	}

	base := New(ctx)
	k := koanf.New(".")

	if s.path != "" {
		if err := k.Load(file.Provider(s.path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, s.path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(key string) string {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if key == "config" {
			return ""
		}
		return strings.ReplaceAll(key, envNesting, ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
