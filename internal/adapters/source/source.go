// Package source finds a habit tracker export on disk and reads it into a
// model.Table.
//
// Two export shapes are understood: the "Loop Habits CSV <date>" folder and
// the SQLite backup (*.db). Both yield one row per day with a Date column and
// one column per habit.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/habitflow/internal/domain/model"
	"github.com/okian/habitflow/pkg/logger"
)

// Kinds accepted by New.
const (
	KindAuto   = "auto"
	KindCSV    = "csv"
	KindSQLite = "sqlite"
)

// DateColumn is the date header both export shapes use.
const DateColumn = "Date"

// Resolver locates an export and reads it.
type Resolver interface {
	Resolve(ctx context.Context) (model.Table, error)
}

// New returns the resolver for kind rooted at dir.
func New(kind, dir string, opts ...Option) (Resolver, error) {
	switch kind {
	case KindCSV:
		return NewCSVResolver(dir, opts...), nil
	case KindSQLite:
		return NewSQLiteResolver(dir, opts...), nil
	case KindAuto, "":
		return NewAutoResolver(dir, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// AutoResolver reads a CSV export folder if one exists, else a SQLite backup.
type AutoResolver struct {
	csv    *CSVResolver
	sqlite *SQLiteResolver
	logger logger.Logger
}

// NewAutoResolver creates an AutoResolver.
func NewAutoResolver(dir string, opts ...Option) *AutoResolver {
	s := newSettings(opts)
	return &AutoResolver{
		csv:    NewCSVResolver(dir, opts...),
		sqlite: NewSQLiteResolver(dir, opts...),
		logger: s.logger,
	}
}

// Resolve implements Resolver.
func (r *AutoResolver) Resolve(ctx context.Context) (model.Table, error) {
	t, err := r.csv.Resolve(ctx)
	if err == nil || !errors.Is(err, ErrNoExport) {
		return t, err
	}
	r.logger.Debug(ctx, "no csv export, trying sqlite", logger.Error(err))
	return r.sqlite.Resolve(ctx)
}

// newest returns the entry of dir accepted by match with the latest
// modification time. Ties go to the later name.
func newest(dir string, match func(os.DirEntry) bool) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, e := range entries {
		if !match(e) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || !info.ModTime().Before(bestTime) {
			best, bestTime = e.Name(), info.ModTime()
		}
	}
	if best == "" {
		return "", ErrNoExport
	}
	return filepath.Join(dir, best), nil
}

// fold prepares a name for case-insensitive, normalization-insensitive
// substring matching. A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// matches reports whether name contains term, ignoring case and Unicode form.
func matches(name, term string) bool {
	return strings.Contains(fold(name), fold(term))
}
