package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/habitflow/internal/domain/model"
	"github.com/okian/habitflow/pkg/logger"
)

// SQLiteResolver reads a tracker backup database: the named db_file, or the
// newest *.db under dir.
type SQLiteResolver struct {
	dir string
	settings
}

// NewSQLiteResolver creates a SQLiteResolver.
func NewSQLiteResolver(dir string, opts ...Option) *SQLiteResolver {
	return &SQLiteResolver{dir: dir, settings: newSettings(opts)}
}

// Locate returns the database file Resolve would read.
func (r *SQLiteResolver) Locate(_ context.Context) (string, error) {
	if r.dbFile != "" {
		path := r.dbFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("database %s: %w", path, err)
		}
		return path, nil
	}

	path, err := newest(r.dir, func(e os.DirEntry) bool {
		return !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".db")
	})
	if err != nil {
		return "", fmt.Errorf("sqlite export in %s: %w", r.dir, err)
	}
	return path, nil
}

// Resolve implements Resolver.
func (r *SQLiteResolver) Resolve(ctx context.Context) (model.Table, error) {
	path, err := r.Locate(ctx)
	if err != nil {
		return model.Table{}, err
	}
	r.logger.Info(ctx, "loading sqlite export", logger.String("path", path))

	db, err := sql.Open("sqlite", readOnlyURI(path))
	if err != nil {
		return model.Table{}, fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return model.Table{}, fmt.Errorf("ping database: %w", err)
	}
	return ReadSQLite(ctx, db, path)
}

// readOnlyURI escapes path into a read-only SQLite file URI.
func readOnlyURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: "mode=ro"}
	return u.String()
}

// ReadSQLite pivots the Repetitions table into one row per day, newest day
// first like the CSV export. Columns are Date then habit names by position.
// Repetition timestamps are UTC midnights in epoch milliseconds.
func ReadSQLite(ctx context.Context, db *sql.DB, name string) (model.Table, error) {
	habits, err := db.QueryContext(ctx, `
		SELECT id, name
		FROM Habits
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return model.Table{}, fmt.Errorf("query habits: %w", err)
	}
	defer func() { _ = habits.Close() }()

	t := model.Table{Name: name, Columns: []string{DateColumn}}
	nameByID := make(map[int64]string)
	for habits.Next() {
		var (
			id    int64
			habit string
		)
		if err := habits.Scan(&id, &habit); err != nil {
			return model.Table{}, fmt.Errorf("scan habit: %w", err)
		}
		habit = strings.TrimSpace(habit)
		nameByID[id] = habit
		t.Columns = append(t.Columns, habit)
	}
	if err := habits.Err(); err != nil {
		return model.Table{}, fmt.Errorf("read habits: %w", err)
	}

	reps, err := db.QueryContext(ctx, `
		SELECT habit, timestamp, value
		FROM Repetitions
		ORDER BY timestamp DESC
	`)
	if err != nil {
		return model.Table{}, fmt.Errorf("query repetitions: %w", err)
	}
	defer func() { _ = reps.Close() }()

	index := make(map[string]int)
	for reps.Next() {
		var (
			habitID int64
			stamp   int64
			value   int64
		)
		if err := reps.Scan(&habitID, &stamp, &value); err != nil {
			return model.Table{}, fmt.Errorf("scan repetition: %w", err)
		}
		habit, ok := nameByID[habitID]
		if !ok {
			continue
		}

		date := time.UnixMilli(stamp).UTC().Format(time.DateOnly)
		i, ok := index[date]
		if !ok {
			i = len(t.Rows)
			index[date] = i
			t.Rows = append(t.Rows, model.Row{
				Line:  i + 1,
				Cells: map[string]string{DateColumn: date},
			})
		}
		t.Rows[i].Cells[habit] = strconv.FormatInt(value, 10)
	}
	if err := reps.Err(); err != nil {
		return model.Table{}, fmt.Errorf("read repetitions: %w", err)
	}
	return t, nil
}
