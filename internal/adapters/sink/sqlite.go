package sink

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/habitflow/pkg/logger"
)

// DefaultTable is the table the SQLite writer fills.
const DefaultTable = "habits_cleaned"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteWriter writes a batch into a table of a SQLite database. The table is
// dropped and recreated on every write; each row carries the run ID.
type SQLiteWriter struct {
	path   string
	table  string
	logger logger.Logger
}

// SQLiteOption configures a SQLiteWriter.
type SQLiteOption func(*SQLiteWriter)

// WithTable sets the table name. Empty keeps DefaultTable.
func WithTable(table string) SQLiteOption {
	return func(w *SQLiteWriter) {
		if table != "" {
			w.table = table
		}
	}
}

// NewSQLiteWriter creates a SQLiteWriter for the database at path.
func NewSQLiteWriter(path string, opts ...SQLiteOption) (*SQLiteWriter, error) {
	w := &SQLiteWriter{path: path, table: DefaultTable, logger: logger.Get().Named("sink")}
	for _, opt := range opts {
		opt(w)
	}
	if !identifier.MatchString(w.table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, w.table)
	}
	return w, nil
}

// Write implements Writer.
func (w *SQLiteWriter) Write(ctx context.Context, b Batch) error { //nolint:gocritic // hugeParam: Batch is read-only here
	db, err := sql.Open("sqlite", w.path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	header := Header(b.Durations)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(w.table)); err != nil {
		return fmt.Errorf("drop %s: %w", w.table, err)
	}
	if _, err := tx.ExecContext(ctx, createTable(w.table, header, len(b.Durations))); err != nil {
		return fmt.Errorf("create %s: %w", w.table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insert(w.table, header))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	runID := b.RunID.String()
	for _, rec := range b.Records {
		args := []any{runID}
		for _, c := range cells(rec, b.Durations) {
			if c.Valid {
				args = append(args, c.Value)
			} else {
				args = append(args, nil)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert line %d: %w", rec.Line, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	w.logger.Info(ctx, "sqlite table written",
		logger.String("path", w.path),
		logger.String("table", w.table),
		logger.Int("records", len(b.Records)),
	)
	return nil
}

// quote renders name as a SQL identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// createTable declares run_id then the Header columns. The trailing
// durations are REAL and the rollover flags INTEGER; the rest are TEXT.
func createTable(table string, header []string, durations int) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE " + quote(table) + " (" + RunIDColumn + " TEXT NOT NULL")
	firstDuration := len(header) - durations
	for i, col := range header {
		typ := "TEXT"
		switch {
		case i >= firstDuration:
			typ = "REAL"
		case strings.HasSuffix(col, "_rolled"):
			typ = "INTEGER"
		}
		sb.WriteString(", " + quote(col) + " " + typ)
	}
	sb.WriteString(")")
	return sb.String()
}

func insert(table string, header []string) string {
	cols := make([]string, 0, len(header)+1)
	cols = append(cols, RunIDColumn)
	for _, col := range header {
		cols = append(cols, quote(col))
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return "INSERT INTO " + quote(table) + " (" + strings.Join(cols, ", ") + ") VALUES (" + marks + ")"
}
