package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/habitflow/pkg/logger"
)

// CSVWriter writes a batch to a CSV file. The file is replaced atomically.
type CSVWriter struct {
	path   string
	logger logger.Logger
}

// NewCSVWriter creates a CSVWriter for path.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path, logger: logger.Get().Named("sink")}
}

// Write implements Writer.
func (w *CSVWriter) Write(ctx context.Context, b Batch) error {
	tmp, err := os.CreateTemp(filepath.Dir(w.path), "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", w.path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteCSV(ctx, tmp, b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("rename to %s: %w", w.path, err)
	}

	w.logger.Info(ctx, "csv written",
		logger.String("path", w.path),
		logger.Int("records", len(b.Records)),
	)
	return nil
}

// WriteCSV writes the header and one line per record to out.
func WriteCSV(ctx context.Context, out io.Writer, b Batch) error { //nolint:gocritic // hugeParam: Batch is read-only here
	cw := csv.NewWriter(out)
	if err := cw.Write(Header(b.Durations)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range b.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cw.Write(Row(rec, b.Durations)); err != nil {
			return fmt.Errorf("write line %d: %w", rec.Line, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
