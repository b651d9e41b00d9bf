package testexports

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/habitflow/pkg/logger"
)

const (
	dirPermission  = 0o755
	filePermission = 0o644
	folderPrefix   = "Loop Habits CSV "
	checkmarksName = "Checkmarks.csv"
)

// WriteFolder lays exp out under dir like a tracker CSV export: a
// "Loop Habits CSV <date>" folder holding the combined Checkmarks.csv and one
// numbered subfolder per habit. It returns the folder path.
func WriteFolder(ctx context.Context, dir string, exp Export) (string, error) { //nolint:gocritic // hugeParam: Export is read-only here
	stamp := time.Now().UTC().Format("2006-01-02 1504")
	if len(exp.Days) > 0 {
		stamp = exp.Days[0].Date.Format("2006-01-02") + " 0000"
	}
	root := filepath.Join(dir, folderPrefix+stamp)

	cols := exp.Table.Columns
	if err := writeCSV(filepath.Join(root, checkmarksName), cols, exp); err != nil {
		return "", err
	}

	for i, habit := range cols[1:] {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		sub := filepath.Join(root, fmt.Sprintf("%03d %s", i+1, habit))
		if err := writeCSV(filepath.Join(sub, checkmarksName), []string{cols[0], habit}, exp); err != nil {
			return "", err
		}
	}

	logger.Get().Named("testexports").Info(ctx, "export written",
		logger.String("path", root),
		logger.Int("days", len(exp.Table.Rows)),
	)
	return root, nil
}

// writeCSV writes the given columns of exp to path. The header uses the
// column names as they are; cells are looked up by the same names.
func writeCSV(path string, cols []string, exp Export) error { //nolint:gocritic // hugeParam: Export is read-only here
	if err := os.MkdirAll(filepath.Dir(path), dirPermission); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	_ = w.Write(cols)
	record := make([]string, len(cols))
	for _, row := range exp.Table.Rows {
		for i, c := range cols {
			record[i] = row.Cells[c]
		}
		_ = w.Write(record)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// Run generates an export from cfg and writes it under cfg.Dir.
func Run(ctx context.Context, cfg Config) (string, error) {
	if cfg.Days < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidDays, cfg.Days)
	}
	exp := Generate(cfg)
	return WriteFolder(ctx, cfg.Dir, exp)
}
