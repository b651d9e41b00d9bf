package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/okian/habitflow/internal/domain/model"
	"github.com/okian/habitflow/pkg/logger"
)

const (
	// ExportFolderPrefix starts the name of every CSV export folder.
	ExportFolderPrefix = "Loop Habits CSV"
	// CheckmarksFile holds one row per day in every export folder.
	CheckmarksFile = "Checkmarks.csv"

	allHabits = "all"
	bom       = "\ufeff"
)

// CSVResolver reads the newest "Loop Habits CSV*" folder under dir.
type CSVResolver struct {
	dir string
	settings
}

// NewCSVResolver creates a CSVResolver.
func NewCSVResolver(dir string, opts ...Option) *CSVResolver {
	return &CSVResolver{dir: dir, settings: newSettings(opts)}
}

// Locate returns the CSV file Resolve would read.
func (r *CSVResolver) Locate(_ context.Context) (string, error) {
	root, err := newest(r.dir, func(e os.DirEntry) bool {
		return e.IsDir() && strings.HasPrefix(e.Name(), ExportFolderPrefix)
	})
	if err != nil {
		return "", fmt.Errorf("csv export in %s: %w", r.dir, err)
	}

	target := root
	if r.habit != "" && !strings.EqualFold(r.habit, allHabits) {
		target, err = habitFolder(root, r.habit)
		if err != nil {
			return "", err
		}
	}
	return csvFile(target)
}

// Resolve implements Resolver.
func (r *CSVResolver) Resolve(ctx context.Context) (model.Table, error) {
	path, err := r.Locate(ctx)
	if err != nil {
		return model.Table{}, err
	}
	r.logger.Info(ctx, "loading csv export", logger.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return model.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(ctx, path, f)
}

// habitFolder returns the first subfolder of root, by name, containing term.
func habitFolder(root, term string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", root, err)
	}
	for _, e := range entries {
		if e.IsDir() && matches(e.Name(), term) {
			return filepath.Join(root, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w %q in %s", ErrNoHabit, term, filepath.Base(root))
}

// csvFile picks Checkmarks.csv in dir, else the first *.csv by name.
func csvFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	var first string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		if strings.EqualFold(e.Name(), CheckmarksFile) {
			return filepath.Join(dir, e.Name()), nil
		}
		if first == "" {
			first = e.Name()
		}
	}
	if first == "" {
		return "", fmt.Errorf("%w: %s", ErrNoCSV, dir)
	}
	return filepath.Join(dir, first), nil
}

// ReadCSV parses a CSV export. The first record is the header; header names
// are trimmed and NFC normalized. Short rows are padded with empty cells.
func ReadCSV(ctx context.Context, name string, rd io.Reader) (model.Table, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return model.Table{}, fmt.Errorf("%s: %w", name, ErrEmptyCSV)
	}
	if err != nil {
		return model.Table{}, fmt.Errorf("%s: header: %w", name, err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		columns[i] = norm.NFC.String(strings.TrimSpace(h))
	}

	t := model.Table{Name: name, Columns: slices.Clip(columns)}
	for {
		if err := ctx.Err(); err != nil {
			return model.Table{}, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Table{}, fmt.Errorf("%s: %w", name, err)
		}

		line, _ := cr.FieldPos(0)
		row := model.Row{Line: line, Cells: make(map[string]string, len(columns))}
		for i, col := range columns {
			if i < len(record) {
				row.Cells[col] = record[i]
			} else {
				row.Cells[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
