package model

// Row is one source row: cells keyed by column name. A missing key and an
// empty string both mean the cell is null.
type Row struct {
	// Line is the 1-based line (or row number) in the source.
	Line  int
	Cells map[string]string
}

// Get returns the cell for column.
func (r Row) Get(column string) (string, bool) {
	v, ok := r.Cells[column]
	return v, ok
}

// Table is what a source resolver hands to the pipeline.
type Table struct {
	// Name identifies the source (file or database path) for logging.
	Name    string
	Columns []string
	Rows    []Row
}

// HasColumn reports whether the table declares column.
func (t Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}
