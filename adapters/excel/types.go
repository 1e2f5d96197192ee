package excel

import "mldash/domain/dataset"

// Table is a parsed upload
type Table struct {
	Headers       []string          // Column headers in file order
	Rows          []dataset.Row     // Data rows, keyed by header
	ColumnTypes   map[string]string // Inferred type per column
	MissingValues map[string]int    // Null cells per column
}
