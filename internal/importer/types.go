package importer

import (
	"strings"

	"github.com/pcrowther/gridfill/internal/schema"
)

// MaxFileSize is the maximum accepted upload size in bytes (5MB).
const MaxFileSize = 5_242_880

// MaxRows is the maximum number of data rows parsed from one upload.
// Files with more rows are truncated, not rejected; the true total is
// still reported so the caller can warn the user.
const MaxRows = 1000

// RawRow is one parsed input record keyed by the *uploaded* field names.
// A nil value represents absence or a blank cell.
type RawRow map[string]*string

// Dataset is the result of parsing one uploaded file. It is discarded once
// a mapping has been applied.
type Dataset struct {
	Headers    []string `json:"headers"`
	Rows       []RawRow `json:"rows"`
	TotalRows  int      `json:"totalRows"`
	ParsedRows int      `json:"parsedRows"`
	Truncated  bool     `json:"truncated"`

	// Notice carries the informational truncation message, if any.
	Notice string `json:"notice,omitempty"`
}

// Mapping assigns each uploaded header to a target column name. An empty
// value (or a missing key) means the header is skipped.
type Mapping map[string]string

// Target returns the target column for an uploaded header, with ok=false
// when the header is skipped.
func (m Mapping) Target(header string) (string, bool) {
	col, ok := m[header]
	if !ok || col == "" {
		return "", false
	}
	return col, true
}

// Row is one insert-ready record. Its key set is always exactly the target
// table's column set; construct one with NewRow and mutate it only through
// RowBuffer so that invariant holds. A nil value means SQL NULL.
type Row map[string]*string

// NewRow returns a Row with every column of t set to null.
func NewRow(t schema.Table) Row {
	r := make(Row, len(t.Columns))
	for _, c := range t.Columns {
		r[c.Name] = nil
	}
	return r
}

// IsBlank reports whether every cell is null or whitespace.
func (r Row) IsBlank() bool {
	for _, v := range r {
		if v != nil && strings.TrimSpace(*v) != "" {
			return false
		}
	}
	return true
}

// clone returns an independent copy of the row. Cell pointers are shared:
// a cell is only ever replaced, never written through, so the copy cannot
// observe later edits.
func (r Row) clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// cellValue returns the trimmed value of a cell, "" when null.
func (r Row) cellValue(col string) string {
	v := r[col]
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

// strptr returns a pointer to s. Helper for building rows and tests.
func strptr(s string) *string {
	return &s
}
