package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pcrowther/gridfill/internal/schema"
)

// Report is the outcome of checking a Mapping against the target schema.
// A mapping is usable iff Errors is empty; Warnings never block.
type Report struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Valid reports whether the mapping may be applied.
func (r Report) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateMapping checks a mapping against the schema's constraints.
//
// Errors: a non-nullable non-key column with no header mapped to it, a
// primary-key column that is not auto-generating and has no header, a target
// that is not a schema column, and two headers claiming the same target.
// Warnings: headers mapped to skip, and nullable columns the mapping leaves
// uncovered (they will resolve to null).
func ValidateMapping(m Mapping, t schema.Table) Report {
	var report Report

	// coveredBy collects, per target column, the headers claiming it.
	coveredBy := make(map[string][]string)
	var skipped []string
	for _, header := range sortedHeaders(m) {
		target, ok := m.Target(header)
		if !ok {
			skipped = append(skipped, header)
			continue
		}
		if _, exists := t.Column(target); !exists {
			report.Errors = append(report.Errors, fmt.Sprintf("Unknown target column %q", target))
			continue
		}
		coveredBy[target] = append(coveredBy[target], header)
	}

	for _, c := range t.Columns {
		headers := coveredBy[c.Name]
		if len(headers) > 1 {
			report.Errors = append(report.Errors, fmt.Sprintf(
				"Multiple uploaded columns (%s) map to column %q", strings.Join(headers, ", "), c.Name))
		}
		if len(headers) > 0 {
			continue
		}
		switch {
		case !c.Nullable && !c.IsPrimaryKey:
			report.Errors = append(report.Errors, fmt.Sprintf("Required column %q is not mapped", c.Name))
		case c.IsPrimaryKey && !c.AutoGenerated():
			report.Errors = append(report.Errors, fmt.Sprintf("Primary key column %q is not mapped and must be provided", c.Name))
		}
	}

	if len(skipped) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"Uploaded columns will be skipped: %s", strings.Join(skipped, ", ")))
	}

	var uncovered []string
	for _, c := range t.Columns {
		if c.Nullable && len(coveredBy[c.Name]) == 0 {
			uncovered = append(uncovered, c.Name)
		}
	}
	if len(uncovered) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"Columns not covered by the mapping will be null: %s", strings.Join(uncovered, ", ")))
	}

	return report
}

// ApplyMapping materializes raw rows into canonical rows in their original
// order. Every target column starts as null; a mapped header with a defined
// value overwrites it. The mapping is re-validated here so an unusable
// mapping can never produce rows, whatever the caller did.
func ApplyMapping(ds *Dataset, m Mapping, t schema.Table) ([]Row, error) {
	if report := ValidateMapping(m, t); !report.Valid() {
		return nil, newError(KindMapping, "mapping is not valid: %s", strings.Join(report.Errors, "; "))
	}

	rows := make([]Row, 0, len(ds.Rows))
	for _, raw := range ds.Rows {
		row := NewRow(t)
		for header := range m {
			col, ok := m.Target(header)
			if !ok {
				continue
			}
			if v, defined := raw[header]; defined && v != nil {
				val := *v
				row[col] = &val
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sortedHeaders returns the mapping's headers in a stable order so repeated
// validations of the same mapping produce identical reports.
func sortedHeaders(m Mapping) []string {
	headers := make([]string, 0, len(m))
	for h := range m {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	return headers
}
