package importer

import (
	"strings"

	"github.com/pcrowther/gridfill/internal/schema"
)

// AutoMatchColumns proposes a Mapping from uploaded headers to target
// columns. For each header, in header order, it scans the schema's columns
// in schema order for a case-insensitive exact name match, then for a
// substring match in either direction. The first hit wins; a header with no
// hit is skipped.
//
// The proposal is advisory only: a wrong guess is caught by ValidateMapping
// and by the user reviewing the mapping, not prevented here.
func AutoMatchColumns(headers []string, t schema.Table) Mapping {
	m := make(Mapping, len(headers))
	for _, header := range headers {
		m[header] = matchColumn(header, t)
	}
	return m
}

func matchColumn(header string, t schema.Table) string {
	h := strings.ToLower(header)

	for _, c := range t.Columns {
		if strings.ToLower(c.Name) == h {
			return c.Name
		}
	}
	for _, c := range t.Columns {
		n := strings.ToLower(c.Name)
		if strings.Contains(h, n) || strings.Contains(n, h) {
			return c.Name
		}
	}
	return ""
}
