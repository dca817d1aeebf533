// Package schema defines the table metadata model consumed by the import
// pipeline and provides PostgreSQL introspection to populate it.
//
// The import engine itself never queries the database; it only reads the
// Table and Column values produced here.
package schema

import "strings"

// Column describes a single column of an insert target.
type Column struct {
	Name         string `json:"name"`
	Type         string `json:"type"` // declared type as reported by the store, e.g. "varchar", "serial"
	Nullable     bool   `json:"nullable"`
	IsPrimaryKey bool   `json:"is_pk"`
	IsForeignKey bool   `json:"is_fk"`
}

// AutoGenerated reports whether the column is presumed to receive a
// server-generated value when left blank. Inferred from the declared type
// name: "serial" and "uuid" columns are treated as self-populating.
// A sequence-backed "bigint" primary key will not match; see the table
// editor's docs for the known limits of this inference.
func (c Column) AutoGenerated() bool {
	t := strings.ToLower(c.Type)
	return strings.Contains(t, "serial") || strings.Contains(t, "uuid")
}

// Table is an ordered set of column definitions for one insert target.
type Table struct {
	Schema  string   `json:"schema"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// QualifiedName returns the schema-qualified table name.
func (t Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Column returns the column with the given name, matched exactly.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKeys returns the primary-key columns in declaration order.
func (t Table) PrimaryKeys() []Column {
	var pks []Column
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pks = append(pks, c)
		}
	}
	return pks
}
