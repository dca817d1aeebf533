package schema

import (
	"reflect"
	"testing"
)

func TestColumn_AutoGenerated(t *testing.T) {
	tests := []struct {
		typ  string
		want bool
	}{
		{"serial", true},
		{"bigserial", true},
		{"SERIAL", true},
		{"uuid", true},
		{"integer", false},
		{"bigint", false},
		{"varchar", false},
	}
	for _, tt := range tests {
		c := Column{Name: "id", Type: tt.typ}
		if got := c.AutoGenerated(); got != tt.want {
			t.Errorf("AutoGenerated(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestTable_QualifiedName(t *testing.T) {
	if got := (Table{Schema: "public", Name: "users"}).QualifiedName(); got != "public.users" {
		t.Errorf("QualifiedName() = %q", got)
	}
	if got := (Table{Name: "users"}).QualifiedName(); got != "users" {
		t.Errorf("QualifiedName() without schema = %q", got)
	}
}

func TestTable_Lookups(t *testing.T) {
	tbl := Table{
		Schema: "public",
		Name:   "orders",
		Columns: []Column{
			{Name: "id", Type: "serial", IsPrimaryKey: true},
			{Name: "ref", Type: "uuid", IsPrimaryKey: true},
			{Name: "total", Type: "numeric"},
		},
	}

	c, ok := tbl.Column("total")
	if !ok || c.Type != "numeric" {
		t.Errorf("Column(total) = %+v, %v", c, ok)
	}
	if _, ok := tbl.Column("TOTAL"); ok {
		t.Error("Column lookup should be exact, not case-insensitive")
	}

	if got := tbl.ColumnNames(); !reflect.DeepEqual(got, []string{"id", "ref", "total"}) {
		t.Errorf("ColumnNames() = %v", got)
	}

	pks := tbl.PrimaryKeys()
	if len(pks) != 2 || pks[0].Name != "id" || pks[1].Name != "ref" {
		t.Errorf("PrimaryKeys() = %+v", pks)
	}
}
