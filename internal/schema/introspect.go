package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Introspector reads table metadata from a PostgreSQL database using
// information_schema. It is the schema provider for the import pipeline.
type Introspector struct {
	pool *pgxpool.Pool
}

// NewIntrospector creates an Introspector backed by the given pool.
func NewIntrospector(pool *pgxpool.Pool) *Introspector {
	return &Introspector{pool: pool}
}

// ListTables returns all user-defined table names in the given schema,
// sorted alphabetically.
func (in *Introspector) ListTables(ctx context.Context, schemaName string) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := in.pool.Query(ctx, q, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// GetTable returns the ordered column definitions for one table.
// Returns an error if the table has no columns (missing table or view).
func (in *Introspector) GetTable(ctx context.Context, schemaName, tableName string) (Table, error) {
	const q = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES'         AS is_nullable,
			COALESCE(pk.is_pk, false)     AS is_primary_key,
			COALESCE(fk.is_fk, false)     AS is_foreign_key
		FROM information_schema.columns c

		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema = $1
			  AND tc.table_name   = $2
		) pk ON pk.column_name = c.column_name

		LEFT JOIN (
			SELECT kcu.column_name, true AS is_fk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'FOREIGN KEY'
			  AND tc.table_schema = $1
			  AND tc.table_name   = $2
		) fk ON fk.column_name = c.column_name

		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := in.pool.Query(ctx, q, schemaName, tableName)
	if err != nil {
		return Table{}, fmt.Errorf("introspect %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	t := Table{Schema: schemaName, Name: tableName}
	for rows.Next() {
		var col Column
		if err := rows.Scan(
			&col.Name,
			&col.Type,
			&col.Nullable,
			&col.IsPrimaryKey,
			&col.IsForeignKey,
		); err != nil {
			return Table{}, fmt.Errorf("scan column: %w", err)
		}
		t.Columns = append(t.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return Table{}, fmt.Errorf("introspect %s.%s: %w", schemaName, tableName, err)
	}

	if len(t.Columns) == 0 {
		return Table{}, fmt.Errorf("table %s.%s not found or has no columns", schemaName, tableName)
	}
	return t, nil
}
