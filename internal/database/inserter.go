// Package database implements the insert collaborator: it persists a
// validated batch into the target table over pgx.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pcrowther/gridfill/internal/importer"
	"github.com/pcrowther/gridfill/internal/schema"
)

// PGInserter writes batches into PostgreSQL. Each row is inserted inside
// its own savepoint, so a constraint failure the client-side validator
// cannot see (server-enforced uniqueness, foreign keys) rejects only that
// row while the rest of the batch commits.
type PGInserter struct {
	pool *pgxpool.Pool
}

// NewPGInserter creates an inserter backed by the given pool.
func NewPGInserter(pool *pgxpool.Pool) *PGInserter {
	return &PGInserter{pool: pool}
}

// Insert persists rows into table within one transaction. Null cells and
// cells absent a value are left to the server (NULL or column default), so
// blank auto-generated keys are populated by the store. The returned result
// can represent partial failure: Success true with itemized Failures.
func (pi *PGInserter) Insert(ctx context.Context, table schema.Table, rows []importer.Row) (*importer.InsertResult, error) {
	tx, err := pi.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result := &importer.InsertResult{}

	for i, row := range rows {
		sql, args := buildInsert(table, row)

		savepoint := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return nil, fmt.Errorf("create savepoint: %w", err)
		}

		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return nil, fmt.Errorf("rollback savepoint: %w", rbErr)
			}
			result.Failures = append(result.Failures, importer.RowFailure{
				Row:     i + 1,
				Message: err.Error(),
			})
			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return nil, fmt.Errorf("release savepoint: %w", err)
		}
		result.Inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	result.Success = result.Inserted > 0 || len(result.Failures) == 0
	if len(result.Failures) == 0 {
		result.Message = fmt.Sprintf("Inserted %d rows into %s", result.Inserted, table.QualifiedName())
	} else {
		result.Message = fmt.Sprintf("Inserted %d of %d rows into %s; %d failed",
			result.Inserted, len(rows), table.QualifiedName(), len(result.Failures))
	}
	return result, nil
}

// buildInsert renders one parameterized INSERT covering only the row's
// non-null cells, so omitted columns pick up server defaults. A fully
// defaulted row (possible when every mapped cell is an auto-generated key)
// falls back to DEFAULT VALUES.
func buildInsert(table schema.Table, row importer.Row) (string, []any) {
	var cols []string
	var args []any

	for _, c := range table.Columns {
		v := row[c.Name]
		if v == nil {
			continue
		}
		cols = append(cols, pgx.Identifier{c.Name}.Sanitize())
		args = append(args, *v)
	}

	target := pgx.Identifier{table.Schema, table.Name}.Sanitize()
	if table.Schema == "" {
		target = pgx.Identifier{table.Name}.Sanitize()
	}

	if len(cols) == 0 {
		return "INSERT INTO " + target + " DEFAULT VALUES", nil
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		target, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return sql, args
}
