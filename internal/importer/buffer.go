package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pcrowther/gridfill/internal/schema"
)

// RowErrors maps a column name to its error message for one row.
type RowErrors map[string]string

// PerRowErrors maps a row index to that row's cell errors. Indices are
// always valid indices into the current buffer; every mutation that moves
// rows re-indexes this map rather than recomputing it lazily.
type PerRowErrors map[int]RowErrors

// RowBuffer holds the editable row set for one import session.
type RowBuffer struct {
	table schema.Table
	rows  []Row
	errs  PerRowErrors
}

// NewRowBuffer creates a buffer over rows produced by ApplyMapping, or over
// a single blank row for manual entry when rows is empty.
func NewRowBuffer(t schema.Table, rows []Row) *RowBuffer {
	if len(rows) == 0 {
		rows = []Row{NewRow(t)}
	}
	return &RowBuffer{
		table: t,
		rows:  rows,
		errs:  make(PerRowErrors),
	}
}

// Len returns the number of rows.
func (b *RowBuffer) Len() int {
	return len(b.rows)
}

// Rows returns the buffer's rows in order. The slice is shared; callers
// must not mutate it.
func (b *RowBuffer) Rows() []Row {
	return b.rows
}

// Errors returns the current per-row errors.
func (b *RowBuffer) Errors() PerRowErrors {
	return b.errs
}

// AddBlankRow appends a row with every column null.
func (b *RowBuffer) AddBlankRow() {
	b.rows = append(b.rows, NewRow(b.table))
}

// RemoveRow deletes row i and shifts every recorded error above it down one
// index, so surviving rows keep their errors and nothing lingers at a
// now-unused index.
func (b *RowBuffer) RemoveRow(i int) error {
	if i < 0 || i >= len(b.rows) {
		return newError(KindSession, "row %d does not exist", i)
	}
	b.rows = append(b.rows[:i], b.rows[i+1:]...)

	shifted := make(PerRowErrors, len(b.errs))
	for idx, rowErrs := range b.errs {
		switch {
		case idx < i:
			shifted[idx] = rowErrs
		case idx > i:
			shifted[idx-1] = rowErrs
		}
	}
	b.errs = shifted
	return nil
}

// EditCell sets one cell's value and immediately re-validates that cell.
// A blank value is stored as null. Only the edited cell's error is touched;
// cross-row duplicate-key errors are refreshed on the next full pass.
func (b *RowBuffer) EditCell(i int, column, value string) error {
	if i < 0 || i >= len(b.rows) {
		return newError(KindSession, "row %d does not exist", i)
	}
	col, ok := b.table.Column(column)
	if !ok {
		return newError(KindSession, "column %q does not exist", column)
	}

	var cell *string
	if strings.TrimSpace(value) != "" {
		cell = &value
	}
	b.rows[i][column] = cell

	if err := ValidateValue(cell, col); err != nil {
		b.setError(i, column, err.Error())
	} else {
		b.clearError(i, column)
	}
	return nil
}

// ValidateAllRows runs the type validator on every cell and then the
// cross-row duplicate-key sweep; it replaces the whole error map with the
// result. Returns true iff no cell has an error.
func (b *RowBuffer) ValidateAllRows() bool {
	b.errs = make(PerRowErrors)

	for i, row := range b.rows {
		for _, col := range b.table.Columns {
			if err := ValidateValue(row[col.Name], col); err != nil {
				b.setError(i, col.Name, err.Error())
			}
		}
	}

	b.sweepDuplicateKeys()
	return len(b.errs) == 0
}

// sweepDuplicateKeys groups rows by each primary-key column's trimmed
// non-empty value and marks every member of a colliding group, naming the
// value and the 1-based row numbers that share it.
func (b *RowBuffer) sweepDuplicateKeys() {
	for _, pk := range b.table.PrimaryKeys() {
		groups := make(map[string][]int)
		for i, row := range b.rows {
			v := row.cellValue(pk.Name)
			if v == "" {
				continue
			}
			groups[v] = append(groups[v], i)
		}

		for value, members := range groups {
			if len(members) < 2 {
				continue
			}
			nums := make([]string, len(members))
			for j, idx := range members { // members are already in row order
				nums[j] = strconv.Itoa(idx + 1)
			}
			msg := fmt.Sprintf("Duplicate value %q for primary key %q (rows %s)",
				value, pk.Name, strings.Join(nums, ", "))
			for _, idx := range members {
				b.setError(idx, pk.Name, msg)
			}
		}
	}
}

func (b *RowBuffer) setError(i int, column, msg string) {
	if b.errs[i] == nil {
		b.errs[i] = make(RowErrors)
	}
	b.errs[i][column] = msg
}

func (b *RowBuffer) clearError(i int, column string) {
	if rowErrs, ok := b.errs[i]; ok {
		delete(rowErrs, column)
		if len(rowErrs) == 0 {
			delete(b.errs, i)
		}
	}
}
