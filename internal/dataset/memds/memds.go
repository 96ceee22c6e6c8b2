// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package memds implements dataset.Dataset over an in-memory table with
// snapshot-based transactions. It backs the package tests and is useful for
// embedding the engine without a database.
//
// The base predicate dialect is a single equality, "column = $1", so the
// same filter strings work against memds and pgds.
package memds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gridrows/internal/dataset"
)

// ErrStatementsUnsupported is returned by Tx.Exec; fragments running against
// memds mutate rows through Tx.Update instead.
var ErrStatementsUnsupported = errors.New("memds: mutation statements are not supported, use Tx.Update")

// Table is an in-memory dataset.
type Table struct {
	mu   sync.Mutex
	meta dataset.Metadata
	rows [][]any
}

// New creates a table with the given columns and identifier columns.
func New(name string, columns, identifierColumns []string) *Table {
	return &Table{meta: dataset.Metadata{
		Name:              name,
		Columns:           columns,
		IdentifierColumns: identifierColumns,
	}}
}

// Insert appends one row. Values must align with the table's columns.
func (t *Table) Insert(values ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row := make([]any, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
}

// Rows returns a deep copy of the current table contents.
func (t *Table) Rows() [][]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyRows(t.rows)
}

// Metadata implements dataset.Dataset.
func (t *Table) Metadata(ctx context.Context) (dataset.Metadata, error) {
	return t.meta, nil
}

// Begin implements dataset.Dataset. The transaction holds the table lock
// until Commit or Rollback, and rolls back by restoring the begin-time
// snapshot.
func (t *Table) Begin(ctx context.Context) (dataset.Tx, error) {
	t.mu.Lock()
	return &Tx{table: t, snapshot: copyRows(t.rows)}, nil
}

// Tx is a memds transaction.
type Tx struct {
	table    *Table
	snapshot [][]any
	done     bool
}

// Select implements dataset.Tx.
func (tx *Tx) Select(ctx context.Context, f dataset.Filter) (dataset.Cursor, error) {
	match, err := compileWhere(tx.table.meta, f)
	if err != nil {
		return nil, err
	}
	var rows []dataset.Row
	for _, r := range tx.table.rows {
		row := dataset.Row{Columns: tx.table.meta.Columns, Values: r}
		if match(row) {
			vals := make([]any, len(r))
			copy(vals, r)
			rows = append(rows, dataset.Row{Columns: tx.table.meta.Columns, Values: vals})
		}
	}
	return &cursor{rows: rows}, nil
}

// Exec implements dataset.Tx. memds has no statement dialect.
func (tx *Tx) Exec(ctx context.Context, stmt string, args map[string]any) ([]dataset.Row, error) {
	return nil, ErrStatementsUnsupported
}

// Update sets a column of the row identified by row's identifier columns.
func (tx *Tx) Update(row dataset.Row, column string, value any) error {
	ci := columnIndex(tx.table.meta.Columns, column)
	if ci < 0 {
		return fmt.Errorf("memds: no column %q", column)
	}
	for _, r := range tx.table.rows {
		if identifiersMatch(tx.table.meta, r, row) {
			r[ci] = value
			return nil
		}
	}
	return fmt.Errorf("memds: row not found")
}

// Commit implements dataset.Tx.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.snapshot = nil
	tx.table.mu.Unlock()
	return nil
}

// Rollback implements dataset.Tx. Rollback after Commit is a no-op.
func (tx *Tx) Rollback(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.table.rows = tx.snapshot
	tx.snapshot = nil
	tx.table.mu.Unlock()
	return nil
}

type cursor struct {
	rows   []dataset.Row
	pos    int
	closed bool
}

func (c *cursor) Next() bool {
	if c.closed || c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *cursor) Row() dataset.Row { return c.rows[c.pos-1] }
func (c *cursor) Err() error       { return nil }

// Close is idempotent.
func (c *cursor) Close() error {
	c.closed = true
	return nil
}

// compileWhere builds a row predicate from the filter's base equality and
// key restriction.
func compileWhere(meta dataset.Metadata, f dataset.Filter) (func(dataset.Row) bool, error) {
	base := func(dataset.Row) bool { return true }
	if strings.TrimSpace(f.Where) != "" {
		col, argIdx, err := parseEquality(f.Where)
		if err != nil {
			return nil, err
		}
		if argIdx >= len(f.Args) {
			return nil, fmt.Errorf("memds: predicate references $%d but only %d args given", argIdx+1, len(f.Args))
		}
		want := f.Args[argIdx]
		base = func(r dataset.Row) bool {
			v, ok := r.Get(col)
			return ok && fmt.Sprint(v) == fmt.Sprint(want)
		}
	}

	if f.Keys == nil {
		return base, nil
	}
	if len(meta.IdentifierColumns) == 0 {
		return nil, dataset.ErrNoIdentifierColumns
	}
	if f.Keys.ColumnCount() != len(meta.IdentifierColumns) {
		return nil, fmt.Errorf("memds: selection columns %s..%s do not align with the table's %d identifier columns",
			f.Keys.ColumnName(0), f.Keys.ColumnName(f.Keys.ColumnCount()-1), len(meta.IdentifierColumns))
	}
	keys := make(map[string]struct{}, f.Keys.Len())
	for _, e := range f.Keys.Entries() {
		keys[strings.Join(e.Values, "\x00")] = struct{}{}
	}
	return func(r dataset.Row) bool {
		if !base(r) {
			return false
		}
		parts := make([]string, len(meta.IdentifierColumns))
		for i, c := range meta.IdentifierColumns {
			v, ok := r.Get(c)
			if !ok {
				return false
			}
			parts[i] = fmt.Sprint(v)
		}
		_, ok := keys[strings.Join(parts, "\x00")]
		return ok
	}, nil
}

// parseEquality parses "column = $n" and returns the column and 0-based arg
// index.
func parseEquality(where string) (string, int, error) {
	parts := strings.SplitN(where, "=", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("memds: unsupported predicate %q (want \"column = $n\")", where)
	}
	col := strings.TrimSpace(parts[0])
	ref := strings.TrimSpace(parts[1])
	if col == "" || !strings.HasPrefix(ref, "$") {
		return "", 0, fmt.Errorf("memds: unsupported predicate %q (want \"column = $n\")", where)
	}
	var n int
	if _, err := fmt.Sscanf(ref, "$%d", &n); err != nil || n < 1 {
		return "", 0, fmt.Errorf("memds: bad placeholder in predicate %q", where)
	}
	return col, n - 1, nil
}

func identifiersMatch(meta dataset.Metadata, stored []any, row dataset.Row) bool {
	for _, c := range meta.IdentifierColumns {
		ci := columnIndex(meta.Columns, c)
		if ci < 0 {
			return false
		}
		v, ok := row.Get(c)
		if !ok || fmt.Sprint(stored[ci]) != fmt.Sprint(v) {
			return false
		}
	}
	return len(meta.IdentifierColumns) > 0
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}

func copyRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		c := make([]any, len(r))
		copy(c, r)
		out[i] = c
	}
	return out
}
