// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pgds implements dataset.Dataset over a PostgreSQL table using a
// pgx connection pool. Metadata (columns and primary key) comes from
// information_schema on a pooled connection that is released before the
// request's real transaction begins. Selected rows are buffered up front so
// per-row mutation statements can reuse the transaction's connection.
package pgds

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gridrows/internal/dataset"
)

// Dataset exposes one PostgreSQL table. The table name may be
// schema-qualified ("app.orders"); unqualified names resolve to public.
type Dataset struct {
	pool  *pgxpool.Pool
	table string
}

// New creates a dataset over the given table.
func New(pool *pgxpool.Pool, table string) *Dataset {
	return &Dataset{pool: pool, table: table}
}

// Metadata implements dataset.Dataset. The inspection connection is
// released before returning, so the iteration transaction opens fresh.
func (d *Dataset) Metadata(ctx context.Context) (dataset.Metadata, error) {
	meta := dataset.Metadata{Name: d.table}

	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return meta, err
	}
	defer conn.Release()

	schema, table := splitTableName(d.table)

	rows, err := conn.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return meta, err
	}
	meta.Columns, err = collectStrings(rows)
	if err != nil {
		return meta, err
	}
	if len(meta.Columns) == 0 {
		return meta, fmt.Errorf("table %s.%s not found", schema, table)
	}

	rows, err = conn.Query(ctx, `
		SELECT kc.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kc ON tc.constraint_name = kc.constraint_name
		WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kc.ordinal_position`, schema, table)
	if err != nil {
		return meta, err
	}
	meta.IdentifierColumns, err = collectStrings(rows)
	if err != nil {
		return meta, err
	}
	return meta, nil
}

// Begin implements dataset.Dataset.
func (d *Dataset) Begin(ctx context.Context) (dataset.Tx, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, err
	}
	return &Tx{conn: conn, tx: tx, table: d.table}, nil
}

// Tx is a pgds transaction over one pooled connection.
type Tx struct {
	conn  *pgxpool.Conn
	tx    pgx.Tx
	table string
	done  bool
}

// Select implements dataset.Tx. The result set is read fully before the
// cursor is returned.
func (t *Tx) Select(ctx context.Context, f dataset.Filter) (dataset.Cursor, error) {
	var meta dataset.Metadata
	if f.Keys != nil {
		// Identifier columns are needed to render the key predicate; the
		// caller validated them during metadata discovery.
		var err error
		meta, err = identifierColumns(ctx, t.tx, t.table)
		if err != nil {
			return nil, err
		}
		if len(meta.IdentifierColumns) == 0 {
			return nil, dataset.ErrNoIdentifierColumns
		}
	}

	sql, args, err := buildSelect(t.table, meta.IdentifierColumns, f)
	if err != nil {
		return nil, err
	}
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return bufferRows(rows)
}

// Exec implements dataset.Tx. The statement binds named arguments (@name)
// and any rows it returns are collected for the caller.
func (t *Tx) Exec(ctx context.Context, stmt string, args map[string]any) ([]dataset.Row, error) {
	rows, err := t.tx.Query(ctx, stmt, pgx.NamedArgs(args))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cur, err := bufferRows(rows)
	if err != nil {
		return nil, err
	}
	return cur.rows, nil
}

// Commit implements dataset.Tx and releases the connection.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.conn.Release()
	return t.tx.Commit(ctx)
}

// Rollback implements dataset.Tx. Rollback after Commit or a second
// Rollback is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.conn.Release()
	if err := t.tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		return err
	}
	return nil
}

// identifierColumns loads just the primary key columns inside the
// transaction.
func identifierColumns(ctx context.Context, q pgx.Tx, table string) (dataset.Metadata, error) {
	schema, name := splitTableName(table)
	rows, err := q.Query(ctx, `
		SELECT kc.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kc ON tc.constraint_name = kc.constraint_name
		WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kc.ordinal_position`, schema, name)
	if err != nil {
		return dataset.Metadata{}, err
	}
	cols, err := collectStrings(rows)
	if err != nil {
		return dataset.Metadata{}, err
	}
	return dataset.Metadata{Name: table, IdentifierColumns: cols}, nil
}

// buildSelect renders the iteration query: the caller's base predicate with
// its original $n placeholders, plus the key predicate with placeholders
// renumbered after the base args.
func buildSelect(table string, identifierColumns []string, f dataset.Filter) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(quoteTable(table))

	args := append([]any(nil), f.Args...)
	var conds []string
	if strings.TrimSpace(f.Where) != "" {
		conds = append(conds, "("+f.Where+")")
	}
	if f.Keys != nil {
		if f.Keys.Len() == 0 {
			conds = append(conds, "false")
		} else {
			// Every materialized tuple carries the collection's declared
			// width, so one alignment check covers the whole selection.
			if f.Keys.ColumnCount() != len(identifierColumns) {
				return "", nil, fmt.Errorf("selection columns %s..%s do not align with the table's %d identifier columns",
					f.Keys.ColumnName(0), f.Keys.ColumnName(f.Keys.ColumnCount()-1), len(identifierColumns))
			}
			quoted := make([]string, len(identifierColumns))
			for i, c := range identifierColumns {
				quoted[i] = quoteIdent(c)
			}
			var tuples []string
			for _, e := range f.Keys.Entries() {
				ph := make([]string, len(e.Values))
				for i, v := range e.Values {
					args = append(args, v)
					ph[i] = fmt.Sprintf("$%d", len(args))
				}
				tuples = append(tuples, "("+strings.Join(ph, ", ")+")")
			}
			conds = append(conds, fmt.Sprintf("(%s) IN (%s)", strings.Join(quoted, ", "), strings.Join(tuples, ", ")))
		}
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	return b.String(), args, nil
}

// collectStrings drains a single-column result set into a string slice.
func collectStrings(rows pgx.Rows) ([]string, error) {
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// bufferRows drains a pgx result set into an in-memory cursor.
func bufferRows(rows pgx.Rows) (*cursor, error) {
	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = string(fd.Name)
	}
	var out []dataset.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, dataset.Row{Columns: cols, Values: vals})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &cursor{rows: out}, nil
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

// Close is idempotent; the underlying pgx rows were already drained.
func (c *cursor) Close() error {
	c.closed = true
	return nil
}

// splitTableName splits "schema.table", defaulting the schema to public.
func splitTableName(table string) (string, string) {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "public", table
}

func quoteTable(table string) string {
	schema, name := splitTableName(table)
	return quoteIdent(schema) + "." + quoteIdent(name)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
