// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dataset defines the abstraction the row processor iterates over:
// a tabular dataset that can report its metadata, open a transactional
// row cursor constrained by a filter, and execute per-row mutation
// statements inside that transaction.
//
// Implementations may call a real database (pgds) or hold rows in memory
// for tests and embedding (memds).
package dataset

import (
	"context"
	"errors"

	"gridrows/internal/collection"
)

// ErrNoIdentifierColumns is returned when a selection-scoped operation is
// attempted on a dataset that declares no identifier columns. This is a
// configuration error: the operation cannot be scoped to a selection.
var ErrNoIdentifierColumns = errors.New("dataset declares no identifier columns")

// Metadata describes a dataset.
type Metadata struct {
	// Name is the dataset (table) name.
	Name string
	// Columns lists all column names in dataset order.
	Columns []string
	// IdentifierColumns lists the columns that uniquely identify a record,
	// in declaration order. The first one is the join anchor for the key
	// predicate.
	IdentifierColumns []string
}

// Filter constrains a row iteration.
type Filter struct {
	// Where is the caller's active base predicate, empty for none. Its
	// placeholder syntax is implementation-defined.
	Where string
	// Args are the base predicate's bind values.
	Args []any
	// Keys, when non-nil, additionally restricts rows to those whose
	// identifier columns match an entry of the materialized selection.
	Keys *collection.Collection
}

// Dataset is a tabular data source.
type Dataset interface {
	// Metadata inspects the dataset. Any resources used for inspection are
	// released before the call returns, so the real iteration opens fresh.
	Metadata(ctx context.Context) (Metadata, error)
	// Begin opens the transaction all row reads and mutations of one
	// request run in.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single request's transaction. Either Commit or Rollback must be
// called exactly once; Rollback after Commit is a no-op.
type Tx interface {
	// Select opens a cursor over the rows matching f.
	Select(ctx context.Context, f Filter) (Cursor, error)
	// Exec runs a mutation statement with named arguments inside the
	// transaction and returns any rows the statement produced.
	Exec(ctx context.Context, stmt string, args map[string]any) ([]Row, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Cursor iterates rows. Close is idempotent.
type Cursor interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// Row is one materialized row.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column (case-sensitive).
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map returns the row as a column-keyed map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}
