// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package collection implements the materialized selection: an ephemeral,
// request-scoped store that holds the decoded identifier tuples of one
// process request. Each tuple receives a fresh 1-based sequence id and its
// columns are stored positionally under fixed names (C001..C0NN) so the
// context builder can reference them when constructing the key predicate.
//
// A collection never outlives the request that created it.
package collection

import (
	"fmt"

	"gridrows/internal/selection"
)

// Collection is a materialized selection. The zero value is not usable;
// create one with New.
type Collection struct {
	columnCount int
	entries     []Entry
}

// Entry is one materialized tuple with its sequence id.
type Entry struct {
	Seq    int
	Values selection.Tuple
}

// New creates an empty collection for tuples of columnCount identifier
// columns. columnCount must be at least 1.
func New(columnCount int) (*Collection, error) {
	if columnCount < 1 {
		return nil, fmt.Errorf("collection requires at least one identifier column, got %d", columnCount)
	}
	return &Collection{columnCount: columnCount}, nil
}

// Materialize builds a collection holding all decoded tuples. Every tuple
// must carry exactly columnCount values.
func Materialize(tuples []selection.Tuple, columnCount int) (*Collection, error) {
	c, err := New(columnCount)
	if err != nil {
		return nil, err
	}
	for _, t := range tuples {
		if err := c.Add(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends one tuple, assigning it the next sequence id.
func (c *Collection) Add(t selection.Tuple) error {
	if len(t) != c.columnCount {
		return fmt.Errorf("tuple has %d values, dataset declares %d identifier columns", len(t), c.columnCount)
	}
	c.entries = append(c.entries, Entry{Seq: len(c.entries) + 1, Values: t})
	return nil
}

// Len returns the number of materialized tuples.
func (c *Collection) Len() int { return len(c.entries) }

// ColumnCount returns the declared identifier column count.
func (c *Collection) ColumnCount() int { return c.columnCount }

// Entries returns the materialized entries in insertion order.
func (c *Collection) Entries() []Entry { return c.entries }

// Tuples returns the stored tuples in insertion order.
func (c *Collection) Tuples() []selection.Tuple {
	out := make([]selection.Tuple, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Values
	}
	return out
}

// ColumnName returns the fixed positional name of column i (0-based),
// e.g. C001 for the first identifier column.
func (c *Collection) ColumnName(i int) string {
	return fmt.Sprintf("C%03d", i+1)
}
