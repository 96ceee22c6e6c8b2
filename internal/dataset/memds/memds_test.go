// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

package memds

import (
	"context"
	"reflect"
	"testing"

	"gridrows/internal/collection"
	"gridrows/internal/dataset"
	"gridrows/internal/selection"
)

func seeded() *Table {
	t := New("orders", []string{"id", "region", "status"}, []string{"id"})
	t.Insert(1, "EMEA", "new")
	t.Insert(2, "EMEA", "new")
	t.Insert(3, "APAC", "new")
	t.Insert(4, "EMEA", "new")
	return t
}

func TestSelectBaseFilter(t *testing.T) {
	tbl := seeded()
	tx, err := tbl.Begin(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback(context.Background())

	cur, err := tx.Select(context.Background(), dataset.Filter{Where: "region = $1", Args: []any{"EMEA"}})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	defer cur.Close()

	var ids []any
	for cur.Next() {
		v, _ := cur.Row().Get("id")
		ids = append(ids, v)
	}
	if !reflect.DeepEqual(ids, []any{1, 2, 4}) {
		t.Errorf("ids = %v, want [1 2 4]", ids)
	}
}

func TestSelectKeyPredicate(t *testing.T) {
	tbl := seeded()
	keys, err := collection.Materialize([]selection.Tuple{{"3"}, {"1"}}, 1)
	if err != nil {
		t.Fatal(err)
	}
	tx, _ := tbl.Begin(context.Background())
	defer tx.Rollback(context.Background())

	cur, err := tx.Select(context.Background(), dataset.Filter{Keys: keys})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	defer cur.Close()

	var ids []any
	for cur.Next() {
		v, _ := cur.Row().Get("id")
		ids = append(ids, v)
	}
	// Rows come back in dataset order, not selection order.
	if !reflect.DeepEqual(ids, []any{1, 3}) {
		t.Errorf("ids = %v, want [1 3]", ids)
	}
}

func TestSelectKeyWidthMismatch(t *testing.T) {
	tbl := New("orders", []string{"id", "code", "status"}, []string{"id", "code"})
	tbl.Insert(1, "A", "new")

	keys, err := collection.Materialize([]selection.Tuple{{"1"}}, 1)
	if err != nil {
		t.Fatal(err)
	}
	tx, _ := tbl.Begin(context.Background())
	defer tx.Rollback(context.Background())

	if _, err := tx.Select(context.Background(), dataset.Filter{Keys: keys}); err == nil {
		t.Error("expected error for selection narrower than the identifier columns")
	}
}

func TestRollbackRestoresSnapshot(t *testing.T) {
	tbl := seeded()
	before := tbl.Rows()

	tx, _ := tbl.Begin(context.Background())
	mtx := tx.(*Tx)
	row := dataset.Row{Columns: []string{"id"}, Values: []any{2}}
	if err := mtx.Update(row, "status", "done"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := tx.Rollback(context.Background()); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if !reflect.DeepEqual(tbl.Rows(), before) {
		t.Errorf("rows after rollback = %v, want %v", tbl.Rows(), before)
	}
	// Rollback after rollback is a no-op.
	if err := tx.Rollback(context.Background()); err != nil {
		t.Errorf("second Rollback() error = %v", err)
	}
}

func TestCommitKeepsChanges(t *testing.T) {
	tbl := seeded()
	tx, _ := tbl.Begin(context.Background())
	mtx := tx.(*Tx)
	row := dataset.Row{Columns: []string{"id"}, Values: []any{2}}
	if err := mtx.Update(row, "status", "done"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	rows := tbl.Rows()
	if rows[1][2] != "done" {
		t.Errorf("row 2 status = %v, want done", rows[1][2])
	}
	// Rollback after commit must not undo anything.
	if err := tx.Rollback(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Rows()[1][2]; got != "done" {
		t.Errorf("row 2 status after late rollback = %v, want done", got)
	}
}

func TestCursorCloseIdempotent(t *testing.T) {
	tbl := seeded()
	tx, _ := tbl.Begin(context.Background())
	defer tx.Rollback(context.Background())

	cur, err := tx.Select(context.Background(), dataset.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if err := cur.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := cur.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if cur.Next() {
		t.Error("Next() after Close() = true")
	}
}

func TestParseEquality(t *testing.T) {
	tests := []struct {
		where   string
		col     string
		argIdx  int
		wantErr bool
	}{
		{where: "region = $1", col: "region", argIdx: 0},
		{where: "status=$2", col: "status", argIdx: 1},
		{where: "region", wantErr: true},
		{where: "region = 'EMEA'", wantErr: true},
		{where: " = $1", wantErr: true},
	}
	for _, tt := range tests {
		col, idx, err := parseEquality(tt.where)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseEquality(%q) expected error", tt.where)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseEquality(%q) error = %v", tt.where, err)
			continue
		}
		if col != tt.col || idx != tt.argIdx {
			t.Errorf("parseEquality(%q) = %q,%d want %q,%d", tt.where, col, idx, tt.col, tt.argIdx)
		}
	}
}
