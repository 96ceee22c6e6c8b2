// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pgds

import (
	"reflect"
	"testing"

	"gridrows/internal/collection"
	"gridrows/internal/dataset"
	"gridrows/internal/selection"
)

func TestBuildSelect(t *testing.T) {
	keys, err := collection.Materialize([]selection.Tuple{{"1", "A"}, {"2", "B"}}, 2)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		table    string
		idCols   []string
		filter   dataset.Filter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filter",
			table:   "orders",
			filter:  dataset.Filter{},
			wantSQL: `SELECT * FROM "public"."orders"`,
		},
		{
			name:     "base predicate only",
			table:    "app.orders",
			filter:   dataset.Filter{Where: "region = $1", Args: []any{"EMEA"}},
			wantSQL:  `SELECT * FROM "app"."orders" WHERE (region = $1)`,
			wantArgs: []any{"EMEA"},
		},
		{
			name:     "keys only",
			table:    "orders",
			idCols:   []string{"id", "code"},
			filter:   dataset.Filter{Keys: keys},
			wantSQL:  `SELECT * FROM "public"."orders" WHERE ("id", "code") IN (($1, $2), ($3, $4))`,
			wantArgs: []any{"1", "A", "2", "B"},
		},
		{
			name:     "base predicate and keys renumber placeholders",
			table:    "orders",
			idCols:   []string{"id", "code"},
			filter:   dataset.Filter{Where: "region = $1", Args: []any{"EMEA"}, Keys: keys},
			wantSQL:  `SELECT * FROM "public"."orders" WHERE (region = $1) AND ("id", "code") IN (($2, $3), ($4, $5))`,
			wantArgs: []any{"EMEA", "1", "A", "2", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := buildSelect(tt.table, tt.idCols, tt.filter)
			if err != nil {
				t.Fatalf("buildSelect() error = %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("sql = %s\nwant %s", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) && !(len(args) == 0 && len(tt.wantArgs) == 0) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestBuildSelectEmptyKeys(t *testing.T) {
	keys, _ := collection.New(1)
	sql, _, err := buildSelect("orders", []string{"id"}, dataset.Filter{Keys: keys})
	if err != nil {
		t.Fatal(err)
	}
	if sql != `SELECT * FROM "public"."orders" WHERE false` {
		t.Errorf("sql = %s", sql)
	}
}

func TestBuildSelectTupleMismatch(t *testing.T) {
	keys, _ := collection.Materialize([]selection.Tuple{{"1", "A"}}, 2)
	if _, _, err := buildSelect("orders", []string{"id"}, dataset.Filter{Keys: keys}); err == nil {
		t.Error("expected error for tuple/identifier column count mismatch")
	}
}

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"id", `"id"`},
		{`we"ird`, `"we""ird"`},
	}
	for _, tt := range tests {
		if got := quoteIdent(tt.in); got != tt.want {
			t.Errorf("quoteIdent(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
