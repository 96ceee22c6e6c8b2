// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

package grid

import (
	"reflect"
	"testing"

	"gridrows/internal/selection"
)

func TestSelectionCopySemantics(t *testing.T) {
	g := New()
	rows := []selection.Tuple{{"1"}, {"2"}}
	g.SetSelection(rows)

	got := g.Selection()
	if !reflect.DeepEqual(got, rows) {
		t.Fatalf("Selection() = %v, want %v", got, rows)
	}
	got[0] = selection.Tuple{"mutated"}
	if reflect.DeepEqual(g.Selection()[0], got[0]) {
		t.Error("Selection() must return a copy")
	}
}

func TestOnFiresEveryTime(t *testing.T) {
	g := New()
	count := 0
	g.On(EventReloaded, func(string) { count++ })
	g.Fire(EventReloaded)
	g.Fire(EventReloaded)
	if count != 2 {
		t.Errorf("listener ran %d times, want 2", count)
	}
}

func TestOnceFiresOnce(t *testing.T) {
	g := New()
	count := 0
	g.Once(EventReloaded, func(string) { count++ })
	g.Fire(EventReloaded)
	g.Fire(EventReloaded)
	if count != 1 {
		t.Errorf("one-shot listener ran %d times, want 1", count)
	}
}

func TestOnceCanReenterGrid(t *testing.T) {
	// A one-shot reload listener clearing the selection must not deadlock
	// even though ClearSelection fires its own event.
	g := New()
	g.SetSelection([]selection.Tuple{{"1"}})
	g.Once(EventReloaded, func(string) { g.ClearSelection() })
	g.Refresh()
	if len(g.Selection()) != 0 {
		t.Error("selection not cleared by reload listener")
	}
}

func TestClearSelectionFiresEvent(t *testing.T) {
	g := New()
	fired := false
	g.On(EventSelectionChanged, func(string) { fired = true })
	g.ClearSelection()
	if !fired {
		t.Error("EventSelectionChanged not fired")
	}
}

func TestItems(t *testing.T) {
	g := New()
	g.SetItem("P1_TOTAL", "42")
	if v, ok := g.Item("P1_TOTAL"); !ok || v != "42" {
		t.Errorf("Item() = %q,%v", v, ok)
	}
	if _, ok := g.Item("missing"); ok {
		t.Error("missing item reported present")
	}
}
