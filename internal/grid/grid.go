// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package grid holds the client-side view model the response handler
// reconciles: the caller's state items, the current row selection, and an
// event emitter for the view's lifecycle signals. It is a state holder, not
// a widget; rendering stays with the caller.
package grid

import (
	"sync"

	"gridrows/internal/selection"
)

// View lifecycle events.
const (
	// EventReloaded fires when a full view refresh has completed.
	EventReloaded = "reloaded"
	// EventSelectionChanged fires when the selection is replaced or cleared.
	EventSelectionChanged = "selectionchange"
)

// Listener receives a fired event by name.
type Listener func(event string)

// Grid is the client-side view model.
type Grid struct {
	mu        sync.Mutex
	items     map[string]string
	sel       []selection.Tuple
	listeners map[string][]entry

	// RefreshFunc performs the view refresh. The view fires EventReloaded
	// when its refresh completes; the default refreshes synchronously.
	RefreshFunc func()
	// FetchRowsFunc re-fetches specific records to renew their visual
	// state, e.g. after their data changed server-side.
	FetchRowsFunc func(rows []selection.Tuple)
}

type entry struct {
	fn   Listener
	once bool
}

// New creates an empty grid.
func New() *Grid {
	g := &Grid{
		items:     make(map[string]string),
		listeners: make(map[string][]entry),
	}
	g.RefreshFunc = func() { g.Fire(EventReloaded) }
	return g
}

// SetItem stores a caller-state value.
func (g *Grid) SetItem(name, value string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.items[name] = value
}

// Item returns a caller-state value.
func (g *Grid) Item(name string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.items[name]
	return v, ok
}

// SetSelection replaces the current selection.
func (g *Grid) SetSelection(rows []selection.Tuple) {
	g.mu.Lock()
	g.sel = append([]selection.Tuple(nil), rows...)
	g.mu.Unlock()
	g.Fire(EventSelectionChanged)
}

// Selection returns a copy of the current selection.
func (g *Grid) Selection() []selection.Tuple {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]selection.Tuple(nil), g.sel...)
}

// ClearSelection empties the selection.
func (g *Grid) ClearSelection() {
	g.mu.Lock()
	g.sel = nil
	g.mu.Unlock()
	g.Fire(EventSelectionChanged)
}

// Refresh triggers a full view refresh via RefreshFunc.
func (g *Grid) Refresh() {
	if g.RefreshFunc != nil {
		g.RefreshFunc()
	}
}

// FetchRows re-fetches the given records via FetchRowsFunc.
func (g *Grid) FetchRows(rows []selection.Tuple) {
	if g.FetchRowsFunc != nil {
		g.FetchRowsFunc(rows)
	}
}

// On registers a listener for every occurrence of event.
func (g *Grid) On(event string, fn Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners[event] = append(g.listeners[event], entry{fn: fn})
}

// Once registers a listener that fires for the next occurrence of event
// only.
func (g *Grid) Once(event string, fn Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners[event] = append(g.listeners[event], entry{fn: fn, once: true})
}

// Fire notifies the event's listeners. One-shot listeners are removed
// before their callback runs.
func (g *Grid) Fire(event string) {
	g.mu.Lock()
	all := g.listeners[event]
	kept := all[:0:0]
	var run []Listener
	for _, e := range all {
		run = append(run, e.fn)
		if !e.once {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(g.listeners, event)
	} else {
		g.listeners[event] = kept
	}
	g.mu.Unlock()

	for _, fn := range run {
		fn(event)
	}
}
