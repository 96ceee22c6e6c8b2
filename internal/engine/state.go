// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

package engine

import "strings"

// Item is a named caller-state value travelling with a request.
type Item struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// State holds one request's caller-state items and the mutation fragment's
// out-of-band signals. A State is created per request and threaded through
// every fragment invocation; nothing here is shared between requests.
type State struct {
	items map[string]string
	order []string

	// Signals collects the fragment's out-of-band values for the composer.
	Signals Signals
}

// Signals are the out-of-band values a fragment may set while processing.
// They override the configured messages and drive cancellation and event
// raising for this request only.
type Signals struct {
	Message      string
	MessageTitle string
	MessageType  string
	Cancel       Cancel
	EventName    string
}

// Cancel is the fragment's decision on whether downstream actions of the
// caller's sequence should be skipped.
type Cancel int

const (
	// CancelNone lets the caller's action sequence continue.
	CancelNone Cancel = iota
	// CancelRequested skips the remaining actions of the caller's sequence.
	CancelRequested
)

// ParseCancel maps the legacy cancellation vocabulary ("cancel", "stop",
// "true", case-insensitive) onto a Cancel decision. Anything else means no
// cancellation.
func ParseCancel(s string) Cancel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cancel", "stop", "true":
		return CancelRequested
	}
	return CancelNone
}

// Requested reports whether cancellation was requested.
func (c Cancel) Requested() bool { return c == CancelRequested }

// NewState creates a State seeded with the submitted items.
func NewState(items []Item) *State {
	s := &State{items: make(map[string]string, len(items))}
	for _, it := range items {
		s.Set(it.Name, it.Value)
	}
	return s
}

// Get returns the value of a state item.
func (s *State) Get(name string) (string, bool) {
	v, ok := s.items[name]
	return v, ok
}

// Set stores a state item, preserving first-set order.
func (s *State) Set(name, value string) {
	if _, ok := s.items[name]; !ok {
		s.order = append(s.order, name)
	}
	s.items[name] = value
}

// Items returns all state items in first-set order.
func (s *State) Items() []Item {
	out := make([]Item, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, Item{Name: n, Value: s.items[n]})
	}
	return out
}
