// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package api defines the wire types shared by the GridRows client and
// server. The types are transport-agnostic JSON structures; the response
// side of the protocol is the envelope package's Envelope.
package api

import "gridrows/internal/engine"

// Mode selects which rows a process request targets.
type Mode string

const (
	// ModeSelection processes the explicitly selected rows carried in the
	// request's selection payload.
	ModeSelection Mode = "selection"
	// ModeFiltered processes every row matching the caller's active filter.
	ModeFiltered Mode = "filtered"
)

// Filter is the caller's active base predicate.
type Filter struct {
	Where string `json:"where"`
	Args  []any  `json:"args,omitempty"`
}

// Request is one process invocation.
type Request struct {
	// Action names the server-defined mutation to apply.
	Action string `json:"action"`
	Mode   Mode   `json:"mode"`
	// Selection carries the encoded identifier tuples, chunked across
	// multiple parts (selection mode only).
	Selection []string `json:"selection,omitempty"`
	// Filter is the caller's active filter, applied in both modes.
	Filter *Filter `json:"filter,omitempty"`
	// ItemsToSubmit are caller-state values made available to the mutation.
	ItemsToSubmit []engine.Item `json:"itemsToSubmit,omitempty"`
	// ItemsToReturn names the state values to propagate back.
	ItemsToReturn []string `json:"itemsToReturn,omitempty"`
	// PerformSubstitutions resolves state-item message tokens server-side.
	// Error-identity tokens always resolve server-side.
	PerformSubstitutions bool `json:"performSubstitutions"`
	// EscapeMessage HTML-escapes the response message and title.
	EscapeMessage bool `json:"escapeMessage"`
}
