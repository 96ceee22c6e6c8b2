// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package envelope builds the single structured response returned for every
// process request: status, message, propagated items, and control signals.
// One envelope is composed per request, after the row processor has reached
// a terminal state.
package envelope

import (
	"html"
	"strings"

	"gridrows/internal/engine"
)

// Status is the terminal outcome of a request.
type Status string

const (
	// StatusSuccess means every row was processed and committed.
	StatusSuccess Status = "success"
	// StatusError means processing failed and was rolled back.
	StatusError Status = "error"
)

// Substitution tokens usable in configured error messages.
const (
	TokenCode        = "#SQLCODE#"
	TokenMessage     = "#SQLERRM#"
	TokenMessageText = "#SQLERRM_TEXT#"
)

// Envelope is the wire response of one process request.
type Envelope struct {
	Status        Status        `json:"status"`
	Message       string        `json:"message,omitempty"`
	MessageTitle  string        `json:"messageTitle,omitempty"`
	MessageType   string        `json:"messageType,omitempty"`
	ItemsToReturn []engine.Item `json:"itemsToReturn,omitempty"`
	CancelActions bool          `json:"cancelActions"`
	EventName     string        `json:"eventName,omitempty"`
}

// Options configure message composition for one request.
type Options struct {
	// SuccessMessage is shown when processing succeeds and the fragment set
	// no override. Empty means no message.
	SuccessMessage string
	// ErrorMessage is shown when processing fails and the fragment set no
	// override. Error-identity tokens are always substituted into it; the
	// envelope carries no error identity, so only the server can resolve
	// them.
	ErrorMessage string
	// MessageTitle is the default notification title.
	MessageTitle string
	// EmptySelectionMessage is shown for zero-tuple selections, but only
	// when ShowEmptyMessage is set.
	EmptySelectionMessage string
	// ShowEmptyMessage enables the zero-selection message explicitly.
	ShowEmptyMessage bool
	// Substitute resolves state-item tokens (#ITEM#) server-side. When
	// false those travel to the client untouched for client-side templating.
	// Error-identity tokens are exempt and resolve regardless.
	Substitute bool
	// Escape HTML-escapes message and title. Orthogonal to Substitute.
	Escape bool
}

// Compose packages a processing outcome into the response envelope.
// itemsToReturn names the state items whose current values are propagated
// back to the caller.
func Compose(out engine.Outcome, opts Options, st *engine.State, itemsToReturn []string) Envelope {
	if st == nil {
		st = engine.NewState(nil)
	}

	env := Envelope{
		Status:      StatusSuccess,
		MessageType: st.Signals.MessageType,
		EventName:   st.Signals.EventName,
	}

	msg := st.Signals.Message
	title := st.Signals.MessageTitle
	if title == "" {
		title = opts.MessageTitle
	}

	if out.Err != nil {
		env.Status = StatusError
		if msg == "" {
			msg = opts.ErrorMessage
		}
	} else if msg == "" {
		msg = opts.SuccessMessage
	}

	msg = substitute(msg, out.Identity, st, out.Err != nil, opts.Substitute)
	title = substitute(title, out.Identity, st, out.Err != nil, opts.Substitute)
	if opts.Escape {
		msg = html.EscapeString(msg)
		title = html.EscapeString(title)
	}
	env.Message = msg
	env.MessageTitle = title

	env.CancelActions = env.Status == StatusError || st.Signals.Cancel.Requested()

	for _, name := range itemsToReturn {
		v, _ := st.Get(name)
		env.ItemsToReturn = append(env.ItemsToReturn, engine.Item{Name: name, Value: v})
	}
	return env
}

// NoSelection composes the short-circuit envelope for a zero-tuple
// selection: no processing happened, nothing to cancel, and a message only
// when explicitly configured.
func NoSelection(opts Options) Envelope {
	env := Envelope{Status: StatusSuccess}
	if opts.ShowEmptyMessage && opts.EmptySelectionMessage != "" {
		env.Message = opts.EmptySelectionMessage
		env.MessageType = "warning"
		if opts.Escape {
			env.Message = html.EscapeString(env.Message)
		}
	}
	return env
}

// substitute resolves error-identity and state-item tokens in a single
// pass, so resolved values are never rescanned for further tokens.
// Identity tokens resolve on the error branch only but unconditionally
// there; the items toggle is the caller's Substitute option.
func substitute(s string, id engine.ErrorIdentity, st *engine.State, identity, items bool) string {
	if s == "" || !strings.Contains(s, "#") {
		return s
	}
	var pairs []string
	if identity {
		pairs = append(pairs,
			TokenCode, id.Code,
			TokenMessage, id.Message,
			TokenMessageText, id.Text,
		)
	}
	if items {
		for _, it := range st.Items() {
			pairs = append(pairs, "#"+it.Name+"#", it.Value)
		}
	}
	if len(pairs) == 0 {
		return s
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
