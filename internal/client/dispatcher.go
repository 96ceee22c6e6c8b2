// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"context"
	"time"

	"gridrows/internal/api"
	"gridrows/internal/engine"
	"gridrows/internal/envelope"
	"gridrows/internal/grid"
	"gridrows/internal/selection"
)

// Options control one dispatch: what to process and how to reconcile the
// grid afterwards.
type Options struct {
	// Action names the server-defined mutation.
	Action string
	// Mode selects the target rows.
	Mode api.Mode
	// Filter is the caller's active filter.
	Filter *api.Filter
	// ItemsToSubmit names grid items whose values travel with the request.
	ItemsToSubmit []string
	// ItemsToReturn names state values the server propagates back.
	ItemsToReturn []string

	// RefreshSelection re-fetches the originally selected records after a
	// successful round trip.
	RefreshSelection bool
	// RefreshGrid refreshes the whole view.
	RefreshGrid bool
	// RemoveSelection clears the selection after processing. Combined with
	// RefreshGrid the clear waits for the view's reload signal.
	RemoveSelection bool

	// PerformSubstitutions and EscapeMessage are forwarded to the server.
	PerformSubstitutions bool
	EscapeMessage        bool

	// ShowEmptyMessage enables EmptySelectionMessage for zero-row
	// selections.
	ShowEmptyMessage bool
	// EmptySelectionMessage is shown when a selection-mode dispatch finds
	// nothing selected.
	EmptySelectionMessage string

	// DismissAfter auto-dismisses the notification; zero keeps it up.
	DismissAfter time.Duration
}

// Notification is a rendered message for the caller.
type Notification struct {
	// Type is success, error, warning or info.
	Type         string
	Title        string
	Message      string
	DismissAfter time.Duration
}

// Notifier renders notifications.
type Notifier interface {
	Notify(n Notification)
}

// Dispatcher issues process requests and reconciles the grid from the
// response.
type Dispatcher struct {
	api      API
	grid     *grid.Grid
	notifier Notifier
}

// NewDispatcher wires a dispatcher to its API, grid and notifier.
func NewDispatcher(a API, g *grid.Grid, n Notifier) *Dispatcher {
	return &Dispatcher{api: a, grid: g, notifier: n}
}

// Dispatch runs one request cycle: capture the selection, short-circuit
// empty selections without any round trip, otherwise send the request and
// handle the envelope. resume is always called exactly once with the
// cancellation flag; a transport failure resumes cancelled and returns the
// error, which never carries an envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, opts Options, resume func(cancelled bool)) error {
	if resume == nil {
		resume = func(bool) {}
	}

	selected := d.grid.Selection()
	if opts.Mode == api.ModeSelection && len(selected) == 0 {
		env := envelope.NoSelection(envelope.Options{
			EmptySelectionMessage: opts.EmptySelectionMessage,
			ShowEmptyMessage:      opts.ShowEmptyMessage,
			Escape:                opts.EscapeMessage,
		})
		d.handle(env, opts, nil, resume)
		return nil
	}

	req := api.Request{
		Action:               opts.Action,
		Mode:                 opts.Mode,
		Filter:               opts.Filter,
		ItemsToReturn:        opts.ItemsToReturn,
		PerformSubstitutions: opts.PerformSubstitutions,
		EscapeMessage:        opts.EscapeMessage,
	}
	if opts.Mode == api.ModeSelection {
		req.Selection = selection.Encode(selected, selection.DefaultChunkSize)
	}
	for _, name := range opts.ItemsToSubmit {
		v, _ := d.grid.Item(name)
		req.ItemsToSubmit = append(req.ItemsToSubmit, engine.Item{Name: name, Value: v})
	}

	env, err := d.api.Process(ctx, req)
	if err != nil {
		resume(true)
		return err
	}
	d.handle(env, opts, selected, resume)
	return nil
}

// handle reconciles the grid from a result envelope: apply returned items,
// refresh, clear the selection (after the reload signal when a refresh is
// in flight), notify once, raise the envelope's event, and resume.
func (d *Dispatcher) handle(env envelope.Envelope, opts Options, selected []selection.Tuple, resume func(cancelled bool)) {
	for _, it := range env.ItemsToReturn {
		d.grid.SetItem(it.Name, it.Value)
	}

	if opts.RefreshSelection && len(selected) > 0 {
		d.grid.FetchRows(selected)
	}
	switch {
	case opts.RefreshGrid && opts.RemoveSelection:
		// Clearing while the refresh is still in flight would race it.
		d.grid.Once(grid.EventReloaded, func(string) { d.grid.ClearSelection() })
		d.grid.Refresh()
	case opts.RefreshGrid:
		d.grid.Refresh()
	case opts.RemoveSelection:
		d.grid.ClearSelection()
	}

	if env.Message != "" && d.notifier != nil {
		d.notifier.Notify(Notification{
			Type:         notificationType(env),
			Title:        env.MessageTitle,
			Message:      env.Message,
			DismissAfter: opts.DismissAfter,
		})
	}
	if env.EventName != "" {
		d.grid.Fire(env.EventName)
	}
	resume(env.CancelActions)
}

// notificationType picks the explicit category when the envelope carries
// one, otherwise derives it from the status.
func notificationType(env envelope.Envelope) string {
	if env.MessageType != "" {
		return env.MessageType
	}
	if env.Status == envelope.StatusError {
		return "error"
	}
	return "success"
}
