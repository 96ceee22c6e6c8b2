// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"gridrows/internal/api"
	"gridrows/internal/engine"
	"gridrows/internal/envelope"
	"gridrows/internal/grid"
	"gridrows/internal/selection"
)

// fakeAPI records the last request and plays back a canned envelope or
// error.
type fakeAPI struct {
	env    envelope.Envelope
	err    error
	called int
	got    api.Request
}

func (f *fakeAPI) Process(ctx context.Context, req api.Request) (envelope.Envelope, error) {
	f.called++
	f.got = req
	return f.env, f.err
}

func (f *fakeAPI) Version(ctx context.Context) (string, error) { return "test", nil }

type recordingNotifier struct {
	notes []Notification
}

func (r *recordingNotifier) Notify(n Notification) { r.notes = append(r.notes, n) }

func TestDispatchSendsEncodedSelection(t *testing.T) {
	f := &fakeAPI{env: envelope.Envelope{Status: envelope.StatusSuccess}}
	g := grid.New()
	g.SetSelection([]selection.Tuple{{"1"}, {"2"}, {"3"}})
	g.SetItem("P1_RATE", "5")
	d := NewDispatcher(f, g, nil)

	var resumed, cancelled bool
	err := d.Dispatch(context.Background(), Options{
		Action:        "touch",
		Mode:          api.ModeSelection,
		ItemsToSubmit: []string{"P1_RATE"},
	}, func(c bool) { resumed, cancelled = true, c })
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !resumed || cancelled {
		t.Errorf("resumed=%v cancelled=%v, want resumed and not cancelled", resumed, cancelled)
	}

	tuples, err := selection.Decode(f.got.Selection)
	if err != nil {
		t.Fatalf("request selection does not decode: %v", err)
	}
	if !reflect.DeepEqual(tuples, []selection.Tuple{{"1"}, {"2"}, {"3"}}) {
		t.Errorf("request tuples = %v", tuples)
	}
	if !reflect.DeepEqual(f.got.ItemsToSubmit, []engine.Item{{Name: "P1_RATE", Value: "5"}}) {
		t.Errorf("ItemsToSubmit = %v", f.got.ItemsToSubmit)
	}
}

func TestDispatchEmptySelectionShortCircuits(t *testing.T) {
	f := &fakeAPI{}
	g := grid.New()
	n := &recordingNotifier{}
	d := NewDispatcher(f, g, n)

	var resumed, cancelled bool
	err := d.Dispatch(context.Background(), Options{
		Action:                "touch",
		Mode:                  api.ModeSelection,
		ShowEmptyMessage:      true,
		EmptySelectionMessage: "Select at least one row.",
	}, func(c bool) { resumed, cancelled = true, c })
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if f.called != 0 {
		t.Error("empty selection must not reach the server")
	}
	if !resumed || cancelled {
		t.Errorf("resumed=%v cancelled=%v", resumed, cancelled)
	}
	if len(n.notes) != 1 || n.notes[0].Message != "Select at least one row." || n.notes[0].Type != "warning" {
		t.Errorf("notifications = %+v", n.notes)
	}
}

func TestDispatchEmptySelectionSilentWithoutFlag(t *testing.T) {
	f := &fakeAPI{}
	g := grid.New()
	n := &recordingNotifier{}
	d := NewDispatcher(f, g, n)

	resumed := false
	if err := d.Dispatch(context.Background(), Options{
		Mode:                  api.ModeSelection,
		EmptySelectionMessage: "configured but disabled",
	}, func(bool) { resumed = true }); err != nil {
		t.Fatal(err)
	}
	if len(n.notes) != 0 {
		t.Errorf("notifications = %+v, want none", n.notes)
	}
	if !resumed {
		t.Error("control flow did not resume")
	}
}

func TestDispatchTransportFailure(t *testing.T) {
	f := &fakeAPI{err: errors.New("connection refused")}
	g := grid.New()
	g.SetSelection([]selection.Tuple{{"1"}})
	n := &recordingNotifier{}
	d := NewDispatcher(f, g, n)

	var resumed, cancelled bool
	err := d.Dispatch(context.Background(), Options{Mode: api.ModeSelection}, func(c bool) { resumed, cancelled = true, c })
	if err == nil {
		t.Fatal("expected transport error")
	}
	if !resumed || !cancelled {
		t.Errorf("resumed=%v cancelled=%v, want resumed in failed state", resumed, cancelled)
	}
	if len(n.notes) != 0 {
		t.Error("transport failures must not render an envelope notification")
	}
}

func TestHandleAppliesItemsAndEvent(t *testing.T) {
	f := &fakeAPI{env: envelope.Envelope{
		Status:        envelope.StatusSuccess,
		Message:       "done",
		ItemsToReturn: []engine.Item{{Name: "P1_TOTAL", Value: "42"}},
		EventName:     "rows-processed",
	}}
	g := grid.New()
	g.SetSelection([]selection.Tuple{{"1"}})
	n := &recordingNotifier{}
	d := NewDispatcher(f, g, n)

	eventFired := false
	g.On("rows-processed", func(string) { eventFired = true })

	if err := d.Dispatch(context.Background(), Options{Mode: api.ModeSelection}, nil); err != nil {
		t.Fatal(err)
	}
	if v, _ := g.Item("P1_TOTAL"); v != "42" {
		t.Errorf("P1_TOTAL = %q", v)
	}
	if !eventFired {
		t.Error("envelope event not raised")
	}
	if len(n.notes) != 1 || n.notes[0].Type != "success" {
		t.Errorf("notifications = %+v", n.notes)
	}
}

func TestRemoveSelectionDeferredUntilReload(t *testing.T) {
	f := &fakeAPI{env: envelope.Envelope{Status: envelope.StatusSuccess}}
	g := grid.New()
	g.SetSelection([]selection.Tuple{{"1"}, {"2"}})

	// Stand-in for an asynchronous view refresh: record the order of the
	// refresh start, the reload signal, and the selection clear.
	var order []string
	reload := func() { order = append(order, "reloaded"); g.Fire(grid.EventReloaded) }
	g.RefreshFunc = func() { order = append(order, "refresh-start") }
	g.On(grid.EventSelectionChanged, func(string) { order = append(order, "selection-cleared") })

	d := NewDispatcher(f, g, nil)
	if err := d.Dispatch(context.Background(), Options{
		Mode:            api.ModeSelection,
		RefreshGrid:     true,
		RemoveSelection: true,
	}, nil); err != nil {
		t.Fatal(err)
	}

	if len(g.Selection()) == 0 {
		t.Fatal("selection cleared before the reload signal")
	}
	reload()
	if len(g.Selection()) != 0 {
		t.Fatal("selection not cleared after the reload signal")
	}
	want := []string{"refresh-start", "reloaded", "selection-cleared"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestRemoveSelectionImmediateWithoutRefresh(t *testing.T) {
	f := &fakeAPI{env: envelope.Envelope{Status: envelope.StatusSuccess}}
	g := grid.New()
	g.SetSelection([]selection.Tuple{{"1"}})
	d := NewDispatcher(f, g, nil)

	if err := d.Dispatch(context.Background(), Options{
		Mode:            api.ModeSelection,
		RemoveSelection: true,
	}, nil); err != nil {
		t.Fatal(err)
	}
	if len(g.Selection()) != 0 {
		t.Error("selection not cleared immediately")
	}
}

func TestRefreshSelectionFetchesOriginalRows(t *testing.T) {
	f := &fakeAPI{env: envelope.Envelope{Status: envelope.StatusSuccess}}
	g := grid.New()
	original := []selection.Tuple{{"1"}, {"2"}}
	g.SetSelection(original)

	var fetched []selection.Tuple
	g.FetchRowsFunc = func(rows []selection.Tuple) { fetched = rows }

	d := NewDispatcher(f, g, nil)
	if err := d.Dispatch(context.Background(), Options{
		Mode:             api.ModeSelection,
		RefreshSelection: true,
	}, nil); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fetched, original) {
		t.Errorf("fetched = %v, want the originally captured selection %v", fetched, original)
	}
}

func TestNotificationTypeOverride(t *testing.T) {
	tests := []struct {
		name string
		env  envelope.Envelope
		want string
	}{
		{"explicit override", envelope.Envelope{Status: envelope.StatusSuccess, MessageType: "info"}, "info"},
		{"derived error", envelope.Envelope{Status: envelope.StatusError}, "error"},
		{"derived success", envelope.Envelope{Status: envelope.StatusSuccess}, "success"},
	}
	for _, tt := range tests {
		if got := notificationType(tt.env); got != tt.want {
			t.Errorf("%s: notificationType() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
