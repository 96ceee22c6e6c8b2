// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package server implements the GridRows HTTP API: the process endpoint
// plus version and health probes. Each request materializes its selection,
// scopes the iteration, runs the row processor, and answers with one result
// envelope. Configuration problems (unknown action, no identifier columns,
// malformed payload) are hard HTTP failures and never produce an envelope;
// row-mutation failures travel inside the envelope's error branch.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"gridrows/internal/api"
	"gridrows/internal/collection"
	"gridrows/internal/dataset"
	"gridrows/internal/engine"
	"gridrows/internal/envelope"
	"gridrows/internal/selection"
)

// Action is one server-defined mutation callers can invoke by name.
type Action struct {
	// Name identifies the action in requests.
	Name string
	// Dataset is the table the action operates on.
	Dataset dataset.Dataset
	// Fragment is the per-row mutation.
	Fragment engine.Fragment
	// SuccessMessage, ErrorMessage and MessageTitle are the configured
	// defaults; fragments may override them per request.
	SuccessMessage string
	ErrorMessage   string
	MessageTitle   string
	// EmptySelectionMessage is shown for zero-tuple selections when
	// ShowEmptyMessage is set. The client normally short-circuits that case
	// without a round trip; this covers direct API callers.
	EmptySelectionMessage string
	ShowEmptyMessage      bool
}

// Server serves the GridRows API.
type Server struct {
	version string
	token   string
	actions map[string]Action
	log     *log.Logger
}

// New creates a server. An empty token disables authentication.
func New(version, token string, logger *log.Logger, actions ...Action) *Server {
	s := &Server{
		version: version,
		token:   token,
		actions: make(map[string]Action, len(actions)),
		log:     logger,
	}
	for _, a := range actions {
		s.actions[a.Name] = a
	}
	if s.log == nil {
		s.log = log.Default()
	}
	return s
}

// Handler returns the API routes wrapped in the auth middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/process", s.handleProcess)
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return s.auth(mux)
}

// auth enforces the bearer token on every route except the health probe.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.URL.Path != "/api/health" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != s.token {
				http.Error(w, "invalid or missing token", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()

	var req api.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	action, ok := s.actions[req.Action]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown action %q", req.Action), http.StatusNotFound)
		return
	}
	if req.Mode != api.ModeSelection && req.Mode != api.ModeFiltered {
		http.Error(w, fmt.Sprintf("unknown mode %q", req.Mode), http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	var filter dataset.Filter
	if req.Filter != nil {
		filter.Where = req.Filter.Where
		filter.Args = req.Filter.Args
	}

	if req.Mode == api.ModeSelection {
		tuples, err := selectionTuples(req.Selection)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(tuples) == 0 {
			// Defensive guard; the client short-circuits this case without
			// a round trip.
			s.log.Printf("request %s action=%s: empty selection, no-op", reqID, req.Action)
			writeJSON(w, http.StatusOK, envelope.NoSelection(envelope.Options{
				EmptySelectionMessage: action.EmptySelectionMessage,
				ShowEmptyMessage:      action.ShowEmptyMessage,
				Escape:                req.EscapeMessage,
			}))
			return
		}

		// Metadata-only inspection; its resources are released before the
		// iteration transaction opens.
		meta, err := action.Dataset.Metadata(ctx)
		if err != nil {
			s.log.Printf("request %s action=%s: metadata: %v", reqID, req.Action, err)
			http.Error(w, "dataset metadata unavailable", http.StatusInternalServerError)
			return
		}
		if len(meta.IdentifierColumns) == 0 {
			// The operation cannot be scoped to a selection.
			s.log.Printf("request %s action=%s: %v", reqID, req.Action, dataset.ErrNoIdentifierColumns)
			http.Error(w, dataset.ErrNoIdentifierColumns.Error(), http.StatusUnprocessableEntity)
			return
		}
		keys, err := collection.Materialize(tuples, len(meta.IdentifierColumns))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Keys = keys
	}

	st := engine.NewState(req.ItemsToSubmit)
	out := engine.Process(ctx, action.Dataset, engine.Plan{
		Filter:   filter,
		Fragment: action.Fragment,
		State:    st,
	})

	env := envelope.Compose(out, envelope.Options{
		SuccessMessage: action.SuccessMessage,
		ErrorMessage:   action.ErrorMessage,
		MessageTitle:   action.MessageTitle,
		Substitute:     req.PerformSubstitutions,
		Escape:         req.EscapeMessage,
	}, st, req.ItemsToReturn)

	if out.Err != nil {
		s.log.Printf("request %s action=%s mode=%s: failed after %d rows: %v", reqID, req.Action, req.Mode, out.Processed, out.Err)
	} else {
		s.log.Printf("request %s action=%s mode=%s: processed %d rows", reqID, req.Action, req.Mode, out.Processed)
	}
	writeJSON(w, http.StatusOK, env)
}

// selectionTuples decodes the chunked payload, mapping decode failures to a
// caller error.
func selectionTuples(parts []string) ([]selection.Tuple, error) {
	tuples, err := selection.Decode(parts)
	if err != nil {
		return nil, fmt.Errorf("bad selection payload: %w", err)
	}
	return tuples, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		// Response already committed; nothing sensible left to do.
		_ = err
	}
}
