// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package client implements the GridRows client side: the HTTP API client,
// the request dispatcher, and the response handler that reconciles grid
// state from a result envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gridrows/internal/api"
	"gridrows/internal/envelope"
)

// API defines the server operations the client depends on.
// Implementations may call the real HTTP endpoints or provide mocks for
// tests.
type API interface {
	// Process runs one process request. A returned error is a transport or
	// hard server failure and carries no envelope.
	Process(ctx context.Context, req api.Request) (envelope.Envelope, error)
	// Version reports the server version.
	Version(ctx context.Context) (string, error)
}

// HTTP implements API over the server's REST endpoints.
type HTTP struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTP creates an HTTP API client with a 30-second request timeout.
func NewHTTP(baseURL, token string) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Process calls POST /api/process. Non-2xx responses are hard failures; the
// caller never sees a partial envelope.
func (h *HTTP) Process(ctx context.Context, req api.Request) (envelope.Envelope, error) {
	var env envelope.Envelope

	body, err := json.Marshal(req)
	if err != nil {
		return env, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/process", bytes.NewReader(body))
	if err != nil {
		return env, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		hreq.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(hreq)
	if err != nil {
		return env, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return env, fmt.Errorf("server rejected request: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return env, err
	}
	return env, nil
}

// Version calls GET /api/version and returns the version string when
// available.
func (h *HTTP) Version(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "unknown", nil
	}
	var out struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Version == "" {
		return "unknown", nil
	}
	return out.Version, nil
}
