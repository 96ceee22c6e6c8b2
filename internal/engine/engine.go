// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package engine implements the transactional row processor. It opens one
// transaction per request, iterates the rows matching the request's filter
// strictly in order, and invokes the caller-supplied mutation fragment once
// per row. The first fragment failure stops iteration and rolls back every
// mutation of the request; row failures are captured as an error identity
// for reporting and never escape as raw errors.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"gridrows/internal/dataset"
)

// Fragment is the caller-supplied mutation, invoked once per iterated row
// with the row's columns bound and the request state threaded through.
type Fragment func(ctx context.Context, tx dataset.Tx, row dataset.Row, st *State) error

// Plan describes one request's processing run.
type Plan struct {
	// Filter scopes the iteration: the caller's active base predicate plus,
	// in selection mode, the materialized key restriction.
	Filter dataset.Filter
	// Fragment is the per-row mutation.
	Fragment Fragment
	// State carries submitted items and collects signals.
	State *State
}

// Outcome is the terminal result of a processing run.
type Outcome struct {
	// Processed counts the rows whose fragment completed before the run
	// ended.
	Processed int
	// Err is nil on success. On failure all mutations of the run have been
	// rolled back.
	Err error
	// Identity describes Err for message substitution.
	Identity ErrorIdentity
}

// ErrorIdentity is the reportable identity of a row-mutation failure.
type ErrorIdentity struct {
	// Code is the SQLSTATE when the failure came from the database, empty
	// otherwise.
	Code string
	// Message is the full error text.
	Message string
	// Text is the error text without the leading code decoration.
	Text string
}

// Process runs the plan against the dataset. The transaction and cursor are
// closed on every exit path; a failure before the first row still releases
// them.
func Process(ctx context.Context, ds dataset.Dataset, p Plan) Outcome {
	if p.State == nil {
		p.State = NewState(nil)
	}

	tx, err := ds.Begin(ctx)
	if err != nil {
		return fail(0, err)
	}
	// Rollback if commit doesn't happen; no-op after Commit.
	defer tx.Rollback(ctx)

	cur, err := tx.Select(ctx, p.Filter)
	if err != nil {
		return fail(0, err)
	}
	defer cur.Close()

	processed := 0
	for cur.Next() {
		if err := p.Fragment(ctx, tx, cur.Row(), p.State); err != nil {
			return fail(processed, err)
		}
		processed++
	}
	if err := cur.Err(); err != nil {
		return fail(processed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fail(processed, err)
	}
	return Outcome{Processed: processed}
}

// fail builds the error outcome with its reporting identity.
func fail(processed int, err error) Outcome {
	return Outcome{Processed: processed, Err: err, Identity: Identify(err)}
}

// Identify extracts the reportable identity of an error. Database errors
// contribute their SQLSTATE and bare message; everything else reports its
// full text under an empty code.
func Identify(err error) ErrorIdentity {
	if err == nil {
		return ErrorIdentity{}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return ErrorIdentity{
			Code:    pgErr.Code,
			Message: err.Error(),
			Text:    pgErr.Message,
		}
	}
	return ErrorIdentity{Message: err.Error(), Text: err.Error()}
}

// Reserved statement result columns that map onto signals instead of state
// items.
const (
	signalMessage      = "message"
	signalMessageTitle = "message_title"
	signalMessageType  = "message_type"
	signalCancel       = "cancel_actions"
	signalRaiseEvent   = "raise_event"
)

// SQLFragment builds a Fragment that executes one mutation statement per
// row. Row columns and state items are bound as named arguments (row
// columns win on collision). Rows produced by the statement feed back into
// the request: reserved column names set signals, all others update state
// items.
func SQLFragment(stmt string) Fragment {
	return func(ctx context.Context, tx dataset.Tx, row dataset.Row, st *State) error {
		args := make(map[string]any, len(row.Columns))
		for _, it := range st.Items() {
			args[it.Name] = it.Value
		}
		for i, c := range row.Columns {
			args[c] = row.Values[i]
		}
		rows, err := tx.Exec(ctx, stmt, args)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			applyReturned(rows[len(rows)-1], st)
		}
		return nil
	}
}

// applyReturned maps a statement's returned row onto signals and state.
func applyReturned(row dataset.Row, st *State) {
	for i, c := range row.Columns {
		v := toString(row.Values[i])
		switch strings.ToLower(c) {
		case signalMessage:
			st.Signals.Message = v
		case signalMessageTitle:
			st.Signals.MessageTitle = v
		case signalMessageType:
			st.Signals.MessageType = v
		case signalCancel:
			st.Signals.Cancel = ParseCancel(v)
		case signalRaiseEvent:
			st.Signals.EventName = v
		default:
			st.Set(c, v)
		}
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
