// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package selection encodes and decodes row selections for transport.
//
// A selection is an ordered list of identifier tuples, each tuple holding the
// identifier-column values of one record. The encoded form is a single text
// stream (values separated by ':', tuples terminated by ',') split into
// chunks so that no single transport parameter exceeds the size limit.
// Decoding the chunks reproduces the original tuples in the original order
// with the original column counts.
package selection

import (
	"errors"
	"strings"
)

// DefaultChunkSize is the maximum byte length of a single transport part.
const DefaultChunkSize = 4000

const (
	valueSep = ':'
	tupleSep = ','
	escape   = '\\'
)

// ErrTruncatedPayload indicates the payload ended mid-tuple, e.g. because a
// transport part was lost or reordered.
var ErrTruncatedPayload = errors.New("selection payload is truncated")

// Tuple is the ordered list of identifier-column values of one record.
type Tuple []string

// Encode serializes tuples into transport parts of at most chunkSize bytes.
// A chunkSize <= 0 falls back to DefaultChunkSize. Zero tuples yield zero
// parts. Separator and escape characters inside values are escaped, and a
// chunk boundary never splits an escape sequence.
func Encode(tuples []Tuple, chunkSize int) []string {
	if len(tuples) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var b strings.Builder
	for _, t := range tuples {
		for i, v := range t {
			if i > 0 {
				b.WriteByte(valueSep)
			}
			writeEscaped(&b, v)
		}
		// Every tuple is terminated, so a single empty tuple (",") stays
		// distinguishable from an empty payload.
		b.WriteByte(tupleSep)
	}
	return chunk(b.String(), chunkSize)
}

// Decode reassembles transport parts and parses them back into tuples.
// Parts must be supplied in their original order.
func Decode(parts []string) ([]Tuple, error) {
	payload := strings.Join(parts, "")
	if payload == "" {
		return nil, nil
	}

	var (
		tuples  []Tuple
		current Tuple
		value   strings.Builder
		escaped bool
	)
	for i := 0; i < len(payload); i++ {
		c := payload[i]
		if escaped {
			value.WriteByte(c)
			escaped = false
			continue
		}
		switch c {
		case escape:
			escaped = true
		case valueSep:
			current = append(current, value.String())
			value.Reset()
		case tupleSep:
			current = append(current, value.String())
			value.Reset()
			tuples = append(tuples, current)
			current = nil
		default:
			value.WriteByte(c)
		}
	}
	if escaped || current != nil || value.Len() > 0 {
		return nil, ErrTruncatedPayload
	}
	return tuples, nil
}

// writeEscaped writes v with separator and escape characters escaped.
func writeEscaped(b *strings.Builder, v string) {
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case valueSep, tupleSep, escape:
			b.WriteByte(escape)
		}
		b.WriteByte(v[i])
	}
}

// chunk splits s into pieces of at most size bytes without splitting an
// escape pair across a boundary.
func chunk(s string, size int) []string {
	var parts []string
	for len(s) > size {
		cut := size
		// Count trailing escapes; an odd run means the boundary would
		// split an escape pair, so back off by one.
		n := 0
		for cut-1-n >= 0 && s[cut-1-n] == escape {
			n++
		}
		if n%2 == 1 {
			cut--
		}
		if cut == 0 {
			// Degenerate chunk size; keep the escape pair together.
			cut = 2
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	if len(s) > 0 {
		parts = append(parts, s)
	}
	return parts
}
