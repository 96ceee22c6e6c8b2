// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

package selection

import (
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		tuples []Tuple
	}{
		{
			name:   "single column",
			tuples: []Tuple{{"1"}, {"2"}, {"3"}},
		},
		{
			name:   "composite keys",
			tuples: []Tuple{{"1", "A"}, {"2", "B"}, {"3", "C"}},
		},
		{
			name:   "separator characters in values",
			tuples: []Tuple{{"a:b", "c,d"}, {`e\f`, ":,"}},
		},
		{
			name:   "empty values preserved",
			tuples: []Tuple{{""}, {"", "x"}},
		},
		{
			name:   "single tuple",
			tuples: []Tuple{{"only"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := Encode(tt.tuples, DefaultChunkSize)
			got, err := Decode(parts)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.tuples) {
				t.Errorf("round trip = %v, want %v", got, tt.tuples)
			}
		})
	}
}

func TestEncodeEmpty(t *testing.T) {
	if parts := Encode(nil, DefaultChunkSize); parts != nil {
		t.Errorf("Encode(nil) = %v, want nil", parts)
	}
	got, err := Decode(nil)
	if err != nil {
		t.Fatalf("Decode(nil) error = %v", err)
	}
	if got != nil {
		t.Errorf("Decode(nil) = %v, want nil", got)
	}
}

func TestEncodeChunking(t *testing.T) {
	tuples := []Tuple{
		{"aaaaaaaaaa", "bbbbbbbbbb"},
		{"cccccccccc", "dddddddddd"},
		{"eeeeeeeeee", "ffffffffff"},
	}
	parts := Encode(tuples, 16)
	if len(parts) < 2 {
		t.Fatalf("expected multiple parts, got %d", len(parts))
	}
	for i, p := range parts {
		if len(p) > 16 {
			t.Errorf("part %d exceeds chunk size: %d bytes", i, len(p))
		}
	}
	got, err := Decode(parts)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(got, tuples) {
		t.Errorf("round trip = %v, want %v", got, tuples)
	}
}

func TestChunkBoundaryNeverSplitsEscape(t *testing.T) {
	// Values built from backslashes produce long escape runs; every chunk
	// boundary must fall between pairs, not inside one.
	tuples := []Tuple{{`\\\\\\\\`, `::::`}, {`,,,,`, `\:\,`}}
	for size := 2; size <= 12; size++ {
		parts := Encode(tuples, size)
		got, err := Decode(parts)
		if err != nil {
			t.Fatalf("chunk size %d: Decode() error = %v", size, err)
		}
		if !reflect.DeepEqual(got, tuples) {
			t.Errorf("chunk size %d: round trip = %v, want %v", size, got, tuples)
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{name: "missing terminator", parts: []string{"1:A,2"}},
		{name: "dangling escape", parts: []string{`1,2\`}},
		{name: "lost trailing part", parts: []string{"1:A,2:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.parts); err == nil {
				t.Error("Decode() expected error, got nil")
			}
		})
	}
}
