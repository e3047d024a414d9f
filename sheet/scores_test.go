// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sheet

import (
	"reflect"
	"testing"
)

func TestExtractScores_VerificationCell(t *testing.T) {
	rl := ResultsLayout{
		FirstRow: 0,
		Home:     TeamColumns{Points: 3, Won: 2},
		Away:     TeamColumns{Points: 6, Won: 7},
		Duration: 5,
	}
	raw := RawTable{
		{"", "", "1", "25", "1", "24'", "20", "0"},
		{"", "", "0 ", "22", "2", "", "25", "1"},
		{"", "", "2", "25", "3", "", "23", "O"},
		{"", "", "", "25", "4", "", "23", "0"},
		{"", "", "1", "abc", "5", "", "13", "0"},
	}
	s := ExtractScores(raw, rl)

	tests := []struct {
		set  int
		team Team
		want int
		ok   bool
	}{
		{1, Home, 25, true},
		{1, Away, 20, true},
		{2, Home, 0, false}, // padded verification cell
		{2, Away, 25, true},
		{3, Home, 0, false}, // "2" is not a verification value
		{3, Away, 0, false}, // letter O
		{4, Home, 0, false}, // blank
		{4, Away, 23, true},
		{5, Home, 0, false}, // points not numeric
		{5, Away, 13, true},
	}
	for _, tt := range tests {
		got, ok := s.Points(tt.set, tt.team)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Points(%d, %s) = %d, %v; want %d, %v", tt.set, tt.team, got, ok, tt.want, tt.ok)
		}
	}

	if !s.Complete(1) || s.Complete(3) {
		t.Errorf("Complete: set 1 %v, set 3 %v", s.Complete(1), s.Complete(3))
	}
	if w, ok := s.Winner(2); !ok || w != Away {
		t.Errorf("Winner(2) = %v, %v", w, ok)
	}
	if _, ok := s.Winner(3); ok {
		t.Errorf("Winner(3) should be undecided")
	}
	if _, ok := s.Points(6, Home); ok {
		t.Errorf("set 6 should not exist")
	}
}

func TestParseMinutes(t *testing.T) {
	tests := map[string]int{
		"25'":    25,
		"25":     25,
		" 31’ ":  31,
		"0:25":   25,
		"1:05":   65,
		"28 min": 28,
		"":       0,
		"x":      0,
		"-3":     0,
	}
	for in, want := range tests {
		if got := parseMinutes(in); got != want {
			t.Errorf("parseMinutes(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestExtractTimeouts(t *testing.T) {
	raw := RawTable{
		{"8:5", "", "12:14", "None"},
		{"", "3:2", "", "9:9"},
	}
	primary := []CellRef{{Row: 0, Col: 0}, {Row: 0, Col: 3}}
	fallback := []CellRef{{Row: 1, Col: 1}, {Row: 1, Col: 3}}

	t.Run("regular set ignores fallback", func(t *testing.T) {
		sr := SetRegion{Set: 2, Timeouts: primary, TimeoutFallback: fallback}
		got := ExtractTimeouts(raw, sr)
		if want := []string{"8:5"}; !reflect.DeepEqual(got.Markers, want) {
			t.Errorf("markers = %q, want %q", got.Markers, want)
		}
	})

	t.Run("fifth set falls back on None", func(t *testing.T) {
		sr := SetRegion{Set: 5, Timeouts: primary, TimeoutFallback: fallback}
		got := ExtractTimeouts(raw, sr)
		if want := []string{"8:5", "9:9"}; !reflect.DeepEqual(got.Markers, want) {
			t.Errorf("markers = %q, want %q", got.Markers, want)
		}
	})

	t.Run("fifth set falls back on empty", func(t *testing.T) {
		sr := SetRegion{Set: 5, Timeouts: []CellRef{{Row: 0, Col: 1}}, TimeoutFallback: fallback}
		got := ExtractTimeouts(raw, sr)
		if want := []string{"3:2"}; !reflect.DeepEqual(got.Markers, want) {
			t.Errorf("markers = %q, want %q", got.Markers, want)
		}
	})

	t.Run("at most two markers", func(t *testing.T) {
		sr := SetRegion{Set: 1, Timeouts: []CellRef{{0, 0}, {0, 2}, {1, 3}}}
		got := ExtractTimeouts(raw, sr)
		if len(got.Markers) != MaxTimeouts {
			t.Errorf("got %d markers, want %d", len(got.Markers), MaxTimeouts)
		}
	})

	t.Run("nothing recorded", func(t *testing.T) {
		got := ExtractTimeouts(RawTable{}, SetRegion{Set: 5, Timeouts: primary, TimeoutFallback: fallback})
		if got.Markers == nil || len(got.Markers) != 0 {
			t.Errorf("markers = %#v, want empty slice", got.Markers)
		}
	})
}
