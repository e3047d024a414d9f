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

package backend

import (
	"strings"
	"testing"

	"github.com/ttbt-io/volleysheet/sheet"
)

func TestValidateMatch(t *testing.T) {
	score := func(n int) *int { return &n }

	tests := []struct {
		name    string
		mutate  func(m *sheet.Match)
		wantErr string
	}{
		{"Sample", func(m *sheet.Match) {}, ""},
		{"Long team name", func(m *sheet.Match) { m.Home = strings.Repeat("x", maxTeamNameLength+1) }, "too long"},
		{"Invalid UTF-8", func(m *sheet.Match) { m.Away = "\xff\xfe" }, "UTF-8"},
		{"Set out of range", func(m *sheet.Match) { m.Sets[0].Set = 6 }, "invalid set number 6"},
		{"Sets out of order", func(m *sheet.Match) { m.Sets[1].Set = 1 }, "out of order"},
		{"Too many timeouts", func(m *sheet.Match) {
			m.Sets[0].Timeouts[sheet.Home].Markers = []string{"1:2", "3:4", "5:6"}
		}, "timeouts"},
		{"Negative score", func(m *sheet.Match) { m.Scores[2][sheet.Away] = score(-1) }, "set 3: negative score"},
		{"Negative duration", func(m *sheet.Match) { m.Durations[0] = -5 }, "set 1: negative duration"},
		{"Too many warnings", func(m *sheet.Match) {
			m.Warnings = make([]sheet.Warning, maxWarnings+1)
		}, "too many warnings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleMatch()
			tt.mutate(m)
			err := ValidateMatch(m)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateMatch() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateMatch() error = %v, want %q", err, tt.wantErr)
			}
		})
	}

	if err := ValidateMatch(nil); err == nil {
		t.Error("Expected error for nil match")
	}
}

func TestIsoDate(t *testing.T) {
	tests := map[string]string{
		"12/10/2025":  "2025-10-12",
		"2/3/2025":    "2025-03-02",
		"12/10/25":    "2025-10-12",
		"12.10.2025":  "2025-10-12",
		"2025-10-12":  "2025-10-12",
		" 01/09/2024": "2024-09-01",
		"samedi":      "samedi",
		"":            "",
	}
	for in, want := range tests {
		if got := isoDate(in); got != want {
			t.Errorf("isoDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanFileName(t *testing.T) {
	tests := map[string]string{
		"match.pdf":                 "match.pdf",
		"/tmp/uploads/match.pdf":    "match.pdf",
		`C:\Users\coach\sheet.pdf`:  "sheet.pdf",
		"":                          "",
		strings.Repeat("a", 300):    strings.Repeat("a", maxFileNameLength),
	}
	for in, want := range tests {
		if got := cleanFileName(in); got != want {
			t.Errorf("cleanFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	if !isValidUUID("11111111-1111-4111-8111-111111111111") {
		t.Error("Expected canonical UUID to be valid")
	}
	for _, id := range []string{"", "not-a-uuid", "11111111111141118111111111111111", "../../etc/passwd"} {
		if isValidUUID(id) {
			t.Errorf("Expected %q to be invalid", id)
		}
	}
}
