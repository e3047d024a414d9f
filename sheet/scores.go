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
	"strconv"
	"strings"
)

// MaxTimeouts is the number of timeouts a team may call per set.
const MaxTimeouts = 2

// ScoreSummary holds the final points of (set, team). An entry is nil when
// the sheet's "won" cell next to it is not "0" or "1".
type ScoreSummary [MaxSets][2]*int

// Points returns the score of (set, team), 1-based set.
func (s *ScoreSummary) Points(set int, team Team) (int, bool) {
	if set < 1 || set > MaxSets {
		return 0, false
	}
	p := s[set-1][team]
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Complete reports whether both scores of the set were accepted.
func (s *ScoreSummary) Complete(set int) bool {
	_, h := s.Points(set, Home)
	_, a := s.Points(set, Away)
	return h && a
}

// Winner returns the team with more points in a complete set.
func (s *ScoreSummary) Winner(set int) (Team, bool) {
	if !s.Complete(set) {
		return Home, false
	}
	h, _ := s.Points(set, Home)
	a, _ := s.Points(set, Away)
	switch {
	case h > a:
		return Home, true
	case a > h:
		return Away, true
	}
	return Home, false
}

// ExtractScores reads the final score of every set from the results table.
func ExtractScores(raw RawTable, rl ResultsLayout) ScoreSummary {
	var s ScoreSummary
	for set := 1; set <= MaxSets; set++ {
		row := rl.FirstRow + set - 1
		s[set-1][Home] = verifiedScore(raw, row, rl.Home)
		s[set-1][Away] = verifiedScore(raw, row, rl.Away)
	}
	return s
}

// verifiedScore accepts the points of a team only when its verification
// cell is exactly "0" or "1", without surrounding blanks.
func verifiedScore(raw RawTable, row int, tc TeamColumns) *int {
	switch raw.RawCell(row, tc.Won) {
	case "0", "1":
	default:
		return nil
	}
	n, err := strconv.Atoi(raw.Cell(row, tc.Points))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// ExtractDurations reads the set durations in minutes. Unreadable cells
// yield 0.
func ExtractDurations(raw RawTable, rl ResultsLayout) [MaxSets]int {
	var d [MaxSets]int
	for set := 1; set <= MaxSets; set++ {
		d[set-1] = parseMinutes(raw.Cell(rl.FirstRow+set-1, rl.Duration))
	}
	return d
}

// parseMinutes accepts "25'", "25", "25 min" and "0:25".
func parseMinutes(s string) int {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "min")
	s = strings.TrimRight(strings.TrimSpace(s), "'’")
	if h, m, ok := strings.Cut(s, ":"); ok {
		hh, err1 := strconv.Atoi(strings.TrimSpace(h))
		mm, err2 := strconv.Atoi(strings.TrimSpace(m))
		if err1 != nil || err2 != nil || hh < 0 || mm < 0 {
			return 0
		}
		return hh*60 + mm
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// TimeoutRecord lists the score markers written when a team called its
// timeouts.
type TimeoutRecord struct {
	Markers []string `json:"markers"`
}

func blankMarker(s string) bool {
	return s == "" || s == "None"
}

// ExtractTimeouts reads the timeout markers of one set half. In the fifth
// set a primary cell that is empty or "None" is replaced by the matching
// fallback cell.
func ExtractTimeouts(raw RawTable, sr SetRegion) TimeoutRecord {
	rec := TimeoutRecord{Markers: []string{}}
	for i, ref := range sr.Timeouts {
		if len(rec.Markers) == MaxTimeouts {
			break
		}
		v := raw.Cell(ref.Row, ref.Col)
		if blankMarker(v) && sr.Set == MaxSets && i < len(sr.TimeoutFallback) {
			fb := sr.TimeoutFallback[i]
			v = raw.Cell(fb.Row, fb.Col)
		}
		if blankMarker(v) {
			continue
		}
		rec.Markers = append(rec.Markers, v)
	}
	return rec
}
