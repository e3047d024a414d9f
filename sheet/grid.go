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

// Package sheet turns the text cells of an FFvolley match sheet into
// canonical per-set grids, scores, timeouts and rotation statistics.
package sheet

import (
	"strings"
)

const (
	GridRows = 12
	GridCols = 6
)

// Canonical grid rows.
const (
	RowLineup      = 0
	RowSubstitutes = 1
	RowScore       = 2
	RowFirstMarker = 3
	RowFirstRally  = 4
	RowFirstAction = 8
)

// RawTable is a rectangular matrix of text cells read from one region of
// the sheet. Rows may have different lengths when the reader could not
// align every column.
type RawTable [][]string

// Cell returns the trimmed cell text, or "" when (row, col) is outside the
// table.
func (t RawTable) Cell(row, col int) string {
	return strings.TrimSpace(t.RawCell(row, col))
}

// RawCell returns the cell text as read, or "" when (row, col) is outside
// the table.
func (t RawTable) RawCell(row, col int) string {
	if row < 0 || row >= len(t) {
		return ""
	}
	if col < 0 || col >= len(t[row]) {
		return ""
	}
	return t[row][col]
}

// Grid is the canonical 12x6 set grid of one team.
type Grid [GridRows][GridCols]string

// RowPopulated reports whether any cell of the row is non-empty.
func (g *Grid) RowPopulated(row int) bool {
	if g == nil || row < 0 || row >= GridRows {
		return false
	}
	for _, v := range g[row] {
		if v != "" {
			return true
		}
	}
	return false
}

// Row returns a copy of the row as a slice.
func (g *Grid) Row(row int) []string {
	if g == nil || row < 0 || row >= GridRows {
		return nil
	}
	out := make([]string, GridCols)
	copy(out, g[row][:])
	return out
}

// RowSource selects the source row and the six source columns copied into
// one destination row.
type RowSource struct {
	Row  int   `json:"row"`
	Cols []int `json:"cols"`
}

// ColumnMap maps destination grid rows to their source cells.
type ColumnMap map[int]RowSource

// BuildGrid copies the cells selected by cm from raw into a blank grid.
//
// A destination row is written only when its source row exists, every
// selected column is in bounds and exactly six columns are selected.
// Anything else leaves the row empty. BuildGrid never fails.
func BuildGrid(raw RawTable, cm ColumnMap) Grid {
	var g Grid
	for dest, src := range cm {
		if dest < 0 || dest >= GridRows {
			continue
		}
		if src.Row < 0 || src.Row >= len(raw) {
			continue
		}
		if len(src.Cols) != GridCols {
			continue
		}
		line := raw[src.Row]
		ok := true
		for _, c := range src.Cols {
			if c < 0 || c >= len(line) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for i, c := range src.Cols {
			g[dest][i] = strings.TrimSpace(line[c])
		}
	}
	return g
}

// String renders the grid as tab separated lines, one per row.
func (g Grid) String() string {
	var sb strings.Builder
	for r := range GridRows {
		sb.WriteString(strings.Join(g[r][:], "\t"))
		sb.WriteByte('\n')
	}
	return sb.String()
}
