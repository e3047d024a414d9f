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
	"math"
	"strconv"
	"strings"
)

// maxMarker is the largest score a rally marker may carry.
const maxMarker = 999

// parseMarker returns the score written in a rally marker cell. Blank
// cells, "X", "NaN" and anything that is not a whole number between 0 and
// maxMarker carry no value. "5.0" reads as 5.
func parseMarker(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "x") || strings.EqualFold(s, "nan") {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > maxMarker {
			return 0, false
		}
		return n, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) || v < 0 || v > maxMarker {
		return 0, false
	}
	return int(v), true
}

// markerDelta is the number of points between the marker at (row, col) and
// the one before it. The marker before column 0 is the last column of the
// previous row.
func markerDelta(g *Grid, row, col int) int {
	cur, ok := parseMarker(g[row][col])
	if !ok {
		return 0
	}
	var prevCell string
	switch {
	case col > 0:
		prevCell = g[row][col-1]
	case row > 0:
		prevCell = g[row-1][GridCols-1]
	}
	prev, ok := parseMarker(prevCell)
	if !ok {
		return 0
	}
	return cur - prev
}

// PointDeltas computes, for rotation column col, the points gained in each
// rally row of a (scored) and b (conceded). A row from RowFirstRally on is
// considered when it is populated in either grid, so both slices always
// have the same length.
func PointDeltas(a, b *Grid, col int) (scored, conceded []int) {
	if a == nil {
		a = &Grid{}
	}
	if b == nil {
		b = &Grid{}
	}
	scored, conceded = []int{}, []int{}
	if col < 0 || col >= GridCols {
		return scored, conceded
	}
	for row := RowFirstRally; row < GridRows; row++ {
		if !a.RowPopulated(row) && !b.RowPopulated(row) {
			continue
		}
		scored = append(scored, markerDelta(a, row, col))
		conceded = append(conceded, markerDelta(b, row, col))
	}
	return scored, conceded
}

// RotationRow is the point balance of one rotation.
type RotationRow struct {
	Rotation int `json:"rotation"`
	Scored   int `json:"scored"`
	Conceded int `json:"conceded"`
	Diff     int `json:"diff"`
	Running  int `json:"running"`
}

// RotationTable runs PointDeltas over the six rotations of a set, from the
// point of view of the team owning grid a.
func RotationTable(a, b *Grid) []RotationRow {
	rows := make([]RotationRow, 0, GridCols)
	running := 0
	for col := range GridCols {
		scored, conceded := PointDeltas(a, b, col)
		r := RotationRow{Rotation: col + 1}
		for i := range scored {
			r.Scored += scored[i]
			r.Conceded += conceded[i]
		}
		r.Diff = r.Scored - r.Conceded
		running += r.Diff
		r.Running = running
		rows = append(rows, r)
	}
	return rows
}
