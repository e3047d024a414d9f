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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

const MaxSets = 5

// Side is the half of a set block a team was written in.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// Team identifies the home or away team.
type Team int

const (
	Home Team = 0
	Away Team = 1
)

func (t Team) String() string {
	if t == Away {
		return "Away"
	}
	return "Home"
}

// Other returns the opposing team.
func (t Team) Other() Team {
	return 1 - t
}

func (t Team) MarshalText() ([]byte, error) {
	if t == Away {
		return []byte("away"), nil
	}
	return []byte("home"), nil
}

func (t *Team) UnmarshalText(b []byte) error {
	v, err := ParseTeam(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseTeam accepts "home"/"away", "a"/"b" (any case) and "0"/"1". An empty
// string is the home team.
func ParseTeam(s string) (Team, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "home", "a", "0", "":
		return Home, nil
	case "away", "b", "1":
		return Away, nil
	}
	return Home, fmt.Errorf("invalid team %q", s)
}

// Region is a page rectangle in points with a top-left origin. It is
// serialized as [top, left, bottom, right].
type Region struct {
	Top, Left, Bottom, Right float64
}

func (r Region) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.Top, r.Left, r.Bottom, r.Right})
}

func (r *Region) UnmarshalJSON(b []byte) error {
	var a [4]float64
	if err := json.Unmarshal(b, &a); err != nil {
		return fmt.Errorf("region: %w", err)
	}
	r.Top, r.Left, r.Bottom, r.Right = a[0], a[1], a[2], a[3]
	return nil
}

func (r Region) String() string {
	return fmt.Sprintf("[%g %g %g %g]", r.Top, r.Left, r.Bottom, r.Right)
}

// Empty reports whether the rectangle has no area.
func (r Region) Empty() bool {
	return r.Bottom <= r.Top || r.Right <= r.Left
}

// Contains reports whether the point lies inside the rectangle.
func (r Region) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// CellRef addresses a cell of a RawTable.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// SetRegion describes where one team half of a set block lives and how its
// raw cells map onto the canonical grid.
type SetRegion struct {
	Set             int       `json:"set"`
	Side            Side      `json:"side"`
	Region          Region    `json:"region"`
	Columns         ColumnMap `json:"columns"`
	Timeouts        []CellRef `json:"timeouts"`
	TimeoutFallback []CellRef `json:"timeoutFallback,omitempty"`
}

// TeamColumns locates one team's cells in the results table.
type TeamColumns struct {
	Points int `json:"points"`
	Won    int `json:"won"`
}

// ResultsLayout describes the results table. Row FirstRow+set-1 holds the
// result of that set.
type ResultsLayout struct {
	Region   Region      `json:"region"`
	FirstRow int         `json:"firstRow"`
	Home     TeamColumns `json:"home"`
	Away     TeamColumns `json:"away"`
	Duration int         `json:"duration"`
}

// HeaderLayout locates the team names and the match date.
type HeaderLayout struct {
	Home Region `json:"home"`
	Away Region `json:"away"`
	Date Region `json:"date"`
}

// Calibration places the six starting lineup cells of every set. Set s
// starts at BaseY+(s-1)*OffsetY; the right half is shifted by OffsetX.
type Calibration struct {
	BaseX   float64 `json:"baseX"`
	BaseY   float64 `json:"baseY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// LineupCell returns the region of lineup position pos (0 = zone 1) for the
// given set and side.
func (c Calibration) LineupCell(set int, side Side, pos int) Region {
	x := c.BaseX + float64(pos)*c.Width
	if side == SideRight {
		x += c.OffsetX
	}
	y := c.BaseY + float64(set-1)*c.OffsetY
	return Region{Top: y, Left: x, Bottom: y + c.Height, Right: x + c.Width}
}

// Layout is the coordinate and column-map table of a sheet format.
type Layout struct {
	Name        string        `json:"name"`
	Sets        []SetRegion   `json:"sets"`
	Results     ResultsLayout `json:"results"`
	Header      HeaderLayout  `json:"header"`
	Rosters     [2]Region     `json:"rosters"`
	Calibration Calibration   `json:"calibration"`
	// HomeSide is the half the home team was written in, per set.
	HomeSide [MaxSets]Side `json:"homeSide"`
}

// Lookup returns the region of (set, side).
func (l *Layout) Lookup(set int, side Side) (SetRegion, bool) {
	for _, s := range l.Sets {
		if s.Set == set && s.Side == side {
			return s, true
		}
	}
	return SetRegion{}, false
}

// SideOf returns the side team played in for set.
func (l *Layout) SideOf(set int, team Team) Side {
	side := SideLeft
	if set >= 1 && set <= MaxSets && l.HomeSide[set-1] != "" {
		side = l.HomeSide[set-1]
	}
	if team == Away {
		return side.Other()
	}
	return side
}

// Validate checks that every set has both halves and that every column map
// selects six columns per row.
func (l *Layout) Validate() error {
	var errs []error
	for set := 1; set <= MaxSets; set++ {
		for _, side := range []Side{SideLeft, SideRight} {
			sr, ok := l.Lookup(set, side)
			if !ok {
				errs = append(errs, fmt.Errorf("set %d %s: missing", set, side))
				continue
			}
			if sr.Region.Empty() {
				errs = append(errs, fmt.Errorf("set %d %s: empty region %s", set, side, sr.Region))
			}
			for dest, src := range sr.Columns {
				if dest < 0 || dest >= GridRows {
					errs = append(errs, fmt.Errorf("set %d %s: destination row %d out of range", set, side, dest))
				}
				if len(src.Cols) != GridCols {
					errs = append(errs, fmt.Errorf("set %d %s: row %d selects %d columns", set, side, dest, len(src.Cols)))
				}
			}
		}
		if s := l.HomeSide[set-1]; s != "" && s != SideLeft && s != SideRight {
			errs = append(errs, fmt.Errorf("set %d: invalid home side %q", set, s))
		}
	}
	if l.Results.Region.Empty() {
		errs = append(errs, errors.New("results: empty region"))
	}
	return errors.Join(errs...)
}

// Fingerprint identifies the layout contents. Extraction results computed
// with different layouts never share a cache entry.
func (l *Layout) Fingerprint() string {
	b, err := json.Marshal(l)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// LoadLayout reads a JSON layout file.
func LoadLayout(path string) (*Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var l Layout
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	return &l, nil
}

var (
	oddCols     = []int{1, 3, 5, 7, 9, 11}
	evenCols    = []int{0, 2, 4, 6, 8, 10}
	oddShifted  = []int{3, 5, 7, 9, 11, 13}
	evenShifted = []int{2, 4, 6, 8, 10, 12}
)

// columnMap builds a map where destination row d reads source row
// first+d, alternating between the two column sequences from row 3 on.
func columnMap(first int, lineup, a, b []int) ColumnMap {
	cm := ColumnMap{
		RowLineup:      {Row: first, Cols: lineup},
		RowSubstitutes: {Row: first + 1, Cols: lineup},
		RowScore:       {Row: first + 2, Cols: lineup},
	}
	for d := RowFirstMarker; d < GridRows; d++ {
		cols := a
		if (d-RowFirstMarker)%2 == 1 {
			cols = b
		}
		cm[d] = RowSource{Row: first + d, Cols: cols}
	}
	return cm
}

// DefaultLayout returns the layout of the A3 FFvolley sheet (842x1191
// points, sets stacked top to bottom, each set split in a left and a right
// half).
func DefaultLayout() *Layout {
	left := columnMap(1, oddCols, evenCols, oddCols)
	right := columnMap(1, oddShifted, evenShifted, oddShifted)
	// Set 5 carries an extra court-change header row and reads the
	// markers with the opposite parity.
	fifthLeft := columnMap(2, oddCols, oddCols, evenCols)
	fifthRight := columnMap(2, evenShifted, oddShifted, evenShifted)

	l := &Layout{
		Name: "ffvolley-a3",
		Results: ResultsLayout{
			Region:   Region{Top: 840, Left: 100, Bottom: 950, Right: 830},
			FirstRow: 1,
			Home:     TeamColumns{Points: 3, Won: 2},
			Away:     TeamColumns{Points: 6, Won: 7},
			Duration: 5,
		},
		Header: HeaderLayout{
			Home: Region{Top: 20, Left: 100, Bottom: 60, Right: 400},
			Date: Region{Top: 20, Left: 400, Bottom: 60, Right: 520},
			Away: Region{Top: 20, Left: 520, Bottom: 60, Right: 830},
		},
		Rosters: [2]Region{
			{Top: 960, Left: 20, Bottom: 1170, Right: 415},
			{Top: 960, Left: 427, Bottom: 1170, Right: 822},
		},
		Calibration: Calibration{BaseX: 123, BaseY: 88, Width: 23, Height: 20, OffsetX: 492, OffsetY: 151},
		HomeSide:    [MaxSets]Side{SideLeft, SideRight, SideLeft, SideRight, SideLeft},
	}
	for set := 1; set <= MaxSets; set++ {
		top := 70 + float64(set-1)*151
		bottom := top + 145
		lcm, rcm := left, right
		lto := []CellRef{{Row: 13, Col: 1}, {Row: 13, Col: 3}}
		rto := []CellRef{{Row: 13, Col: 2}, {Row: 13, Col: 4}}
		var lfb, rfb []CellRef
		if set == MaxSets {
			lcm, rcm = fifthLeft, fifthRight
			lto = []CellRef{{Row: 14, Col: 1}, {Row: 14, Col: 3}}
			rto = []CellRef{{Row: 14, Col: 2}, {Row: 14, Col: 4}}
			lfb = []CellRef{{Row: 14, Col: 7}, {Row: 14, Col: 9}}
			rfb = []CellRef{{Row: 14, Col: 8}, {Row: 14, Col: 10}}
		}
		l.Sets = append(l.Sets,
			SetRegion{
				Set: set, Side: SideLeft,
				Region:          Region{Top: top, Left: 100, Bottom: bottom, Right: 420},
				Columns:         lcm,
				Timeouts:        lto,
				TimeoutFallback: lfb,
			},
			SetRegion{
				Set: set, Side: SideRight,
				Region:          Region{Top: top, Left: 592, Bottom: bottom, Right: 830},
				Columns:         rcm,
				Timeouts:        rto,
				TimeoutFallback: rfb,
			},
		)
	}
	return l
}
