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
	"fmt"
	"strings"
	"unicode"
)

// TableReader reads text out of page regions.
type TableReader interface {
	// ReadRegion returns the cells of the table inside r, or an error when
	// no table can be read there.
	ReadRegion(r Region) (RawTable, error)
	// ReadCell returns the text inside r, "" when there is none.
	ReadCell(r Region) string
}

// Warning is a non-fatal extraction problem.
type Warning struct {
	Region  string `json:"region"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return w.Region + ": " + w.Message
}

// Player is a roster entry.
type Player struct {
	Number string `json:"number"`
	Name   string `json:"name"`
	Libero bool   `json:"libero,omitempty"`
}

// SetData is everything read from one set block. Arrays are indexed by
// Team.
type SetData struct {
	Set      int              `json:"set"`
	HomeSide Side             `json:"homeSide"`
	Grids    [2]*Grid         `json:"grids"`
	Timeouts [2]TimeoutRecord `json:"timeouts"`
	Lineups  [2]*Lineup       `json:"lineups"`
}

// Match is the result of reading one sheet.
type Match struct {
	Home      string       `json:"home"`
	Away      string       `json:"away"`
	Date      string       `json:"date,omitempty"`
	Sets      []SetData    `json:"sets"`
	Scores    ScoreSummary `json:"scores"`
	Durations [MaxSets]int `json:"durations"`
	Rosters   [2][]Player  `json:"rosters"`
	Warnings  []Warning    `json:"warnings"`
}

// TeamName returns the name of team, or "Home"/"Away" when unknown.
func (m *Match) TeamName(t Team) string {
	name := m.Home
	if t == Away {
		name = m.Away
	}
	if name == "" {
		return t.String()
	}
	return name
}

// Set returns the data of set n, nil when it was not read.
func (m *Match) Set(n int) *SetData {
	for i := range m.Sets {
		if m.Sets[i].Set == n {
			return &m.Sets[i]
		}
	}
	return nil
}

// Lineup returns the starting lineup of team in set n. The calibrated
// lineup cells win over the grid's formation row.
func (m *Match) Lineup(n int, team Team) Lineup {
	sd := m.Set(n)
	if sd == nil {
		return Lineup{}
	}
	if l := sd.Lineups[team]; l != nil {
		return *l
	}
	if g := sd.Grids[team]; g != nil {
		return LineupFrom(g.Row(RowLineup))
	}
	return Lineup{}
}

// Extract reads a whole sheet. Every region is read independently: a
// failure becomes a Warning and the remaining regions are still read.
func Extract(r TableReader, l *Layout) *Match {
	m := &Match{
		Sets:     []SetData{},
		Warnings: []Warning{},
	}
	warn := func(region string, err error) {
		m.Warnings = append(m.Warnings, Warning{Region: region, Message: err.Error()})
	}

	m.Home = cleanName(r.ReadCell(l.Header.Home))
	m.Away = cleanName(r.ReadCell(l.Header.Away))
	m.Date = strings.TrimSpace(r.ReadCell(l.Header.Date))

	resultsOK := true
	if raw, err := r.ReadRegion(l.Results.Region); err != nil {
		resultsOK = false
		warn("results", err)
	} else {
		m.Scores = ExtractScores(raw, l.Results)
		m.Durations = ExtractDurations(raw, l.Results)
	}

	for set := 1; set <= MaxSets; set++ {
		// A best-of-five always has three sets; later ones only when
		// the results table says so.
		played := set <= 3 || !resultsOK || m.Scores.Complete(set)
		sd := SetData{Set: set, HomeSide: l.SideOf(set, Home)}
		found := false
		for _, team := range []Team{Home, Away} {
			side := l.SideOf(set, team)
			name := fmt.Sprintf("set %d %s", set, side)
			sr, ok := l.Lookup(set, side)
			if !ok {
				if played {
					warn(name, fmt.Errorf("no region in layout %q", l.Name))
				}
				continue
			}
			raw, err := r.ReadRegion(sr.Region)
			if err != nil {
				if played {
					warn(name, err)
				}
			} else {
				g := BuildGrid(raw, sr.Columns)
				sd.Grids[team] = &g
				sd.Timeouts[team] = ExtractTimeouts(raw, sr)
				found = true
			}
			if lu, ok := readLineup(r, l.Calibration, set, side); ok {
				sd.Lineups[team] = &lu
				found = true
			}
		}
		if found {
			m.Sets = append(m.Sets, sd)
		}
	}

	for _, team := range []Team{Home, Away} {
		raw, err := r.ReadRegion(l.Rosters[team])
		if err != nil {
			warn("roster "+strings.ToLower(team.String()), err)
			continue
		}
		m.Rosters[team] = ExtractRoster(raw)
	}
	return m
}

// readLineup reads the six calibrated lineup cells of (set, side).
func readLineup(r TableReader, c Calibration, set int, side Side) (Lineup, bool) {
	if c.Width <= 0 || c.Height <= 0 {
		return Lineup{}, false
	}
	var lu Lineup
	found := false
	for pos := range GridCols {
		v := strings.TrimSpace(r.ReadCell(c.LineupCell(set, side, pos)))
		if v != "" {
			found = true
		}
		lu[pos] = v
	}
	return lu, found
}

func cleanName(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range []string{"Equipe A", "Equipe B", "Équipe A", "Équipe B", "A :", "B :"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, p))
	}
	return strings.TrimSpace(strings.TrimLeft(s, ":"))
}

// ExtractRoster reads number/name rows. A row is kept when its first cell
// is a player number; an "L" cell anywhere in the row marks a libero.
func ExtractRoster(raw RawTable) []Player {
	players := []Player{}
	for i := range raw {
		num := raw.Cell(i, 0)
		if num == "" || strings.IndexFunc(num, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
			continue
		}
		p := Player{Number: num}
		var name []string
		for j := 1; j < len(raw[i]); j++ {
			v := raw.Cell(i, j)
			switch {
			case v == "":
			case v == "L" || v == "(L)":
				p.Libero = true
			default:
				name = append(name, v)
			}
		}
		p.Name = strings.Join(name, " ")
		players = append(players, p)
	}
	return players
}
