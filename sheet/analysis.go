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
	"cmp"
	"fmt"
	"slices"
	"strconv"
)

const (
	// MoneyTimePoints is the loser's score from which a regular set is
	// considered tight.
	MoneyTimePoints = 20
	// MoneyTimePointsTieBreak is the same threshold for the 15-point fifth
	// set.
	MoneyTimePointsTieBreak = 12
)

// SetsWon counts the complete sets won by each team.
func SetsWon(s *ScoreSummary) [2]int {
	var won [2]int
	for set := 1; set <= MaxSets; set++ {
		if w, ok := s.Winner(set); ok {
			won[w]++
		}
	}
	return won
}

// SetResult describes how one set ended.
type SetResult struct {
	Set       int    `json:"set"`
	Winner    Team   `json:"winner"`
	Home      int    `json:"home"`
	Away      int    `json:"away"`
	MoneyTime bool   `json:"moneyTime"`
	Summary   string `json:"summary"`
}

// MoneyTimeReport lists the decided sets and the sets each team won after
// its opponent reached the money-time threshold.
type MoneyTimeReport struct {
	Sets       []SetResult `json:"sets"`
	ClutchWins [2]int      `json:"clutchWins"`
}

// MoneyTime classifies every complete set of m.
func MoneyTime(m *Match) MoneyTimeReport {
	rep := MoneyTimeReport{Sets: []SetResult{}}
	for set := 1; set <= MaxSets; set++ {
		w, ok := m.Scores.Winner(set)
		if !ok {
			continue
		}
		h, _ := m.Scores.Points(set, Home)
		a, _ := m.Scores.Points(set, Away)
		loser := min(h, a)
		threshold := MoneyTimePoints
		if set == MaxSets {
			threshold = MoneyTimePointsTieBreak
		}
		r := SetResult{Set: set, Winner: w, Home: h, Away: a, MoneyTime: loser >= threshold}
		if r.MoneyTime {
			rep.ClutchWins[w]++
			r.Summary = fmt.Sprintf("Set %d: money time won by %s (%d-%d)", set, m.TeamName(w), h, a)
		} else {
			r.Summary = fmt.Sprintf("Set %d: %s won comfortably (%d-%d)", set, m.TeamName(w), h, a)
		}
		rep.Sets = append(rep.Sets, r)
	}
	return rep
}

// PlayerStat is the starting record of one player.
type PlayerStat struct {
	Team        Team    `json:"team"`
	Number      string  `json:"number"`
	Name        string  `json:"name,omitempty"`
	SetsStarted int     `json:"setsStarted"`
	SetsWon     int     `json:"setsWon"`
	WinRate     float64 `json:"winRate"`
}

// PlayerStats counts, for every player found in a starting lineup, the sets
// started and how many of those the team won. Sets without a final score
// are ignored.
func PlayerStats(m *Match) []PlayerStat {
	type key struct {
		team   Team
		number string
	}
	stats := map[key]*PlayerStat{}
	for _, sd := range m.Sets {
		w, decided := m.Scores.Winner(sd.Set)
		if !decided {
			continue
		}
		for _, team := range []Team{Home, Away} {
			lu := m.Lineup(sd.Set, team)
			for _, num := range lu {
				if num == "" {
					continue
				}
				k := key{team, num}
				ps, ok := stats[k]
				if !ok {
					ps = &PlayerStat{Team: team, Number: num, Name: rosterName(m.Rosters[team], num)}
					stats[k] = ps
				}
				ps.SetsStarted++
				if w == team {
					ps.SetsWon++
				}
			}
		}
	}
	out := make([]PlayerStat, 0, len(stats))
	for _, ps := range stats {
		ps.WinRate = float64(ps.SetsWon) / float64(ps.SetsStarted)
		out = append(out, *ps)
	}
	slices.SortFunc(out, func(a, b PlayerStat) int {
		if c := cmp.Compare(a.Team, b.Team); c != 0 {
			return c
		}
		if c := cmp.Compare(b.SetsStarted, a.SetsStarted); c != 0 {
			return c
		}
		return compareNumbers(a.Number, b.Number)
	})
	return out
}

func rosterName(roster []Player, number string) string {
	for _, p := range roster {
		if p.Number == number {
			return p.Name
		}
	}
	return ""
}

// compareNumbers orders shirt numbers numerically when both parse.
func compareNumbers(a, b string) int {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return cmp.Compare(x, y)
	}
	return cmp.Compare(a, b)
}

// DurationReport lists the minutes of every set that has a duration.
type DurationReport struct {
	Sets  []SetDuration `json:"sets"`
	Total int           `json:"total"`
}

type SetDuration struct {
	Set     int `json:"set"`
	Minutes int `json:"minutes"`
}

// Durations sums the set durations of m.
func Durations(m *Match) DurationReport {
	rep := DurationReport{Sets: []SetDuration{}}
	for i, d := range m.Durations {
		if d <= 0 {
			continue
		}
		rep.Sets = append(rep.Sets, SetDuration{Set: i + 1, Minutes: d})
		rep.Total += d
	}
	return rep
}

// Analysis groups the match level statistics shown on the dashboard.
type Analysis struct {
	SetsWon   [2]int          `json:"setsWon"`
	MoneyTime MoneyTimeReport `json:"moneyTime"`
	Players   []PlayerStat    `json:"players"`
	Durations DurationReport  `json:"durations"`
}

// Analyze computes every match level statistic of m.
func Analyze(m *Match) Analysis {
	return Analysis{
		SetsWon:   SetsWon(&m.Scores),
		MoneyTime: MoneyTime(m),
		Players:   PlayerStats(m),
		Durations: Durations(m),
	}
}
