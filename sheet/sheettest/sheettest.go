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

// Package sheettest provides an in-memory sheet.TableReader and a sample
// four-set match for tests.
package sheettest

import (
	"fmt"

	"github.com/ttbt-io/volleysheet/sheet"
)

// Reader serves fixed tables and cells keyed by region.
type Reader struct {
	Tables map[sheet.Region]sheet.RawTable
	Cells  map[sheet.Region]string
	// Reads counts ReadRegion calls.
	Reads int
}

func NewReader() *Reader {
	return &Reader{
		Tables: make(map[sheet.Region]sheet.RawTable),
		Cells:  make(map[sheet.Region]string),
	}
}

func (r *Reader) ReadRegion(reg sheet.Region) (sheet.RawTable, error) {
	r.Reads++
	t, ok := r.Tables[reg]
	if !ok {
		return nil, fmt.Errorf("no table in region %s", reg)
	}
	return t, nil
}

func (r *Reader) ReadCell(reg sheet.Region) string {
	return r.Cells[reg]
}

// RawFromGrid lays the grid out in a raw table of the given size so that
// sheet.BuildGrid(raw, cm) returns g again.
func RawFromGrid(g sheet.Grid, cm sheet.ColumnMap, rows, cols int) sheet.RawTable {
	raw := make(sheet.RawTable, rows)
	for i := range raw {
		raw[i] = make([]string, cols)
	}
	for dest, src := range cm {
		if src.Row >= rows {
			continue
		}
		for i, c := range src.Cols {
			if c < cols {
				raw[src.Row][c] = g[dest][i]
			}
		}
	}
	return raw
}

// Set1Home and Set1Away are the first set grids of the sample match.
var (
	Set1Home = sheet.Grid{
		{"7", "12", "3", "9", "15", "1"},
		{"", "4", "", "", "", ""},
		{"", "14:12", "", "", "", ""},
		{"1", "3", "4", "6", "8", "9"},
		{"11", "12", "14", "15", "17", "18"},
		{"20", "21", "23", "25", "X", "X"},
	}
	Set1Away = sheet.Grid{
		{"2", "5", "8", "10", "11", "6"},
		{"", "", "13", "", "", ""},
		{"", "", "18:19", "", "", ""},
		{"2", "4", "5", "7", "9", "10"},
		{"12", "13", "15", "17", "19", "20"},
		{"21", "22", "X", "", "", ""},
	}
	otherHome = sheet.Grid{
		{"9", "15", "1", "7", "12", "3"},
		{}, {},
		{"2", "4", "6", "8", "10", "12"},
		{"14", "16", "18", "20", "22", "24"},
	}
	otherAway = sheet.Grid{
		{"6", "2", "5", "8", "10", "11"},
		{}, {},
		{"1", "3", "5", "7", "9", "11"},
		{"13", "15", "17", "19", "21", "23"},
	}
)

// Sample match values.
const (
	HomeName = "Volley Club Lyon"
	AwayName = "ASPTT Mulhouse"
	Date     = "12/10/2025"
)

// SampleResults is the results table: T S G P label duration P G S T.
var SampleResults = sheet.RawTable{
	{"T", "S", "G", "P", "Set", "Durée", "P", "G", "S", "T"},
	{"1", "2", "1", "25", "1", "24'", "21", "0", "3", "2"},
	{"2", "1", "0", "23", "2", "27'", "25", "1", "2", "1"},
	{"0", "3", "1", "26", "3", "31'", "24", "0", "4", "2"},
	{"1", "0", "1", "25", "4", "22'", "18", "0", "1", "1"},
	{"", "", "", "", "5", "", "", "", "", ""},
}

// SampleRosters are the two rosters. Number 1 is the home libero.
var SampleRosters = [2]sheet.RawTable{
	{
		{"1", "MARTIN Paul", "L"},
		{"3", "DUBOIS Luc", ""},
		{"7", "BERNARD Jean", ""},
		{"9", "PETIT Marc", ""},
		{"12", "ROUX Hugo", ""},
		{"15", "MOREAU Léo", ""},
		{"4", "GIRARD Tom", ""},
	},
	{
		{"N°", "Nom", ""},
		{"2", "LEROY Max", ""},
		{"5", "FAURE Noé", ""},
		{"6", "BLANC Eli", ""},
		{"8", "GARNIER Luc", ""},
		{"10", "FAVRE Jules", ""},
		{"11", "ROCHE Ivan", ""},
		{"13", "MEYER Adam", "L"},
	},
}

// SampleReader returns a reader holding a complete four-set sheet laid out
// according to l.
func SampleReader(l *sheet.Layout) *Reader {
	r := NewReader()
	r.Cells[l.Header.Home] = "Equipe A " + HomeName
	r.Cells[l.Header.Away] = "Equipe B " + AwayName
	r.Cells[l.Header.Date] = Date
	r.Tables[l.Results.Region] = SampleResults
	r.Tables[l.Rosters[sheet.Home]] = SampleRosters[sheet.Home]
	r.Tables[l.Rosters[sheet.Away]] = SampleRosters[sheet.Away]

	for set := 1; set <= 4; set++ {
		grids := [2]sheet.Grid{otherHome, otherAway}
		if set == 1 {
			grids = [2]sheet.Grid{Set1Home, Set1Away}
		}
		for _, team := range []sheet.Team{sheet.Home, sheet.Away} {
			side := l.SideOf(set, team)
			sr, ok := l.Lookup(set, side)
			if !ok {
				continue
			}
			raw := RawFromGrid(grids[team], sr.Columns, 16, 14)
			for i, ref := range sr.Timeouts {
				if i == 0 && ref.Row < len(raw) && ref.Col < len(raw[ref.Row]) {
					raw[ref.Row][ref.Col] = fmt.Sprintf("%d:%d", 8+set, 6+int(team))
				}
			}
			r.Tables[sr.Region] = raw
		}
	}
	return r
}
