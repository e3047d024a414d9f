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
	"strconv"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// numberedTable returns a rows x cols table whose cells are "r.c".
func numberedTable(rows, cols int) RawTable {
	t := make(RawTable, rows)
	for r := range t {
		t[r] = make([]string, cols)
		for c := range t[r] {
			t[r][c] = strconv.Itoa(r) + "." + strconv.Itoa(c)
		}
	}
	return t
}

func TestBuildGrid(t *testing.T) {
	raw := numberedTable(5, 14)
	raw[2][3] = "  padded  "

	tests := []struct {
		name string
		cm   ColumnMap
		row  int
		want []string
	}{
		{
			name: "odd columns",
			cm:   ColumnMap{0: {Row: 1, Cols: []int{1, 3, 5, 7, 9, 11}}},
			row:  0,
			want: []string{"1.1", "1.3", "1.5", "1.7", "1.9", "1.11"},
		},
		{
			name: "cells are trimmed",
			cm:   ColumnMap{4: {Row: 2, Cols: []int{3, 4, 5, 6, 7, 8}}},
			row:  4,
			want: []string{"padded", "2.4", "2.5", "2.6", "2.7", "2.8"},
		},
		{
			name: "source row missing",
			cm:   ColumnMap{0: {Row: 5, Cols: []int{0, 1, 2, 3, 4, 5}}},
			row:  0,
			want: []string{"", "", "", "", "", ""},
		},
		{
			name: "column out of bounds",
			cm:   ColumnMap{0: {Row: 1, Cols: []int{2, 4, 6, 8, 10, 14}}},
			row:  0,
			want: []string{"", "", "", "", "", ""},
		},
		{
			name: "five columns",
			cm:   ColumnMap{0: {Row: 1, Cols: []int{0, 1, 2, 3, 4}}},
			row:  0,
			want: []string{"", "", "", "", "", ""},
		},
		{
			name: "seven columns",
			cm:   ColumnMap{0: {Row: 1, Cols: []int{0, 1, 2, 3, 4, 5, 6}}},
			row:  0,
			want: []string{"", "", "", "", "", ""},
		},
		{
			name: "negative source row",
			cm:   ColumnMap{0: {Row: -1, Cols: []int{0, 1, 2, 3, 4, 5}}},
			row:  0,
			want: []string{"", "", "", "", "", ""},
		},
		{
			name: "destination outside grid",
			cm:   ColumnMap{12: {Row: 1, Cols: []int{0, 1, 2, 3, 4, 5}}},
			row:  11,
			want: []string{"", "", "", "", "", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := BuildGrid(raw, tt.cm)
			if got := g.Row(tt.row); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("row %d = %q, want %q", tt.row, got, tt.want)
			}
		})
	}
}

func TestBuildGrid_RaggedRows(t *testing.T) {
	raw := RawTable{
		{"a", "b", "c", "d", "e", "f"},
		{"a", "b", "c"},
	}
	cm := ColumnMap{
		0: {Row: 0, Cols: []int{0, 1, 2, 3, 4, 5}},
		1: {Row: 1, Cols: []int{0, 1, 2, 3, 4, 5}},
	}
	g := BuildGrid(raw, cm)
	if !g.RowPopulated(0) {
		t.Errorf("row 0 should be populated")
	}
	if g.RowPopulated(1) {
		t.Errorf("row 1 should stay empty, got %q", g.Row(1))
	}
}

func TestBuildGrid_Pure(t *testing.T) {
	raw := numberedTable(16, 14)
	l := DefaultLayout()
	for _, sr := range l.Sets {
		a := BuildGrid(raw, sr.Columns)
		b := BuildGrid(raw, sr.Columns)
		if a != b {
			t.Fatalf("set %d %s: BuildGrid is not deterministic", sr.Set, sr.Side)
		}
	}
	if raw[1][1] != "1.1" {
		t.Errorf("BuildGrid modified its input")
	}
}

func TestBuildGrid_DefaultLayoutGolden(t *testing.T) {
	raw := numberedTable(16, 14)
	sr, ok := DefaultLayout().Lookup(1, SideLeft)
	if !ok {
		t.Fatal("set 1 left missing from default layout")
	}
	g := BuildGrid(raw, sr.Columns)

	want := "" +
		"1.1\t1.3\t1.5\t1.7\t1.9\t1.11\n" +
		"2.1\t2.3\t2.5\t2.7\t2.9\t2.11\n" +
		"3.1\t3.3\t3.5\t3.7\t3.9\t3.11\n" +
		"4.0\t4.2\t4.4\t4.6\t4.8\t4.10\n" +
		"5.1\t5.3\t5.5\t5.7\t5.9\t5.11\n" +
		"6.0\t6.2\t6.4\t6.6\t6.8\t6.10\n" +
		"7.1\t7.3\t7.5\t7.7\t7.9\t7.11\n" +
		"8.0\t8.2\t8.4\t8.6\t8.8\t8.10\n" +
		"9.1\t9.3\t9.5\t9.7\t9.9\t9.11\n" +
		"10.0\t10.2\t10.4\t10.6\t10.8\t10.10\n" +
		"11.1\t11.3\t11.5\t11.7\t11.9\t11.11\n" +
		"12.0\t12.2\t12.4\t12.6\t12.8\t12.10\n"

	if got := g.String(); got != want {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(want),
			B:        difflib.SplitLines(got),
			FromFile: "want",
			ToFile:   "got",
			Context:  2,
		})
		t.Errorf("grid mismatch:\n%s", diff)
	}
}

func TestRawTableCell(t *testing.T) {
	raw := RawTable{{" a "}, {}}
	if got := raw.Cell(0, 0); got != "a" {
		t.Errorf("Cell(0,0) = %q", got)
	}
	if got := raw.RawCell(0, 0); got != " a " {
		t.Errorf("RawCell(0,0) = %q", got)
	}
	if got := raw.RawCell(5, 0); got != "" {
		t.Errorf("RawCell(5,0) = %q, want empty", got)
	}
	for _, rc := range [][2]int{{1, 0}, {2, 0}, {-1, 0}, {0, 1}} {
		if got := raw.Cell(rc[0], rc[1]); got != "" {
			t.Errorf("Cell(%d,%d) = %q, want empty", rc[0], rc[1], got)
		}
	}
}
