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

package search

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Query
	}{
		{
			input:    "",
			expected: Query{Filters: []Filter{}, FreeText: []string{}},
		},
		{
			input: "home:Lyon",
			expected: Query{
				Filters:  []Filter{{Key: "home", Value: "Lyon", Operator: OpEqual}},
				FreeText: []string{},
			},
		},
		{
			input: `away:"ASPTT Mulhouse" HOME:'Volley Club'`,
			expected: Query{
				Filters: []Filter{
					{Key: "away", Value: "ASPTT Mulhouse", Operator: OpEqual},
					{Key: "home", Value: "Volley Club", Operator: OpEqual},
				},
				FreeText: []string{},
			},
		},
		{
			input: `date:>="2025-09-01" nationale`,
			expected: Query{
				Filters:  []Filter{{Key: "date", Value: "2025-09-01", Operator: OpGreaterOrEqual}},
				FreeText: []string{"nationale"},
			},
		},
		{
			input: "date:<2026 date:>2024 date:<=2025-12",
			expected: Query{
				Filters: []Filter{
					{Key: "date", Value: "2026", Operator: OpLess},
					{Key: "date", Value: "2024", Operator: OpGreater},
					{Key: "date", Value: "2025-12", Operator: OpLessOrEqual},
				},
				FreeText: []string{},
			},
		},
		{
			input: "date:2025-10..2025-12",
			expected: Query{
				Filters:  []Filter{{Key: "date", Value: "2025-10", MaxValue: "2025-12", Operator: OpRange}},
				FreeText: []string{},
			},
		},
		{
			input: `lyon "elite masculine"`,
			expected: Query{
				Filters:  []Filter{},
				FreeText: []string{"lyon", "elite masculine"},
			},
		},
		{
			input: "broken:range:.. home: :x",
			expected: Query{
				Filters:  []Filter{},
				FreeText: []string{"broken:range:..", "home:", ":x"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Parse(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestQueryEmpty(t *testing.T) {
	if !Parse("   ").Empty() {
		t.Error("blank query should be empty")
	}
	if Parse("x").Empty() {
		t.Error("free text query should not be empty")
	}
}

func TestFold(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Équipe", "equipe"},
		{"SAINT-ÉTIENNE", "saint-etienne"},
		{"Cœur", "cœur"},
		{"Mulhouse", "mulhouse"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if !Contains("AS Saint-Étienne", "etienne") {
		t.Error("Contains should ignore accents")
	}
	if Contains("Lyon", "paris") {
		t.Error("Contains(Lyon, paris) should be false")
	}
}

func TestCompareDate(t *testing.T) {
	const date = "2025-10-12"
	tests := []struct {
		query string
		want  bool
	}{
		{"date:2025-10", true},
		{"date:2025-11", false},
		{"date:>2025-10-11", true},
		{"date:>=2025-10-12", true},
		{"date:<2025-10-12", false},
		{"date:<=2025-10-12", true},
		{"date:2025-09..2025-10", true},
		{"date:2025-11..2025-12", false},
	}
	for _, tt := range tests {
		f := Parse(tt.query).Filters[0]
		if got := CompareDate(date, f); got != tt.want {
			t.Errorf("CompareDate(%s) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
