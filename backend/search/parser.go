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

// Package search parses the match list query language:
//
//	home:lyon away:"ASPTT Mulhouse" date:>=2025-09 date:2025-10..2025-12 free text
package search

import (
	"strings"
	"unicode"
)

// Operator is the comparison of a Filter.
type Operator string

const (
	OpEqual          Operator = "="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpRange          Operator = ".." // date:2025-01..2025-02
)

// Prefix operators, longest first.
var prefixOps = []Operator{OpGreaterOrEqual, OpLessOrEqual, OpGreater, OpLess}

// Filter is one key:value term.
type Filter struct {
	Key      string
	Value    string
	MaxValue string // OpRange only
	Operator Operator
}

// Query is a parsed query string.
type Query struct {
	Filters  []Filter
	FreeText []string
}

// Empty reports whether the query selects everything.
func (q Query) Empty() bool {
	return len(q.Filters) == 0 && len(q.FreeText) == 0
}

// Parse splits input into filters and free text. Quoted values may contain
// spaces. A term whose key or value is empty, or whose unquoted value holds
// another colon, is kept as free text.
func Parse(input string) Query {
	q := Query{
		Filters:  []Filter{},
		FreeText: []string{},
	}
	for _, tok := range tokenize(input) {
		key, val, ok := strings.Cut(tok, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		if !ok {
			q.FreeText = append(q.FreeText, unquote(tok))
			continue
		}
		if key == "" || val == "" || (strings.Contains(val, ":") && !quoted(val)) {
			q.FreeText = append(q.FreeText, tok)
			continue
		}
		q.Filters = append(q.Filters, parseFilter(key, val))
	}
	return q
}

func parseFilter(key, val string) Filter {
	if lo, hi, ok := strings.Cut(val, ".."); ok {
		return Filter{Key: key, Value: unquote(lo), MaxValue: unquote(hi), Operator: OpRange}
	}
	for _, op := range prefixOps {
		if rest, ok := strings.CutPrefix(val, string(op)); ok {
			return Filter{Key: key, Value: unquote(rest), Operator: op}
		}
	}
	return Filter{Key: key, Value: unquote(val), Operator: OpEqual}
}

// tokenize splits on white space outside of quotes. Quotes are kept.
func tokenize(input string) []string {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range input {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func quoted(s string) bool {
	return strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'")
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
