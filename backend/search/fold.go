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
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips combining marks, so that "Équipe" and
// "equipe" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Contains reports whether substr occurs in s, ignoring case and accents.
func Contains(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// CompareDate applies a date filter to an ISO date (YYYY-MM-DD). Prefixes
// match: date:2025-10 selects every day of October.
func CompareDate(date string, f Filter) bool {
	switch f.Operator {
	case OpEqual:
		return strings.HasPrefix(date, f.Value)
	case OpGreater:
		return date > f.Value
	case OpGreaterOrEqual:
		return date >= f.Value
	case OpLess:
		return date < f.Value
	case OpLessOrEqual:
		return date <= f.Value
	case OpRange:
		return date >= f.Value && date <= f.MaxValue+"~"
	}
	return true
}
