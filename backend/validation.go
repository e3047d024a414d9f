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

package backend

import (
	"errors"
	"fmt"
	"net/mail"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ttbt-io/volleysheet/sheet"
)

const (
	maxTeamNameLength = 200
	maxFileNameLength = 255
	maxWarnings       = 100
)

// isValidUUID checks if the string is a canonical UUID (8-4-4-4-12).
func isValidUUID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// isValidEmail checks if the string is a valid email address.
func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// cleanFileName keeps the base name of an uploaded file.
func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	if len(name) > maxFileNameLength {
		name = name[:maxFileNameLength]
	}
	return strings.ToValidUTF8(name, "")
}

// isoDate rewrites a sheet date (DD/MM/YYYY, DD/MM/YY or DD.MM.YYYY) as
// YYYY-MM-DD so dates sort and compare as strings. Anything else is
// returned unchanged.
func isoDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"02/01/2006", "2/1/2006", "02/01/06", "02.01.2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return s
}

// ValidateMatch checks an extracted match before it is stored.
func ValidateMatch(m *sheet.Match) error {
	if m == nil {
		return errors.New("missing match")
	}
	var errs []error
	for _, name := range []string{m.Home, m.Away} {
		if !utf8.ValidString(name) {
			errs = append(errs, fmt.Errorf("team name is not valid UTF-8"))
		}
		if len(name) > maxTeamNameLength {
			errs = append(errs, fmt.Errorf("team name too long (%d bytes)", len(name)))
		}
	}
	last := 0
	for _, sd := range m.Sets {
		if sd.Set < 1 || sd.Set > sheet.MaxSets {
			errs = append(errs, fmt.Errorf("invalid set number %d", sd.Set))
			continue
		}
		if sd.Set <= last {
			errs = append(errs, fmt.Errorf("set %d out of order", sd.Set))
		}
		last = sd.Set
		for _, to := range sd.Timeouts {
			if len(to.Markers) > sheet.MaxTimeouts {
				errs = append(errs, fmt.Errorf("set %d: %d timeouts", sd.Set, len(to.Markers)))
			}
		}
	}
	for set := 1; set <= sheet.MaxSets; set++ {
		for _, team := range []sheet.Team{sheet.Home, sheet.Away} {
			if p, ok := m.Scores.Points(set, team); ok && p < 0 {
				errs = append(errs, fmt.Errorf("set %d: negative score", set))
			}
		}
		if m.Durations[set-1] < 0 {
			errs = append(errs, fmt.Errorf("set %d: negative duration", set))
		}
	}
	if len(m.Warnings) > maxWarnings {
		errs = append(errs, fmt.Errorf("too many warnings (%d)", len(m.Warnings)))
	}
	return errors.Join(errs...)
}
