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

import "testing"

func TestRotate(t *testing.T) {
	l := Lineup{"1", "2", "3", "4", "5", "6"}
	tests := []struct {
		k    int
		want Lineup
	}{
		{0, Lineup{"1", "2", "3", "4", "5", "6"}},
		{1, Lineup{"2", "3", "4", "5", "6", "1"}},
		{2, Lineup{"3", "4", "5", "6", "1", "2"}},
		{6, Lineup{"1", "2", "3", "4", "5", "6"}},
		{7, Lineup{"2", "3", "4", "5", "6", "1"}},
		{-1, Lineup{"6", "1", "2", "3", "4", "5"}},
	}
	for _, tt := range tests {
		if got := Rotate(l, tt.k); got != tt.want {
			t.Errorf("Rotate(%d) = %v, want %v", tt.k, got, tt.want)
		}
	}
}

func TestCourtLayout(t *testing.T) {
	l := Lineup{"7", "12", "3", "", "15", "1"}

	t.Run("receiving", func(t *testing.T) {
		p := CourtLayout(l, false)
		if len(p) != 6 {
			t.Fatalf("got %d placements", len(p))
		}
		for i, pl := range p {
			if pl.Zone != i+1 || pl.Number != l[i] {
				t.Errorf("placement %d = %+v", i, pl)
			}
			if pl.OffCourt || pl.Y > 1 {
				t.Errorf("zone %d should be on court: %+v", pl.Zone, pl)
			}
		}
		// Zones 2 to 4 are at the net, zones 1, 5 and 6 at the back.
		if p[1].Y >= p[0].Y || p[3].X >= p[2].X {
			t.Errorf("unexpected geometry: %+v", p)
		}
		if p[3].Number != "" {
			t.Errorf("missing number should stay blank")
		}
	})

	t.Run("serving", func(t *testing.T) {
		p := CourtLayout(l, true)
		if !p[0].OffCourt || p[0].Y != ServeY {
			t.Errorf("server should be behind the end line: %+v", p[0])
		}
		for _, pl := range p[1:] {
			if pl.OffCourt {
				t.Errorf("zone %d should be on court", pl.Zone)
			}
		}
	})
}
