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

// Lineup holds the player numbers in zones 1 to 6. Zone 1 is the back-right
// server position, zone 6 the back-center.
type Lineup [GridCols]string

// LineupFrom copies up to six values into a Lineup.
func LineupFrom(s []string) Lineup {
	var l Lineup
	copy(l[:], s)
	return l
}

// Rotate returns the lineup after k clockwise rotations: the player in zone
// 2 moves to zone 1 on every side-out. Negative k rotates backwards.
func Rotate(l Lineup, k int) Lineup {
	k %= GridCols
	if k < 0 {
		k += GridCols
	}
	var out Lineup
	for i := range GridCols {
		out[i] = l[(i+k)%GridCols]
	}
	return out
}

// Placement is a player number drawn at a normalized court position. X goes
// left to right and Y from the net (0) to the end line (1).
type Placement struct {
	Zone     int     `json:"zone"`
	Number   string  `json:"number"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	OffCourt bool    `json:"offCourt,omitempty"`
}

var zonePositions = [GridCols][2]float64{
	{0.83, 0.75}, // 1
	{0.83, 0.20}, // 2
	{0.50, 0.20}, // 3
	{0.17, 0.20}, // 4
	{0.17, 0.75}, // 5
	{0.50, 0.75}, // 6
}

// ServeY is the position of the server behind the end line.
const ServeY = 1.1

// CourtLayout places the lineup on the court. When serving is set the zone
// 1 player stands behind the end line.
func CourtLayout(l Lineup, serving bool) []Placement {
	out := make([]Placement, 0, GridCols)
	for i := range GridCols {
		p := Placement{
			Zone:   i + 1,
			Number: l[i],
			X:      zonePositions[i][0],
			Y:      zonePositions[i][1],
		}
		if i == 0 && serving {
			p.Y = ServeY
			p.OffCourt = true
		}
		out = append(out, p)
	}
	return out
}
