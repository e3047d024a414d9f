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

// sheetdump reads an FFvolley score sheet and prints what was extracted.
//
//	go run ./tools/sheetdump [-layout layout.json] [-grids] [-court out.png -set 1 -team home -rotation 1] sheet.pdf
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ttbt-io/volleysheet/pdfsheet"
	"github.com/ttbt-io/volleysheet/render"
	"github.com/ttbt-io/volleysheet/sheet"
)

var (
	layoutFile = flag.String("layout", "", "JSON file with the score sheet layout")
	grids      = flag.Bool("grids", false, "Print the canonical grids as text instead of JSON")
	courtFile  = flag.String("court", "", "Write a court diagram PNG to this file")
	setNum     = flag.Int("set", 1, "Set of the court diagram")
	teamName   = flag.String("team", "home", "Team of the court diagram: home or away")
	rotation   = flag.Int("rotation", 1, "Rotation of the court diagram, 1 to 6")
	serving    = flag.Bool("serving", false, "Draw the court diagram for the serving team")
)

type rotations struct {
	Set  int                 `json:"set"`
	Team sheet.Team          `json:"team"`
	Rows []sheet.RotationRow `json:"rows"`
}

type dump struct {
	Match     *sheet.Match   `json:"match"`
	Analysis  sheet.Analysis `json:"analysis"`
	Rotations []rotations    `json:"rotations"`
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] sheet.pdf\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	layout := sheet.DefaultLayout()
	if *layoutFile != "" {
		l, err := sheet.LoadLayout(*layoutFile)
		if err != nil {
			log.Fatalf("Failed to load layout: %v", err)
		}
		layout = l
	}
	page, err := pdfsheet.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
	m := sheet.Extract(page, layout)
	for _, w := range m.Warnings {
		log.Printf("Warning: %s", w)
	}

	if *courtFile != "" {
		if err := writeCourt(m); err != nil {
			log.Fatalf("Court: %v", err)
		}
	}

	if *grids {
		for _, sd := range m.Sets {
			for _, team := range []sheet.Team{sheet.Home, sheet.Away} {
				if sd.Grids[team] == nil {
					continue
				}
				fmt.Printf("== Set %d, %s (%s)\n%s\n", sd.Set, m.TeamName(team), team, sd.Grids[team])
			}
		}
		return
	}

	out := dump{Match: m, Analysis: sheet.Analyze(m)}
	for _, sd := range m.Sets {
		for _, team := range []sheet.Team{sheet.Home, sheet.Away} {
			if sd.Grids[team] == nil || sd.Grids[team.Other()] == nil {
				continue
			}
			out.Rotations = append(out.Rotations, rotations{
				Set:  sd.Set,
				Team: team,
				Rows: sheet.RotationTable(sd.Grids[team], sd.Grids[team.Other()]),
			})
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("JSON: %v", err)
	}
}

func writeCourt(m *sheet.Match) error {
	team, err := sheet.ParseTeam(*teamName)
	if err != nil {
		return err
	}
	if *rotation < 1 || *rotation > 6 {
		return fmt.Errorf("rotation %d out of range", *rotation)
	}
	sd := m.Set(*setNum)
	if sd == nil {
		return fmt.Errorf("set %d not found", *setNum)
	}
	opts := render.CourtOptions{
		Title:   fmt.Sprintf("%s - set %d - rotation %d", m.TeamName(team), *setNum, *rotation),
		Lineup:  sheet.Rotate(m.Lineup(*setNum, team), *rotation-1),
		Serving: *serving,
	}
	if sd.Grids[team] != nil && sd.Grids[team.Other()] != nil {
		rows := sheet.RotationTable(sd.Grids[team], sd.Grids[team.Other()])
		opts.Stats = &rows[*rotation-1]
	}
	f, err := os.Create(*courtFile)
	if err != nil {
		return err
	}
	if err := render.Court(f, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
