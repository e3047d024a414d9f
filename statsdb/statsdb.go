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

// Package statsdb keeps cross-match player and rotation totals in SQL. It
// uses SQLite by default and PostgreSQL when given a postgres:// DSN.
package statsdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/ttbt-io/volleysheet/sheet"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "pgx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS match_players (
		match_id TEXT NOT NULL,
		team TEXT NOT NULL,
		team_name TEXT NOT NULL,
		number TEXT NOT NULL,
		name TEXT NOT NULL,
		sets_started INTEGER NOT NULL,
		sets_won INTEGER NOT NULL,
		PRIMARY KEY (match_id, team, number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_match_players_team ON match_players(team_name)`,
	`CREATE TABLE IF NOT EXISTS rotation_points (
		match_id TEXT NOT NULL,
		team TEXT NOT NULL,
		team_name TEXT NOT NULL,
		set_number INTEGER NOT NULL,
		rotation INTEGER NOT NULL,
		scored INTEGER NOT NULL,
		conceded INTEGER NOT NULL,
		PRIMARY KEY (match_id, team, set_number, rotation)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rotation_points_team ON rotation_points(team_name)`,
}

// DB is the statistics database.
type DB struct {
	db      *sql.DB
	dialect string
}

// Open connects to dsn. An empty dsn opens stats.db in dataDir; a dsn
// starting with postgres:// or postgresql:// uses the pgx driver; anything
// else is taken as a SQLite path.
func Open(ctx context.Context, dsn, dataDir string) (*DB, error) {
	dialect := dialectSQLite
	switch {
	case dsn == "":
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "stats.db")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dialect = dialectPostgres
	default:
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}

	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == dialectSQLite {
		// A single connection serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	d := &DB{db: db, dialect: dialect}
	if err := d.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) init(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Dialect returns the driver name in use.
func (d *DB) Dialect() string {
	return d.dialect
}

func (d *DB) Close() error {
	return d.db.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d *DB) rebind(q string) string {
	if d.dialect != dialectPostgres {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func teamKey(t sheet.Team) string {
	b, _ := t.MarshalText()
	return string(b)
}

// RecordMatch replaces the rows of match id with the statistics of m.
func (d *DB) RecordMatch(ctx context.Context, id string, m *sheet.Match) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := deleteMatch(ctx, tx, d, id); err != nil {
		return err
	}

	insPlayer := d.rebind(`INSERT INTO match_players
		(match_id, team, team_name, number, name, sets_started, sets_won)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, ps := range sheet.PlayerStats(m) {
		if _, err := tx.ExecContext(ctx, insPlayer,
			id, teamKey(ps.Team), m.TeamName(ps.Team), ps.Number, ps.Name, ps.SetsStarted, ps.SetsWon); err != nil {
			return fmt.Errorf("insert player %s: %w", ps.Number, err)
		}
	}

	insRot := d.rebind(`INSERT INTO rotation_points
		(match_id, team, team_name, set_number, rotation, scored, conceded)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, sd := range m.Sets {
		for _, team := range []sheet.Team{sheet.Home, sheet.Away} {
			if sd.Grids[team] == nil {
				continue
			}
			for _, r := range sheet.RotationTable(sd.Grids[team], sd.Grids[team.Other()]) {
				if _, err := tx.ExecContext(ctx, insRot,
					id, teamKey(team), m.TeamName(team), sd.Set, r.Rotation, r.Scored, r.Conceded); err != nil {
					return fmt.Errorf("insert rotation: %w", err)
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func deleteMatch(ctx context.Context, tx *sql.Tx, d *DB, id string) error {
	for _, table := range []string{"match_players", "rotation_points"} {
		if _, err := tx.ExecContext(ctx, d.rebind("DELETE FROM "+table+" WHERE match_id = ?"), id); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

// DeleteMatch removes every row of match id.
func (d *DB) DeleteMatch(ctx context.Context, id string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	if err := deleteMatch(ctx, tx, d, id); err != nil {
		return err
	}
	return tx.Commit()
}

// PlayerTotal aggregates one player over all recorded matches.
type PlayerTotal struct {
	TeamName    string  `json:"teamName"`
	Number      string  `json:"number"`
	Name        string  `json:"name"`
	Matches     int     `json:"matches"`
	SetsStarted int     `json:"setsStarted"`
	SetsWon     int     `json:"setsWon"`
	WinRate     float64 `json:"winRate"`
}

// PlayerTotals returns the per player totals, optionally restricted to one
// team name.
func (d *DB) PlayerTotals(ctx context.Context, teamName string) ([]PlayerTotal, error) {
	q := `SELECT team_name, number, MAX(name), COUNT(DISTINCT match_id), SUM(sets_started), SUM(sets_won)
		FROM match_players`
	var args []any
	if teamName != "" {
		q += ` WHERE team_name = ?`
		args = append(args, teamName)
	}
	q += ` GROUP BY team_name, number ORDER BY team_name, SUM(sets_started) DESC, number`

	rows, err := d.db.QueryContext(ctx, d.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	out := []PlayerTotal{}
	for rows.Next() {
		var p PlayerTotal
		var matches, started, won int64
		if err := rows.Scan(&p.TeamName, &p.Number, &p.Name, &matches, &started, &won); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.Matches, p.SetsStarted, p.SetsWon = int(matches), int(started), int(won)
		if p.SetsStarted > 0 {
			p.WinRate = float64(p.SetsWon) / float64(p.SetsStarted)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RotationTotal aggregates one rotation of a team over all recorded sets.
type RotationTotal struct {
	Rotation int `json:"rotation"`
	Sets     int `json:"sets"`
	Scored   int `json:"scored"`
	Conceded int `json:"conceded"`
	Diff     int `json:"diff"`
}

// RotationTotals returns the six rotation totals of a team.
func (d *DB) RotationTotals(ctx context.Context, teamName string) ([]RotationTotal, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(`SELECT rotation, COUNT(*), SUM(scored), SUM(conceded)
		FROM rotation_points WHERE team_name = ?
		GROUP BY rotation ORDER BY rotation`), teamName)
	if err != nil {
		return nil, fmt.Errorf("query rotations: %w", err)
	}
	defer rows.Close()

	out := []RotationTotal{}
	for rows.Next() {
		var r RotationTotal
		var rot, sets, scored, conceded int64
		if err := rows.Scan(&rot, &sets, &scored, &conceded); err != nil {
			return nil, fmt.Errorf("scan rotation: %w", err)
		}
		r.Rotation, r.Sets, r.Scored, r.Conceded = int(rot), int(sets), int(scored), int(conceded)
		r.Diff = r.Scored - r.Conceded
		out = append(out, r)
	}
	return out, rows.Err()
}
