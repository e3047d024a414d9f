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
	"encoding/json"
	"fmt"
	"iter"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"

	"github.com/ttbt-io/volleysheet/sheet"
)

// MatchRecord is an imported match as stored on disk.
type MatchRecord struct {
	ID            string `json:"id"`
	SchemaVersion int    `json:"schemaVersion"`
	OwnerID       string `json:"ownerId"`
	Public        bool   `json:"public"`
	Status        string `json:"status"`
	ImportedAt    int64  `json:"importedAt"`
	FileName      string `json:"fileName,omitempty"`
	SourceSHA256  string `json:"sourceSha256,omitempty"`
	Layout        string `json:"layout,omitempty"`

	// DeletedAt is the timestamp (Unix Nano) when the match was deleted.
	DeletedAt int64 `json:"deletedAt,omitempty"`

	// Match is nil in tombstones.
	Match *sheet.Match `json:"match,omitempty"`
}

// MatchMetadata contains only the fields needed for indexing and listing.
type MatchMetadata struct {
	ID         string `json:"id"`
	OwnerID    string `json:"ownerId"`
	Public     bool   `json:"public"`
	Status     string `json:"status"`
	Home       string `json:"home"`
	Away       string `json:"away"`
	Date       string `json:"date"`
	FileName   string `json:"fileName,omitempty"`
	SetsWon    [2]int `json:"setsWon"`
	Warnings   int    `json:"warnings"`
	ImportedAt int64  `json:"importedAt"`
	DeletedAt  int64  `json:"deletedAt,omitempty"`
}

// Metadata derives the index entry of r.
func (r *MatchRecord) Metadata() MatchMetadata {
	m := MatchMetadata{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		Public:     r.Public,
		Status:     r.Status,
		FileName:   r.FileName,
		ImportedAt: r.ImportedAt,
		DeletedAt:  r.DeletedAt,
	}
	if r.Match != nil {
		m.Home = r.Match.Home
		m.Away = r.Match.Away
		m.Date = isoDate(r.Match.Date)
		m.SetsWon = sheet.SetsWon(&r.Match.Scores)
		m.Warnings = len(r.Match.Warnings)
	}
	return m
}

// GobEncode stores the record as JSON. gob rejects the nil elements of
// the fixed size arrays in sheet.Match (scores of unplayed sets, missing
// grids and lineups).
func (r *MatchRecord) GobEncode() ([]byte, error) {
	type plain MatchRecord
	return json.Marshal((*plain)(r))
}

func (r *MatchRecord) GobDecode(b []byte) error {
	type plain MatchRecord
	return json.Unmarshal(b, (*plain)(r))
}

func (r *MatchRecord) normalize() {
	if r.SchemaVersion == 0 {
		r.SchemaVersion = CurrentSchemaVersion
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
}

// MatchStore persists match records with c2FmZQ/storage, one file per
// match plus a small metadata sidecar.
type MatchStore struct {
	DataDir string
	Debug   bool
	storage *storage.Storage
	mu      sync.Map // *sync.RWMutex per match ID
	cache   sync.Map // latest JSON per match ID
}

// NewMatchStore creates a new MatchStore.
func NewMatchStore(dataDir string, s *storage.Storage) *MatchStore {
	return &MatchStore{
		DataDir: dataDir,
		storage: s,
	}
}

func (ms *MatchStore) lock(id string) *sync.RWMutex {
	m, _ := ms.mu.LoadOrStore(id, &sync.RWMutex{})
	return m.(*sync.RWMutex)
}

func matchFiles(id string) (data, meta string) {
	enc := url.PathEscape(id)
	return filepath.Join(matchesDir, enc+".json"), filepath.Join(matchesDir, enc+".meta.json")
}

// SaveMatch writes rec and its metadata sidecar.
func (ms *MatchStore) SaveMatch(rec *MatchRecord) error {
	rec.normalize()
	mutex := ms.lock(rec.ID)
	mutex.Lock()
	defer mutex.Unlock()
	return ms.saveLocked(rec)
}

func (ms *MatchStore) saveLocked(rec *MatchRecord) error {
	filename, metaFilename := matchFiles(rec.ID)
	if err := ms.storage.SaveDataFile(filename, rec); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	meta := rec.Metadata()
	if err := ms.storage.SaveDataFile(metaFilename, &meta); err != nil {
		// The main file is authoritative; listing falls back to it.
		log.Printf("Warning: Failed to save metadata sidecar for match %s: %v", rec.ID, err)
	}
	if b, err := json.Marshal(rec); err == nil {
		ms.cache.Store(rec.ID, b)
	}
	return nil
}

// LoadMatch loads a match by ID. It returns os.ErrNotExist when there is
// no such match. Tombstones are returned like any other record.
func (ms *MatchStore) LoadMatch(id string) (*MatchRecord, error) {
	if val, ok := ms.cache.Load(id); ok {
		var rec MatchRecord
		if err := json.Unmarshal(val.([]byte), &rec); err == nil {
			if ms.Debug {
				log.Printf("[CACHE] Hit for match %s", id)
			}
			return &rec, nil
		}
		ms.cache.Delete(id)
	}

	mutex := ms.lock(id)
	mutex.RLock()
	defer mutex.RUnlock()

	filename, _ := matchFiles(id)
	var rec MatchRecord
	if err := ms.storage.ReadDataFile(filename, &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	if rec.SchemaVersion > CurrentSchemaVersion {
		return nil, fmt.Errorf("match %s has unsupported schema version %d", id, rec.SchemaVersion)
	}
	rec.normalize()
	if b, err := json.Marshal(&rec); err == nil {
		ms.cache.Store(id, b)
	}
	return &rec, nil
}

// LoadMatchMetadata reads the sidecar of a match, falling back to the
// main file.
func (ms *MatchStore) LoadMatchMetadata(id string) (MatchMetadata, error) {
	_, metaFilename := matchFiles(id)
	var meta MatchMetadata
	if err := ms.storage.ReadDataFile(metaFilename, &meta); err == nil {
		return meta, nil
	}
	rec, err := ms.LoadMatch(id)
	if err != nil {
		return MatchMetadata{}, err
	}
	return rec.Metadata(), nil
}

// DeleteMatch replaces a match with a tombstone and returns the metadata
// it had before. Deleting a missing match is not an error.
func (ms *MatchStore) DeleteMatch(id string) (MatchMetadata, error) {
	rec, err := ms.LoadMatch(id)
	if err != nil {
		if os.IsNotExist(err) {
			return MatchMetadata{}, nil
		}
		return MatchMetadata{}, err
	}
	before := rec.Metadata()
	if rec.Status == StatusDeleted {
		return before, nil
	}

	mutex := ms.lock(id)
	mutex.Lock()
	defer mutex.Unlock()

	tombstone := &MatchRecord{
		ID:            id,
		SchemaVersion: CurrentSchemaVersion,
		OwnerID:       rec.OwnerID,
		Status:        StatusDeleted,
		ImportedAt:    rec.ImportedAt,
		DeletedAt:     time.Now().UnixNano(),
	}
	if err := ms.saveLocked(tombstone); err != nil {
		return before, fmt.Errorf("tombstone: %w", err)
	}
	return before, nil
}

// PurgeMatch permanently deletes the files of a match.
func (ms *MatchStore) PurgeMatch(id string) error {
	mutex := ms.lock(id)
	mutex.Lock()
	defer mutex.Unlock()

	ms.cache.Delete(id)
	filename, metaFilename := matchFiles(id)
	if err := os.Remove(filepath.Join(ms.DataDir, filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not purge match file: %w", err)
	}
	if err := os.Remove(filepath.Join(ms.DataDir, metaFilename)); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not purge meta file for match %s: %v", id, err)
	}
	ms.mu.Delete(id)
	return nil
}

// ListAllMatchIDs returns the IDs of every stored match, tombstones
// included.
func (ms *MatchStore) ListAllMatchIDs() ([]string, error) {
	files, err := os.ReadDir(filepath.Join(ms.DataDir, matchesDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("could not read matches directory: %w", err)
	}
	ids := []string{}
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || strings.HasSuffix(name, ".meta.json") || !strings.HasSuffix(name, ".json") {
			continue
		}
		if id, err := url.PathUnescape(strings.TrimSuffix(name, ".json")); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ListAllMatchMetadata yields the metadata of every stored match without
// loading full records, except for matches whose sidecar is missing or
// unreadable.
func (ms *MatchStore) ListAllMatchMetadata() iter.Seq2[MatchMetadata, error] {
	return func(yield func(MatchMetadata, error) bool) {
		ids, err := ms.ListAllMatchIDs()
		if err != nil {
			yield(MatchMetadata{}, err)
			return
		}
		for _, id := range ids {
			meta, err := ms.LoadMatchMetadata(id)
			if err != nil {
				log.Printf("Registry Warning: failed to load match %s from disk: %v", id, err)
				continue
			}
			if !yield(meta, nil) {
				return
			}
		}
	}
}
