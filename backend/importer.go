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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ttbt-io/volleysheet/pdfsheet"
	"github.com/ttbt-io/volleysheet/sheet"
	"github.com/ttbt-io/volleysheet/statsdb"
)

// Opener turns an uploaded document into a TableReader.
type Opener func(data []byte) (sheet.TableReader, error)

// OpenPDF is the default Opener.
func OpenPDF(data []byte) (sheet.TableReader, error) {
	p, err := pdfsheet.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	return p, nil
}

var (
	// ErrUnreadable wraps errors of the Opener.
	ErrUnreadable = errors.New("unreadable document")
	// ErrInvalidMatch is returned when an extracted match fails validation.
	ErrInvalidMatch = errors.New("invalid match")
	// ErrQuotaExceeded is returned when the owner may not import another
	// match.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// Importer runs extraction and records the result everywhere it is
// needed. Stats, Cache, Metrics, Hub and Quota are optional.
type Importer struct {
	Layout   *sheet.Layout
	Open     Opener
	Store    *MatchStore
	Registry *Registry
	Cache    *ExtractCache
	Stats    *statsdb.DB
	Metrics  *Metrics
	Hub      *Hub

	// Quota fails when an owner of count active matches may not import
	// another one.
	Quota func(ownerId string, count int) error

	debugf func(string, ...any)
}

func (im *Importer) logf(f string, a ...any) {
	if im.debugf != nil {
		im.debugf(f, a...)
	}
}

// Extract reads data with the active layout. The second result reports
// whether the match came from the cache.
func (im *Importer) Extract(data []byte) (*sheet.Match, bool, error) {
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	fp := im.Layout.Fingerprint()
	if m, ok := im.Cache.Get(key, fp); ok {
		return m, true, nil
	}
	open := im.Open
	if open == nil {
		open = OpenPDF
	}
	r, err := open(data)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	m := sheet.Extract(r, im.Layout)
	im.Cache.Add(key, fp, m)
	return m, false, nil
}

// Import extracts data, stores the match as owned by ownerId and indexes
// it.
func (im *Importer) Import(ctx context.Context, ownerId, fileName string, public bool, data []byte) (*MatchRecord, error) {
	var slot *Reservation
	if im.Quota != nil {
		res, err := im.Registry.Reserve(ownerId, func(count int) error {
			return im.Quota(ownerId, count)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		}
		defer res.Cancel()
		slot = res
	}

	start := time.Now()
	m, cached, err := im.Extract(data)
	if err != nil {
		im.Metrics.ObserveFailure()
		return nil, err
	}
	if err := ValidateMatch(m); err != nil {
		im.Metrics.ObserveFailure()
		return nil, fmt.Errorf("%w: %w", ErrInvalidMatch, err)
	}
	elapsed := time.Since(start)

	sum := sha256.Sum256(data)
	rec := &MatchRecord{
		ID:            uuid.NewString(),
		SchemaVersion: CurrentSchemaVersion,
		OwnerID:       normalizeEmail(ownerId),
		Public:        public,
		Status:        StatusActive,
		ImportedAt:    time.Now().UnixNano(),
		FileName:      cleanFileName(fileName),
		SourceSHA256:  hex.EncodeToString(sum[:]),
		Layout:        im.Layout.Name,
		Match:         m,
	}
	if err := im.Store.SaveMatch(rec); err != nil {
		im.Metrics.ObserveFailure()
		return nil, err
	}
	meta := rec.Metadata()
	if slot != nil {
		slot.Commit(meta)
	} else {
		im.Registry.IndexMatch(meta)
	}
	im.Metrics.ObserveImport(elapsed, len(m.Warnings), cached)

	if im.Stats != nil {
		if err := im.Stats.RecordMatch(ctx, rec.ID, m); err != nil {
			// The match is stored; statistics can be rebuilt.
			log.Printf("Warning: stats for match %s not recorded: %v", rec.ID, err)
		}
	}
	im.Hub.Publish(MsgTypeMatchImported, meta)
	im.logf("imported match %s (%s vs %s) in %v, %d warnings, cached=%v", rec.ID, m.Home, m.Away, elapsed, len(m.Warnings), cached)
	return rec, nil
}

// Delete tombstones a match.
func (im *Importer) Delete(ctx context.Context, id string) error {
	before, err := im.Store.DeleteMatch(id)
	if err != nil {
		return err
	}
	if before.ID == "" {
		return os.ErrNotExist
	}
	if rec, err := im.Store.LoadMatch(id); err == nil {
		im.Registry.IndexMatch(rec.Metadata())
	}
	if im.Stats != nil {
		if err := im.Stats.DeleteMatch(ctx, id); err != nil {
			log.Printf("Warning: stats for match %s not deleted: %v", id, err)
		}
	}
	im.Hub.Publish(MsgTypeMatchDeleted, before)
	return nil
}

// SetVisibility makes a match public or private.
func (im *Importer) SetVisibility(id string, public bool) (*MatchRecord, error) {
	rec, err := im.Store.LoadMatch(id)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusDeleted {
		return nil, os.ErrNotExist
	}
	before := rec.Metadata()
	rec.Public = public
	if err := im.Store.SaveMatch(rec); err != nil {
		return nil, err
	}
	meta := rec.Metadata()
	im.Registry.IndexMatch(meta)
	// Readers losing access learn about it from the old state.
	if before.Public && !public {
		im.Hub.Publish(MsgTypeMatchDeleted, before)
	}
	im.Hub.Publish(MsgTypeMatchUpdated, meta)
	return rec, nil
}

// RebuildStats records every active match in the stats database. It
// returns the number of matches recorded.
func (im *Importer) RebuildStats(ctx context.Context) (int, error) {
	if im.Stats == nil {
		return 0, errors.New("no stats database")
	}
	n := 0
	for meta, err := range im.Store.ListAllMatchMetadata() {
		if err != nil {
			return n, err
		}
		if meta.Status == StatusDeleted {
			continue
		}
		rec, err := im.Store.LoadMatch(meta.ID)
		if err != nil || rec.Match == nil {
			continue
		}
		if err := im.Stats.RecordMatch(ctx, rec.ID, rec.Match); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
