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
	"cmp"
	"log"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ttbt-io/volleysheet/backend/search"
)

// Registry is the in-memory index of stored matches. It answers listing,
// ownership and visibility questions without reading match files.
type Registry struct {
	store *MatchStore

	mu     sync.RWMutex
	active map[string]bool            // active match IDs
	owned  map[string]map[string]bool // owner -> match IDs
	public map[string]bool

	pending map[string]int // owner -> reserved imports not yet indexed

	// Metadata cache for sorting and filtering. Also holds tombstones.
	metadata *lru.Cache[string, MatchMetadata]

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewRegistry indexes every match of store and starts the tombstone
// garbage collector.
func NewRegistry(store *MatchStore) *Registry {
	cache, _ := lru.New[string, MatchMetadata](defaultMetadataSize)
	r := &Registry{
		store:    store,
		active:   make(map[string]bool),
		owned:    make(map[string]map[string]bool),
		public:   make(map[string]bool),
		pending:  make(map[string]int),
		metadata: cache,
		stopChan: make(chan struct{}),
	}
	r.Rebuild()
	r.StartGC()
	return r
}

// StartGC starts the background tombstone garbage collector.
func (r *Registry) StartGC() {
	go func() {
		ticker := time.NewTicker(gcInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.PurgeOldTombstones()
			case <-r.stopChan:
				return
			}
		}
	}()
}

// StopGC stops the background tombstone garbage collector.
func (r *Registry) StopGC() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
}

func expired(m MatchMetadata, cutoff int64) bool {
	return m.Status == StatusDeleted && m.DeletedAt > 0 && m.DeletedAt < cutoff
}

// PurgeOldTombstones permanently deletes tombstones older than
// tombstoneTTL. It returns the number of purged matches.
func (r *Registry) PurgeOldTombstones() int {
	cutoff := time.Now().Add(-tombstoneTTL).UnixNano()
	purged := 0
	for m, err := range r.store.ListAllMatchMetadata() {
		if err != nil || !expired(m, cutoff) {
			continue
		}
		if err := r.store.PurgeMatch(m.ID); err != nil {
			log.Printf("Registry: could not purge %s: %v", m.ID, err)
			continue
		}
		r.metadata.Remove(m.ID)
		purged++
	}
	if purged > 0 {
		log.Printf("Registry: GC complete. Purged %d matches.", purged)
	}
	return purged
}

// Rebuild reconstructs the index from the store.
func (r *Registry) Rebuild() {
	cutoff := time.Now().Add(-tombstoneTTL).UnixNano()

	r.mu.Lock()
	r.active = make(map[string]bool)
	r.owned = make(map[string]map[string]bool)
	r.public = make(map[string]bool)
	r.mu.Unlock()
	r.metadata.Purge()

	for m, err := range r.store.ListAllMatchMetadata() {
		if err != nil {
			log.Printf("Registry: Error listing matches: %v", err)
			break
		}
		if expired(m, cutoff) {
			r.store.PurgeMatch(m.ID)
			continue
		}
		r.IndexMatch(m)
	}
	log.Printf("Registry: Rebuild complete. Indexed %d matches.", r.Count())
}

// IndexMatch adds or updates the index entry of a match. Tombstones remove
// the match from every listing.
func (r *Registry) IndexMatch(m MatchMetadata) {
	r.metadata.Add(m.ID, m)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexLocked(m)
}

func (r *Registry) indexLocked(m MatchMetadata) {
	owner := normalizeEmail(m.OwnerID)
	for u, ids := range r.owned {
		if ids[m.ID] && (u != owner || m.Status == StatusDeleted) {
			delete(ids, m.ID)
		}
	}
	if m.Status == StatusDeleted {
		delete(r.active, m.ID)
		delete(r.public, m.ID)
		return
	}
	r.active[m.ID] = true
	if r.owned[owner] == nil {
		r.owned[owner] = make(map[string]bool)
	}
	r.owned[owner][m.ID] = true
	if m.Public {
		r.public[m.ID] = true
	} else {
		delete(r.public, m.ID)
	}
}

// Reservation is an import slot held against a user's match quota.
type Reservation struct {
	r     *Registry
	owner string
	done  bool
}

// Reserve holds an import slot for userId. check runs under the index lock
// with the number of active matches the user owns plus the slots already
// held; when it fails nothing is reserved. The reservation must be
// committed or canceled.
func (r *Registry) Reserve(userId string, check func(count int) error) (*Reservation, error) {
	owner := normalizeEmail(userId)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := check(len(r.owned[owner]) + r.pending[owner]); err != nil {
		return nil, err
	}
	r.pending[owner]++
	return &Reservation{r: r, owner: owner}, nil
}

// Commit indexes the imported match and frees the slot in one step.
func (res *Reservation) Commit(m MatchMetadata) {
	res.r.metadata.Add(m.ID, m)
	res.r.mu.Lock()
	defer res.r.mu.Unlock()
	res.r.indexLocked(m)
	res.releaseLocked()
}

// Cancel frees the slot. It does nothing after Commit.
func (res *Reservation) Cancel() {
	res.r.mu.Lock()
	defer res.r.mu.Unlock()
	res.releaseLocked()
}

func (res *Reservation) releaseLocked() {
	if res.done {
		return
	}
	res.done = true
	res.r.pending[res.owner]--
	if res.r.pending[res.owner] <= 0 {
		delete(res.r.pending, res.owner)
	}
}

// GetMetadata returns the metadata of a match, reading the store on a
// cache miss.
func (r *Registry) GetMetadata(id string) (MatchMetadata, bool) {
	if m, ok := r.metadata.Get(id); ok {
		return m, true
	}
	m, err := r.store.LoadMatchMetadata(id)
	if err != nil {
		return MatchMetadata{}, false
	}
	r.metadata.Add(id, m)
	return m, true
}

// IsDeleted reports whether id is a known tombstone.
func (r *Registry) IsDeleted(id string) bool {
	m, ok := r.GetMetadata(id)
	return ok && m.Status == StatusDeleted
}

// AccessLevel returns the access of userId on match id.
func (r *Registry) AccessLevel(userId, id string, isAdmin bool) AccessLevel {
	m, ok := r.GetMetadata(id)
	if !ok {
		return AccessNone
	}
	return GetMatchAccess(userId, m, isAdmin)
}

// CountOwned returns the number of active matches owned by userId.
func (r *Registry) CountOwned(userId string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owned[normalizeEmail(userId)])
}

// Count returns the number of active matches.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// ListMatches returns the IDs of the matches userId may read that match
// query, sorted by sortBy ("date", "home", "away" or "imported").
func (r *Registry) ListMatches(userId string, isAdmin bool, sortBy, order, query string) []string {
	if sortBy == "" {
		sortBy = "date"
	}
	if order == "" {
		order = "asc"
		if sortBy == "date" || sortBy == "imported" {
			order = "desc"
		}
	}
	q := search.Parse(query)
	userId = normalizeEmail(userId)

	r.mu.RLock()
	var candidates []string
	switch {
	case isAdmin:
		for id := range r.active {
			candidates = append(candidates, id)
		}
	default:
		seen := make(map[string]bool)
		for id := range r.public {
			candidates = append(candidates, id)
			seen[id] = true
		}
		if userId != "" {
			for id := range r.owned[userId] {
				if !seen[id] {
					candidates = append(candidates, id)
				}
			}
		}
	}
	r.mu.RUnlock()

	metas := make([]MatchMetadata, 0, len(candidates))
	for _, id := range candidates {
		m, ok := r.GetMetadata(id)
		if !ok || m.Status == StatusDeleted || !matchesQuery(m, userId, q) {
			continue
		}
		metas = append(metas, m)
	}

	key := func(m MatchMetadata) string {
		switch sortBy {
		case "home":
			return search.Fold(m.Home)
		case "away":
			return search.Fold(m.Away)
		case "date":
			return m.Date
		}
		return ""
	}
	slices.SortFunc(metas, func(a, b MatchMetadata) int {
		c := cmp.Compare(key(a), key(b))
		if c == 0 {
			c = cmp.Compare(a.ImportedAt, b.ImportedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if order == "desc" {
			return -c
		}
		return c
	})

	ids := make([]string, len(metas))
	for i, m := range metas {
		ids[i] = m.ID
	}
	return ids
}

// matchesQuery applies free text (home, away or file name) and the home:,
// away:, team:, date: and is:public / is:mine filters.
func matchesQuery(m MatchMetadata, userId string, q search.Query) bool {
	for _, token := range q.FreeText {
		if !search.Contains(m.Home, token) && !search.Contains(m.Away, token) && !search.Contains(m.FileName, token) {
			return false
		}
	}
	for _, f := range q.Filters {
		switch f.Key {
		case "home":
			if !search.Contains(m.Home, f.Value) {
				return false
			}
		case "away":
			if !search.Contains(m.Away, f.Value) {
				return false
			}
		case "team":
			if !search.Contains(m.Home, f.Value) && !search.Contains(m.Away, f.Value) {
				return false
			}
		case "date":
			if !search.CompareDate(m.Date, f) {
				return false
			}
		case "is":
			switch search.Fold(f.Value) {
			case "public":
				if !m.Public {
					return false
				}
			case "private":
				if m.Public {
					return false
				}
			case "mine":
				if userId == "" || normalizeEmail(m.OwnerID) != userId {
					return false
				}
			}
		}
	}
	return true
}
