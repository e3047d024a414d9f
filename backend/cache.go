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
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ttbt-io/volleysheet/sheet"
)

// ExtractCache memoizes extraction results by PDF hash and layout
// fingerprint. Cached matches are shared and must not be modified. A nil
// cache never hits.
type ExtractCache struct {
	c      *lru.Cache[string, *sheet.Match]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewExtractCache returns a cache of size entries, or nil when size is not
// positive.
func NewExtractCache(size int) *ExtractCache {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[string, *sheet.Match](size)
	if err != nil {
		return nil
	}
	return &ExtractCache{c: c}
}

func cacheKey(sum, fingerprint string) string {
	return sum + "/" + fingerprint
}

// Get returns the match extracted from the PDF with hash sum.
func (ec *ExtractCache) Get(sum, fingerprint string) (*sheet.Match, bool) {
	if ec == nil {
		return nil, false
	}
	m, ok := ec.c.Get(cacheKey(sum, fingerprint))
	if ok {
		ec.hits.Add(1)
	} else {
		ec.misses.Add(1)
	}
	return m, ok
}

// Add stores an extraction result.
func (ec *ExtractCache) Add(sum, fingerprint string, m *sheet.Match) {
	if ec == nil || m == nil {
		return
	}
	ec.c.Add(cacheKey(sum, fingerprint), m)
}

// CacheStats describes an ExtractCache.
type CacheStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// Stats returns the current entry count and hit counters.
func (ec *ExtractCache) Stats() CacheStats {
	if ec == nil {
		return CacheStats{}
	}
	return CacheStats{
		Entries: ec.c.Len(),
		Hits:    ec.hits.Load(),
		Misses:  ec.misses.Load(),
	}
}
