// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package bej

import (
	"encoding/binary"
	"sync"

	"github.com/dchest/siphash"
	"golang.org/x/exp/maps"
)

// dictCache accelerates repeated Dictionary.Find calls against the same
// sibling run, the way ion.Symtab keeps a toindex map alongside its
// interned-string slice rather than re-scanning on every lookup. SET
// decoding revisits the same parent's children once per occurrence of a
// schema in a list, so this matters on arrays of repeated objects.
//
// A Dictionary may be shared by reference across concurrent decode calls
// (spec.md §5), so the cache guards its map with a mutex even though a
// single decode never touches it from more than one goroutine.
type dictCache struct {
	mu   sync.RWMutex
	hits map[uint64]int // hashed (start,sequence,format) -> absolute entry index
}

// siphash key. Fixed and unexported: this cache is process-local and never
// serialized, so there is no need for a random or configurable key, only
// for the hash to be cheap and well-distributed across the small integer
// tuples it's fed.
const (
	cacheKey0 = 0x5bd1e995b79a6c4a
	cacheKey1 = 0x9e3779b97f4a7c15
)

func newDictCache() *dictCache {
	return &dictCache{hits: make(map[uint64]int, 16)}
}

func cacheHash(start int, sequence uint32, format Format) uint64 {
	var buf [9]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(start))
	binary.LittleEndian.PutUint32(buf[4:8], sequence)
	buf[8] = byte(format)
	return siphash.Hash(cacheKey0, cacheKey1, buf[:])
}

func (c *dictCache) lookup(start int, sequence uint32, format Format) (int, bool) {
	c.mu.RLock()
	idx, ok := c.hits[cacheHash(start, sequence, format)]
	c.mu.RUnlock()
	return idx, ok
}

func (c *dictCache) store(start int, sequence uint32, format Format, absolute int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// cap growth so a pathological decode (many distinct sequence
	// numbers probed against the same parent) can't turn the cache
	// into an unbounded map; beyond the cap, Find just falls back to
	// the linear scan, which is still correct, only slower.
	const maxEntries = 4096
	if len(c.hits) >= maxEntries {
		return
	}
	c.hits[cacheHash(start, sequence, format)] = absolute
}

// clone returns a copy of the cache sharing no backing storage with c,
// using the same copy-on-grow idiom ion.Symtab.CloneInto relies on via
// golang.org/x/exp/maps.
func (c *dictCache) clone() *dictCache {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &dictCache{hits: maps.Clone(c.hits)}
}
