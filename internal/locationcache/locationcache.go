// Copyright sfrouting Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package locationcache implements the two soft, in-memory caches a
// SystemServiceResolver keeps between resolve calls: name -> cuid and
// cuid -> LocationVersionEntry. Survival across a process restart is
// not required; a cold cache simply re-populates on the next resolve.
package locationcache

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sfrouting/core/internal/location"
)

// nameEntry is what a name resolves to: a cuid and the partition shape
// the query returned alongside it.
type nameEntry struct {
	cuid      uuid.UUID
	partition location.PartitionInfo
}

// versionEntry pairs the last observed LocationVersion for a cuid with
// a one-shot stale hint that forces the next resolve to bypass cache.
type versionEntry struct {
	version location.LocationVersion
	stale   bool
}

// Cache holds the name->cuid and cuid->version maps behind one
// reader-writer lock; both maps must change together so a caller never
// observes one updated without the other.
type Cache struct {
	mu        sync.RWMutex
	byName    map[string]nameEntry
	byCuid    map[uuid.UUID]*versionEntry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		byName: make(map[string]nameEntry),
		byCuid: make(map[uuid.UUID]*versionEntry),
	}
}

// LookupName returns the cuid and partition info cached for name.
func (c *Cache) LookupName(name string) (cuid uuid.UUID, partition location.PartitionInfo, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byName[name]
	return e.cuid, e.partition, ok
}

// SetName caches the (cuid, partition) pair a partition query returned
// for name.
func (c *Cache) SetName(name string, cuid uuid.UUID, partition location.PartitionInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName[name] = nameEntry{cuid: cuid, partition: partition}
}

// ClearName drops the cuid cached for name and, per the coherence
// invariant, erases that cuid's version entry too.
func (c *Cache) ClearName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byName[name]
	if !ok {
		return
	}
	delete(c.byName, name)
	delete(c.byCuid, e.cuid)
}

// LookupVersion returns the version entry cached for cuid, along with
// the one-shot stale flag. The zero LocationVersion is returned when
// absent.
func (c *Cache) LookupVersion(cuid uuid.UUID) (version location.LocationVersion, stale bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byCuid[cuid]
	if !ok {
		return location.LocationVersion{}, false
	}
	return e.version, e.stale
}

// UpdateVersion conditionally replaces the cached version: it takes
// effect only when candidate is strictly newer than what is stored,
// clearing the stale flag in the same critical section. It reports
// whether the replace happened.
func (c *Cache) UpdateVersion(cuid uuid.UUID, candidate location.LocationVersion) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.byCuid[cuid]
	if !ok {
		c.byCuid[cuid] = &versionEntry{version: candidate}
		return true
	}
	if !e.version.Less(candidate) {
		return false
	}
	e.version = candidate
	e.stale = false
	return true
}

// MarkStaleByCuid sets the one-shot stale hint for cuid. Never errors:
// a cuid with no cached version entry is simply a no-op.
func (c *Cache) MarkStaleByCuid(cuid uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.byCuid[cuid]; ok {
		e.stale = true
	}
}

// MarkStaleByName resolves name to its cached cuid and marks that
// cuid's version entry stale. A no-op when name is not cached.
func (c *Cache) MarkStaleByName(name string) {
	c.mu.RLock()
	e, ok := c.byName[name]
	c.mu.RUnlock()
	if !ok {
		return
	}
	c.MarkStaleByCuid(e.cuid)
}
