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

// Package handlertable implements the location -> handler map shared
// by DirectMessagingAgent and RoutingAgentProxy. Replica density per
// host is small in practice, so lookup is a read-locked linear scan
// within a partition bucket; the outer map is keyed by partition id so
// a lookup never scans handlers for an unrelated partition.
package handlertable

import (
	"sync"

	"github.com/sfrouting/core/internal/location"
)

type entry[H any] struct {
	filter  location.MessageFilter
	handler H
}

// Table is a concurrency-safe location -> handler map, generic over the
// handler type H (a direct-messaging handler or an IPC handler).
type Table[H any] struct {
	mu      sync.RWMutex
	buckets map[string][]entry[H]
	size    int
}

// New returns an empty Table.
func New[H any]() *Table[H] {
	return &Table[H]{buckets: make(map[string][]entry[H])}
}

func bucketKey(partitionID string) string { return partitionID }

// Set registers handler under location, replacing any prior entry for
// the same partition and replica id atomically. Replace-on-set is
// intentional: a replica restart (new ReplicaInstance) cleanly
// supersedes the previous registration under the same location's bucket.
func (t *Table[H]) Set(loc location.Location, handler H) {
	filter := location.NewMessageFilter(loc)
	key := bucketKey(loc.PartitionID.String())

	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := t.buckets[key]
	for i := range bucket {
		if bucket[i].filter.PartitionID == filter.PartitionID && bucket[i].filter.ReplicaID == filter.ReplicaID {
			bucket[i] = entry[H]{filter: filter, handler: handler}
			return
		}
	}
	t.buckets[key] = append(bucket, entry[H]{filter: filter, handler: handler})
	t.size++
}

// Remove unregisters the handler at location, if any.
func (t *Table[H]) Remove(loc location.Location) {
	filter := location.NewMessageFilter(loc)
	key := bucketKey(loc.PartitionID.String())

	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := t.buckets[key]
	for i := range bucket {
		if bucket[i].filter == filter {
			t.buckets[key] = append(bucket[:i], bucket[i+1:]...)
			t.size--
			if len(t.buckets[key]) == 0 {
				delete(t.buckets, key)
			}
			return
		}
	}
}

// Clear removes every registered handler; invoked on close/abort.
func (t *Table[H]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buckets = make(map[string][]entry[H])
	t.size = 0
}

// Lookup scans the bucket for header's partition for a matching filter
// and returns its handler. Two handlers matching the same message is a
// configuration bug; Lookup returns the first match rather than
// asserting, since a production build must not crash on it (tests use
// LookupAll to catch the condition).
func (t *Table[H]) Lookup(header location.FilterHeader) (H, bool) {
	var zero H
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, e := range t.buckets[bucketKey(header.PartitionID.String())] {
		if e.filter.Matches(header) {
			return e.handler, true
		}
	}
	return zero, false
}

// LookupAll returns every handler whose registered filter matches
// header. Tests use this to assert the "at most one match" invariant
// without risking a production panic when it is violated.
func (t *Table[H]) LookupAll(header location.FilterHeader) []H {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var matches []H
	for _, e := range t.buckets[bucketKey(header.PartitionID.String())] {
		if e.filter.Matches(header) {
			matches = append(matches, e.handler)
		}
	}
	return matches
}

// Size returns the number of registered handlers.
func (t *Table[H]) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}
