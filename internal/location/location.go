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

// Package location implements ServiceLocation, the identity of one live
// replica, and the FilterHeader/MessageFilter pair used to demultiplex
// messages addressed to a partition down to one replica instance. The
// canonical text encoding, the delimiter rule, and the two replica
// sentinel values are fixed, wire-level conventions shared by every
// component that publishes or parses a location.
package location

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sfrouting/core/internal/fabriterr"
)

// delimiter separates the five fields of a ServiceLocation's canonical
// text form. It is reserved and must never appear inside a host
// address.
const delimiter = "+"

// AnyReplicaID and AnyReplicaInstance are the reserved sentinel values
// that mean "match any" when they appear in a filter context. They must
// never appear in a published ServiceLocation.
const (
	AnyReplicaID       int64 = 0
	AnyReplicaInstance int64 = 0
)

// NodeID identifies a cluster node across restarts; NodeInstance
// disambiguates a node process instance, the way Federation::NodeInstance
// pairs a node id with an incarnation counter.
type NodeID struct {
	Name     string
	Instance uint64
}

func (n NodeID) String() string {
	return fmt.Sprintf("%s:%d", n.Name, n.Instance)
}

func parseNodeID(s string) (NodeID, bool) {
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 {
		return NodeID{}, false
	}
	instance, err := strconv.ParseUint(s[idx+1:], 10, 64)
	if err != nil {
		return NodeID{}, false
	}
	return NodeID{Name: s[:idx], Instance: instance}, true
}

// Location identifies one live replica instance: which node it is
// running on, which partition and replica slot it occupies, which
// restart incarnation ("instance") it is, and optionally a direct
// transport endpoint for its host process.
type Location struct {
	Node            NodeID
	PartitionID     uuid.UUID
	ReplicaID       int64
	ReplicaInstance int64
	HostAddress     string
}

// Create builds a Location, rejecting a host address that contains the
// reserved delimiter.
func Create(node NodeID, partitionID uuid.UUID, replicaID, replicaInstance int64, hostAddress string) (Location, error) {
	if strings.Contains(hostAddress, delimiter) {
		return Location{}, fabriterr.Wrapf(fabriterr.InvalidAddress, "host address %q contains reserved delimiter %q", hostAddress, delimiter)
	}
	return Location{
		Node:            node,
		PartitionID:     partitionID,
		ReplicaID:       replicaID,
		ReplicaInstance: replicaInstance,
		HostAddress:     hostAddress,
	}, nil
}

// String renders the canonical "+"-delimited text form:
// node+partition+replica_id+replica_instance+host_address.
func (l Location) String() string {
	return strings.Join([]string{
		l.Node.String(),
		l.PartitionID.String(),
		strconv.FormatInt(l.ReplicaID, 10),
		strconv.FormatInt(l.ReplicaInstance, 10),
		l.HostAddress,
	}, delimiter)
}

// ParseCanonical parses the literal "+"-delimited text form. A host
// address is optional; fewer than four tokens is a parse failure.
func ParseCanonical(text string) (Location, bool) {
	tokens := strings.Split(text, delimiter)
	if len(tokens) < 4 {
		return Location{}, false
	}

	node, ok := parseNodeID(tokens[0])
	if !ok {
		return Location{}, false
	}

	partitionID, err := uuid.Parse(tokens[1])
	if err != nil {
		return Location{}, false
	}

	replicaID, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return Location{}, false
	}

	replicaInstance, err := strconv.ParseInt(tokens[3], 10, 64)
	if err != nil {
		return Location{}, false
	}

	var hostAddress string
	if len(tokens) >= 5 {
		hostAddress = strings.Join(tokens[4:], delimiter)
	}

	return Location{
		Node:            node,
		PartitionID:     partitionID,
		ReplicaID:       replicaID,
		ReplicaInstance: replicaInstance,
		HostAddress:     hostAddress,
	}, true
}

// ParseJSONEndpoint parses the legacy "fabric-service" publishing
// format: a JSON document `{"Endpoints": {scheme: endpoint, ...}}`.
// The first endpoint (by sorted key) is extracted and then parsed
// canonically.
func ParseJSONEndpoint(text string) (Location, bool) {
	first, ok := firstEndpoint(text)
	if !ok {
		return Location{}, false
	}
	return ParseCanonical(first)
}

// Parse dispatches to the canonical or JSON-endpoint parse mode. The
// caller decides which mode applies.
func Parse(text string, isJSONEndpointService bool) (Location, bool) {
	if isJSONEndpointService {
		return ParseJSONEndpoint(text)
	}
	return ParseCanonical(text)
}

// FilterHeader projects a Location down to the fields used to
// demultiplex an incoming message to this replica.
func (l Location) FilterHeader() FilterHeader {
	return FilterHeader{
		PartitionID:     l.PartitionID,
		ReplicaID:       l.ReplicaID,
		ReplicaInstance: l.ReplicaInstance,
	}
}

// EqualsIgnoringInstances compares only (partition, replica id),
// useful for churn-tolerant identity checks across replica restarts.
func (l Location) EqualsIgnoringInstances(other Location) bool {
	return l.PartitionID == other.PartitionID && l.ReplicaID == other.ReplicaID
}

// FilterHeader mirrors ServiceLocation minus node and host address; it
// is carried on every routed/direct request to select one replica
// among several co-hosted ones.
type FilterHeader struct {
	PartitionID     uuid.UUID
	ReplicaID       int64
	ReplicaInstance int64
}

// Less gives FilterHeader a total order, lexicographic on (partition,
// replica_id, replica_instance), used as a map key ordering (e.g. for
// deterministic iteration/tests).
func (f FilterHeader) Less(other FilterHeader) bool {
	if cmp := strings.Compare(f.PartitionID.String(), other.PartitionID.String()); cmp != 0 {
		return cmp < 0
	}
	if f.ReplicaID != other.ReplicaID {
		return f.ReplicaID < other.ReplicaID
	}
	return f.ReplicaInstance < other.ReplicaInstance
}

// MessageFilter is the match rule applied against an incoming message's
// FilterHeader. It is built either from a registered replica's Location
// (never carrying a sentinel) or directly from a FilterHeader (which
// may legitimately carry AnyReplicaID/AnyReplicaInstance, e.g. a
// generic "any replica of this partition" registration).
type MessageFilter struct {
	PartitionID     uuid.UUID
	ReplicaID       int64
	ReplicaInstance int64
}

// NewMessageFilter builds a MessageFilter from a live Location.
func NewMessageFilter(l Location) MessageFilter {
	return MessageFilter{
		PartitionID:     l.PartitionID,
		ReplicaID:       l.ReplicaID,
		ReplicaInstance: l.ReplicaInstance,
	}
}

// NewMessageFilterFromHeader builds a MessageFilter directly from a
// FilterHeader (sentinel values are preserved as-is).
func NewMessageFilterFromHeader(h FilterHeader) MessageFilter {
	return MessageFilter{
		PartitionID:     h.PartitionID,
		ReplicaID:       h.ReplicaID,
		ReplicaInstance: h.ReplicaInstance,
	}
}

// Matches applies the sentinel-aware match rule: the
// partition must equal; a non-sentinel stored replica id or instance
// must equal the header's corresponding field, while a sentinel
// (AnyReplicaID / AnyReplicaInstance) stored on this filter matches any
// value of that field on the incoming header.
func (f MessageFilter) Matches(h FilterHeader) bool {
	if f.PartitionID != h.PartitionID {
		return false
	}
	if f.ReplicaID != AnyReplicaID && f.ReplicaID != h.ReplicaID {
		return false
	}
	if f.ReplicaInstance != AnyReplicaInstance && f.ReplicaInstance != h.ReplicaInstance {
		return false
	}
	return true
}

// Less gives MessageFilter the same total order as FilterHeader, so it
// can key an ordered structure (or simply be compared deterministically
// in tests).
func (f MessageFilter) Less(other MessageFilter) bool {
	return FilterHeader(f).Less(FilterHeader(other))
}

// firstEndpoint extracts the first endpoint value (by sorted key) from
// a `{"Endpoints": {...}}` JSON document without pulling in a full JSON
// library dependency beyond the standard one; kept minimal and
// deterministic.
func firstEndpoint(text string) (string, bool) {
	var doc struct {
		Endpoints map[string]string `json:"Endpoints"`
	}
	if err := json.Unmarshal([]byte(text), &doc); err != nil || len(doc.Endpoints) == 0 {
		return "", false
	}

	keys := make([]string, 0, len(doc.Endpoints))
	for k := range doc.Endpoints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return doc.Endpoints[keys[0]], true
}
