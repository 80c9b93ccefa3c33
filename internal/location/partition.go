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

package location

import "fmt"

// PartitionKind identifies the shape of a partition's key space.
type PartitionKind int

const (
	PartitionSingleton PartitionKind = iota
	PartitionInt64Range
	PartitionNamed
)

func (k PartitionKind) String() string {
	switch k {
	case PartitionSingleton:
		return "Singleton"
	case PartitionInt64Range:
		return "Int64Range"
	case PartitionNamed:
		return "Named"
	default:
		return "Unknown"
	}
}

// PartitionInfo is the kind-plus-range/name describing one partition,
// as returned alongside a replica list by a partition query.
type PartitionInfo struct {
	Kind PartitionKind

	// Low and High are set only when Kind == PartitionInt64Range.
	Low  int64
	High int64

	// Name is set only when Kind == PartitionNamed.
	Name string
}

// Singleton builds a PartitionInfo for a non-partitioned (singleton)
// service, which is what every system service in this fabric uses.
func Singleton() PartitionInfo {
	return PartitionInfo{Kind: PartitionSingleton}
}

// Int64Range builds a PartitionInfo for an integer-range-partitioned
// service.
func Int64Range(low, high int64) PartitionInfo {
	return PartitionInfo{Kind: PartitionInt64Range, Low: low, High: high}
}

// Named builds a PartitionInfo for a named-partition service.
func Named(name string) PartitionInfo {
	return PartitionInfo{Kind: PartitionNamed, Name: name}
}

func (p PartitionInfo) String() string {
	switch p.Kind {
	case PartitionInt64Range:
		return fmt.Sprintf("Int64Range[%d,%d]", p.Low, p.High)
	case PartitionNamed:
		return fmt.Sprintf("Named(%s)", p.Name)
	default:
		return "Singleton"
	}
}

// GenerationNumber is the FM epoch. Any change invalidates every cached
// LocationVersion, since versions are only comparable within the same
// generation.
type GenerationNumber uint64

// LocationVersion totally orders resolver results so the resolver can
// detect whether a re-query actually advanced anything. Comparison is
// lexicographic: generation first (a newer FM epoch always wins),
// falling back to FM version, then the reserved tiebreaker field.
type LocationVersion struct {
	FMVersion uint64
	Generation GenerationNumber
	Reserved  uint64
}

// Less reports whether v is strictly older than other.
func (v LocationVersion) Less(other LocationVersion) bool {
	if v.Generation != other.Generation {
		return v.Generation < other.Generation
	}
	if v.FMVersion != other.FMVersion {
		return v.FMVersion < other.FMVersion
	}
	return v.Reserved < other.Reserved
}

// Equal reports structural equality.
func (v LocationVersion) Equal(other LocationVersion) bool {
	return v == other
}
