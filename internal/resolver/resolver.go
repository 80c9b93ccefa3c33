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

// Package resolver implements SystemServiceResolver: name/cuid
// resolution to a live ServiceLocation, backed by
// internal/locationcache and fronting the FM and query collaborators.
package resolver

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/sfrouting/core/internal/collab"
	"github.com/sfrouting/core/internal/fabriterr"
	"github.com/sfrouting/core/internal/location"
	"github.com/sfrouting/core/internal/locationcache"
	"github.com/sfrouting/core/internal/metrics"
)

// ServiceEntry pairs one parsed primary location with its raw
// (unparsed) secondaries, in case a caller needs the read-only replica
// addresses. ResolveByName and ResolveByCuid return these two values
// separately rather than as a ServiceEntry.
type ServiceEntry struct {
	Primary     location.Location
	Secondaries []string
}

// IsJSONEndpointService decides, for one cuid/name pair, whether the
// resolver must parse the FM's primary location string as a
// "fabric-service" JSON endpoint list rather than canonical text.
// IsEventStoreService additionally marks the EventStoreService special
// case (HTTP-only, no tcp endpoint required).
type ServiceClassifier interface {
	IsJSONEndpointService(cuid uuid.UUID, name string) bool
	IsEventStoreService(cuid uuid.UUID, name string) bool
}

// Resolver implements SystemServiceResolver.
type Resolver struct {
	cache      *locationcache.Cache
	query      collab.QueryService
	fm         collab.FMServiceResolver
	classifier ServiceClassifier
	retries    uint
	metrics    *metrics.Metrics
}

// Option configures a Resolver at construction time.
type Option func(*Resolver)

// WithRetries overrides the default retry attempt count used to wrap
// the FM resolve call.
func WithRetries(n uint) Option {
	return func(r *Resolver) { r.retries = n }
}

// WithMetrics records name->cuid cache hits and misses against m. Omit
// to resolve without emitting metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New builds a Resolver. query and fm are the query and FM collaborators;
// classifier decides which parse mode applies to a resolved cuid/name.
func New(query collab.QueryService, fm collab.FMServiceResolver, classifier ServiceClassifier, opts ...Option) *Resolver {
	r := &Resolver{
		cache:      locationcache.New(),
		query:      query,
		fm:         fm,
		classifier: classifier,
		retries:    1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MarkStaleByName sets the one-shot stale hint for name's cached cuid.
func (r *Resolver) MarkStaleByName(name string) { r.cache.MarkStaleByName(name) }

// MarkStaleByCuid sets the one-shot stale hint for cuid.
func (r *Resolver) MarkStaleByCuid(cuid uuid.UUID) { r.cache.MarkStaleByCuid(cuid) }

// ResolveByName resolves a service name to its primary location,
// caching the name->cuid mapping across calls.
func (r *Resolver) ResolveByName(ctx context.Context, name string, activityID uuid.UUID, timeout time.Duration) (location.Location, []string, error) {
	cuid, _, ok := r.cache.LookupName(name)
	if ok {
		if r.metrics != nil {
			r.metrics.ResolverCacheHits.Inc()
		}
	} else {
		if r.metrics != nil {
			r.metrics.ResolverCacheMisses.Inc()
		}
		partitions, err := r.query.GetServicePartitionList(ctx, name)
		if err != nil {
			return location.Location{}, nil, err
		}
		if len(partitions) == 0 {
			return location.Location{}, nil, fabriterr.Wrapf(fabriterr.SystemServiceNotFound, "no partitions found for service %q", name)
		}
		// More than one partition for a system service is a coding/
		// topology bug; take the first deterministically rather than
		// crash in production.
		first := partitions[0]
		cuid = first.Cuid
		r.cache.SetName(name, cuid, first.Partition)
	}

	return r.resolveByCuidWithName(ctx, cuid, name, activityID, timeout)
}

// ResolveByCuid resolves a cuid directly, used when a caller already
// knows the cuid (no name lookup/caching of the name->cuid map is involved).
func (r *Resolver) ResolveByCuid(ctx context.Context, cuid uuid.UUID, activityID uuid.UUID, timeout time.Duration) (location.Location, []string, error) {
	return r.resolveByCuidWithName(ctx, cuid, "", activityID, timeout)
}

func (r *Resolver) resolveByCuidWithName(ctx context.Context, cuid uuid.UUID, name string, activityID uuid.UUID, timeout time.Duration) (location.Location, []string, error) {
	version, stale := r.cache.LookupVersion(cuid)
	mode := collab.UseCached
	if stale {
		mode = collab.Refresh
	}

	targets := []collab.ResolveTarget{{Cuid: cuid, Version: version}}

	var entries []collab.ResolvedEntry
	err := retry.Do(func() error {
		var resolveErr error
		entries, _, resolveErr = r.fm.BeginResolve(ctx, targets, mode, activityID, timeout)
		return resolveErr
	}, retry.Attempts(r.retries), retry.Context(ctx), retry.LastErrorOnly(true))

	if err != nil {
		return location.Location{}, nil, r.classifyAndClear(name, cuid, err)
	}
	if len(entries) == 0 {
		return location.Location{}, nil, fabriterr.Wrapf(fabriterr.SystemServiceNotFound, "FM returned no entry for cuid %s", cuid)
	}
	entry := entries[0]

	loc, ok := r.parsePrimary(cuid, name, entry.PrimaryLocation)
	if !ok {
		return location.Location{}, nil, fabriterr.Wrapf(fabriterr.SystemServiceNotFound, "could not parse primary location for cuid %s", cuid)
	}

	r.cache.UpdateVersion(cuid, entry.Version)
	return loc, entry.Secondaries, nil
}

// parsePrimary parses a primary location using the EventStoreService
// HTTP-only special case, then the classifier's JSON-endpoint or
// canonical parse mode.
func (r *Resolver) parsePrimary(cuid uuid.UUID, name string, raw string) (location.Location, bool) {
	if r.classifier != nil && r.classifier.IsEventStoreService(cuid, name) {
		if raw == "" {
			return location.Location{}, true
		}
		if loc, ok := location.ParseJSONEndpoint(raw); ok {
			return loc, true
		}
		// HTTP-only: absence of a tcp endpoint is not a parse failure.
		return location.Location{}, true
	}

	isJSON := r.classifier != nil && r.classifier.IsJSONEndpointService(cuid, name)
	return location.Parse(raw, isJSON)
}

// classifyAndClear classifies a resolve error, clearing the cached
// name->cuid entry when the topology has changed under us.
func (r *Resolver) classifyAndClear(name string, cuid uuid.UUID, err error) error {
	classified := fabriterr.Classify(err)
	if fabriterr.Is(classified, fabriterr.FMFailoverUnitNotFound) && name != "" {
		r.cache.ClearName(name)
	}
	return classified
}
