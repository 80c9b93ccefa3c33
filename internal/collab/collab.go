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

// Package collab declares the six external collaborator contracts that
// make up the core's entire dependency surface on the rest of the
// cluster (federation transport, local IPC transport, hosting, the
// naming gateway, the query subsystem, and the FM service resolver).
// Concrete transports/wire codecs are intentionally out of scope here —
// only the interfaces the core logic is built against. internal/collabtest
// supplies in-memory fakes
// satisfying every interface below for tests.
package collab

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sfrouting/core/internal/location"
	"github.com/sfrouting/core/internal/wire"
)

// CacheMode selects whether an FM resolve may reuse a cached
// LocationVersion or must bypass it.
type CacheMode int

const (
	UseCached CacheMode = iota
	Refresh
)

// MessageHandler processes a oneway or request message delivered by a
// transport ingress. A non-nil reply is sent back on a request; it is
// ignored for a oneway delivery.
type MessageHandler func(ctx context.Context, msg wire.Message) (reply wire.Message, err error)

// NodeTransport is the federation collaborator: request/reply only.
type NodeTransport interface {
	RegisterMessageHandler(actor string, handler MessageHandler) error
	UnregisterMessageHandler(actor string) error
}

// LocalTransportServer is the IPC server-side collaborator: hosts
// register a handler under an actor and receive client-issued
// requests tagged with the issuing host process id.
type LocalTransportServer interface {
	RegisterMessageHandler(actor string, handler func(ctx context.Context, msg wire.Message, clientID string) (wire.Message, error)) error
	UnregisterMessageHandler(actor string) error
}

// LocalTransportClient is the IPC client-side collaborator used by
// RoutingAgentProxy's outbound path and by RoutingAgent when forwarding
// to a specific host process id.
type LocalTransportClient interface {
	BeginRequest(ctx context.Context, targetHostID string, msg wire.Message, timeout time.Duration) (wire.Message, error)
	RegisterClientMessageHandler(actor string, handler MessageHandler) error
}

// HostingServices maps a service type to the local host process
// hosting it.
type HostingServices interface {
	GetHostID(ctx context.Context, versionedServiceTypeID, appName string) (hostID string, found bool, err error)
}

// NamingGateway is the naming gateway collaborator.
type NamingGateway interface {
	BeginProcessRequest(ctx context.Context, msg wire.Message, timeout time.Duration) (wire.Message, error)
	RegisterGatewayMessageHandler(actor string, handler MessageHandler) error
}

// QueryService is the query subsystem collaborator,
// used to resolve a service name to a cuid/partition shape and to
// relay arbitrary incoming queries.
type QueryService interface {
	BeginProcessIncomingQuery(ctx context.Context, msg wire.Message, activityID uuid.UUID, timeout time.Duration) (wire.Message, error)
	GetServicePartitionList(ctx context.Context, name string) ([]PartitionDescriptor, error)
}

// PartitionDescriptor is one partition of a queried service: its cuid
// and partition shape.
type PartitionDescriptor struct {
	Cuid      uuid.UUID
	Partition location.PartitionInfo
}

// ResolveTarget is one (cuid, version, generation) triple submitted to
// FMServiceResolver.BeginResolve.
type ResolveTarget struct {
	Cuid       uuid.UUID
	Version    location.LocationVersion
	Generation location.GenerationNumber
}

// ResolvedEntry is the FM's answer for one resolved cuid: the primary
// replica's raw location text (still unparsed — canonical or
// JSON-endpoint form depending on the service) and the secondary
// replica endpoints.
type ResolvedEntry struct {
	Cuid             uuid.UUID
	PrimaryLocation  string
	Secondaries      []string
	Version          location.LocationVersion
	Partition        location.PartitionInfo
}

// FMServiceResolver is the Failover Manager collaborator: the sole source of truth for where a partition's replicas
// currently live.
type FMServiceResolver interface {
	BeginResolve(ctx context.Context, targets []ResolveTarget, mode CacheMode, activityID uuid.UUID, timeout time.Duration) (entries []ResolvedEntry, generation location.GenerationNumber, err error)
}
