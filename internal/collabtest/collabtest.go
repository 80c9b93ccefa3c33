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

// Package collabtest provides in-memory fakes for every internal/collab
// interface, so routing/resolution/direct-messaging tests never need a
// real transport or a running cluster.
package collabtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sfrouting/core/internal/collab"
	"github.com/sfrouting/core/internal/fabriterr"
	"github.com/sfrouting/core/internal/location"
	"github.com/sfrouting/core/internal/wire"
)

// NodeTransport is an in-memory collab.NodeTransport: registered
// handlers live in a map, and Deliver lets a test drive a request
// straight into the registered handler.
type NodeTransport struct {
	mu       sync.RWMutex
	handlers map[string]collab.MessageHandler
}

func NewNodeTransport() *NodeTransport {
	return &NodeTransport{handlers: make(map[string]collab.MessageHandler)}
}

func (t *NodeTransport) RegisterMessageHandler(actor string, handler collab.MessageHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[actor] = handler
	return nil
}

func (t *NodeTransport) UnregisterMessageHandler(actor string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers, actor)
	return nil
}

// Deliver routes msg to the handler registered for actor, as a peer
// node's federation ingress would.
func (t *NodeTransport) Deliver(ctx context.Context, actor string, msg wire.Message) (wire.Message, error) {
	t.mu.RLock()
	h, ok := t.handlers[actor]
	t.mu.RUnlock()
	if !ok {
		return wire.Message{}, fabriterr.Wrapf(fabriterr.InvalidMessage, "no handler registered for actor %q", actor)
	}
	return h(ctx, msg)
}

// LocalTransport is a combined in-memory collab.LocalTransportServer +
// collab.LocalTransportClient, modelling a single host process's IPC
// channel to/from the node agent.
type LocalTransport struct {
	mu             sync.RWMutex
	serverHandlers map[string]func(ctx context.Context, msg wire.Message, clientID string) (wire.Message, error)
	clientHandlers map[string]collab.MessageHandler

	// Hosts maps a host process id to the LocalTransport fake that
	// represents it, so BeginRequest can route to the right target.
	Hosts map[string]*LocalTransport
}

func NewLocalTransport() *LocalTransport {
	return &LocalTransport{
		serverHandlers: make(map[string]func(ctx context.Context, msg wire.Message, clientID string) (wire.Message, error)),
		clientHandlers: make(map[string]collab.MessageHandler),
	}
}

func (l *LocalTransport) RegisterMessageHandler(actor string, handler func(ctx context.Context, msg wire.Message, clientID string) (wire.Message, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.serverHandlers[actor] = handler
	return nil
}

func (l *LocalTransport) UnregisterMessageHandler(actor string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.serverHandlers, actor)
	return nil
}

// RegisterClientMessageHandler lets the host side register for
// inbound replies/pushes on the client leg (collab.LocalTransportClient).
func (l *LocalTransport) RegisterClientMessageHandler(actor string, handler collab.MessageHandler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clientHandlers[actor] = handler
	return nil
}

// Deliver invokes this transport's own registered server handler for
// msg.Actor directly, as a co-located host process issuing an IPC
// request to the node agent would. clientID is passed through
// unchanged to the handler.
func (l *LocalTransport) Deliver(ctx context.Context, clientID string, msg wire.Message) (wire.Message, error) {
	l.mu.RLock()
	h, ok := l.serverHandlers[msg.Actor]
	l.mu.RUnlock()
	if !ok {
		return wire.Message{}, fabriterr.Wrapf(fabriterr.InvalidMessage, "no server handler registered for actor %q", msg.Actor)
	}
	return h(ctx, msg, clientID)
}

// BeginRequest delivers msg to targetHostID's registered server
// handler for msg.Actor, as the node agent forwarding to a host
// process would.
func (l *LocalTransport) BeginRequest(ctx context.Context, targetHostID string, msg wire.Message, timeout time.Duration) (wire.Message, error) {
	target, ok := l.Hosts[targetHostID]
	if !ok {
		return wire.Message{}, fabriterr.CannotConnectToAnonymousTarget
	}
	target.mu.RLock()
	h, ok := target.serverHandlers[msg.Actor]
	target.mu.RUnlock()
	if !ok {
		return wire.Message{}, fabriterr.Wrapf(fabriterr.InvalidMessage, "no server handler registered for actor %q", msg.Actor)
	}
	return h(ctx, msg, targetHostID)
}

// Hosting is an in-memory collab.HostingServices: a static
// serviceType+app -> hostID map a test populates directly.
type Hosting struct {
	mu    sync.RWMutex
	hosts map[string]string
}

func NewHosting() *Hosting {
	return &Hosting{hosts: make(map[string]string)}
}

func (h *Hosting) Set(versionedServiceTypeID, appName, hostID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hosts[versionedServiceTypeID+"|"+appName] = hostID
}

func (h *Hosting) GetHostID(ctx context.Context, versionedServiceTypeID, appName string) (string, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	hostID, ok := h.hosts[versionedServiceTypeID+"|"+appName]
	return hostID, ok, nil
}

// NamingGateway is an in-memory collab.NamingGateway.
type NamingGateway struct {
	mu       sync.RWMutex
	handlers map[string]collab.MessageHandler

	// Respond, when set, supplies BeginProcessRequest's reply.
	Respond func(ctx context.Context, msg wire.Message, timeout time.Duration) (wire.Message, error)
}

func NewNamingGateway() *NamingGateway {
	return &NamingGateway{handlers: make(map[string]collab.MessageHandler)}
}

func (g *NamingGateway) BeginProcessRequest(ctx context.Context, msg wire.Message, timeout time.Duration) (wire.Message, error) {
	if g.Respond != nil {
		return g.Respond(ctx, msg, timeout)
	}
	return wire.Message{}, fabriterr.Wrap(fabriterr.OperationTimeout, "naming gateway fake has no Respond configured")
}

func (g *NamingGateway) RegisterGatewayMessageHandler(actor string, handler collab.MessageHandler) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[actor] = handler
	return nil
}

// Query is an in-memory collab.QueryService backed by a test-populated
// name -> partitions map.
type Query struct {
	mu         sync.RWMutex
	partitions map[string][]collab.PartitionDescriptor
}

func NewQuery() *Query {
	return &Query{partitions: make(map[string][]collab.PartitionDescriptor)}
}

func (q *Query) SetPartitions(name string, partitions []collab.PartitionDescriptor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.partitions[name] = partitions
}

func (q *Query) GetServicePartitionList(ctx context.Context, name string) ([]collab.PartitionDescriptor, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.partitions[name], nil
}

func (q *Query) BeginProcessIncomingQuery(ctx context.Context, msg wire.Message, activityID uuid.UUID, timeout time.Duration) (wire.Message, error) {
	return wire.Message{}, fabriterr.Wrap(fabriterr.InvalidMessage, "query fake does not implement BeginProcessIncomingQuery")
}

// FMServiceResolver is an in-memory collab.FMServiceResolver backed by
// a test-populated cuid -> ResolvedEntry map plus a fixed generation.
// Err, when set, is returned by every BeginResolve call instead of
// looking up entries, so tests can drive the resolver's error
// classification path.
type FMServiceResolver struct {
	mu         sync.RWMutex
	entries    map[uuid.UUID]collab.ResolvedEntry
	Generation location.GenerationNumber
	Err        error
}

func NewFMServiceResolver() *FMServiceResolver {
	return &FMServiceResolver{entries: make(map[uuid.UUID]collab.ResolvedEntry)}
}

// SetEntry registers the resolved entry returned for cuid.
func (f *FMServiceResolver) SetEntry(cuid uuid.UUID, entry collab.ResolvedEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[cuid] = entry
}

func (f *FMServiceResolver) BeginResolve(ctx context.Context, targets []collab.ResolveTarget, mode collab.CacheMode, activityID uuid.UUID, timeout time.Duration) ([]collab.ResolvedEntry, location.GenerationNumber, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.Err != nil {
		return nil, f.Generation, f.Err
	}

	entries := make([]collab.ResolvedEntry, 0, len(targets))
	for _, target := range targets {
		if e, ok := f.entries[target.Cuid]; ok {
			entries = append(entries, e)
		}
	}
	return entries, f.Generation, nil
}
