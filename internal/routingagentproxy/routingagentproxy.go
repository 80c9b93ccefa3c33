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

// Package routingagentproxy implements the host-side RoutingAgentProxy:
// an outbound API that wraps a host process's request for the node
// agent to route, and an inbound dispatch table for requests the node
// agent forwards back to this host.
package routingagentproxy

import (
	"context"
	"time"

	"github.com/sfrouting/core/internal/collab"
	"github.com/sfrouting/core/internal/fabriterr"
	"github.com/sfrouting/core/internal/handlertable"
	"github.com/sfrouting/core/internal/lifecycle"
	"github.com/sfrouting/core/internal/location"
	"github.com/sfrouting/core/internal/metrics"
	"github.com/sfrouting/core/internal/wire"
)

// IpcHandler processes one request the node agent forwarded to this
// host over IPC.
type IpcHandler func(ctx context.Context, msg wire.Message) (wire.Message, error)

// Proxy is the host-side RoutingAgentProxy.
type Proxy struct {
	lifecycle.Component

	ipcClient collab.LocalTransportClient
	ipcServer collab.LocalTransportServer
	handlers  *handlertable.Table[IpcHandler]
	metrics   *metrics.Metrics
}

// New builds a Proxy. ipcClient issues outbound requests to the node
// agent; ipcServer receives the node agent's inbound forwards.
func New(ipcClient collab.LocalTransportClient, ipcServer collab.LocalTransportServer) *Proxy {
	return &Proxy{
		ipcClient: ipcClient,
		ipcServer: ipcServer,
		handlers:  handlertable.New[IpcHandler](),
	}
}

// SetMetrics attaches m so the inbound handler table's size is kept up
// to date. Nil-safe: a Proxy with no metrics attached simply skips
// recording.
func (p *Proxy) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
	p.reportHandlerTableSize()
}

func (p *Proxy) reportHandlerTableSize() {
	if p.metrics != nil {
		p.metrics.HandlerTableSize.WithLabelValues("routingagentproxy").Set(float64(p.handlers.Size()))
	}
}

// Open registers the inbound IPC dispatch handler.
func (p *Proxy) Open() error {
	p.MustOpen()
	return p.ipcServer.RegisterMessageHandler(wire.ActorServiceRoutingAgent, p.dispatch)
}

// Close unregisters the inbound handler and clears the handler table.
// Idempotent.
func (p *Proxy) Close() error {
	if !p.BeginClose() {
		return nil
	}
	defer p.Finish()
	err := p.ipcServer.UnregisterMessageHandler(wire.ActorServiceRoutingAgent)
	p.handlers.Clear()
	p.reportHandlerTableSize()
	return err
}

// Register binds handler to loc, replacing any prior registration at
// the same location atomically — a replica restart cleanly supersedes
// the previous instance.
func (p *Proxy) Register(loc location.Location, handler IpcHandler) {
	p.handlers.Set(loc, handler)
	p.reportHandlerTableSize()
}

// Unregister removes the handler bound to loc, if any.
func (p *Proxy) Unregister(loc location.Location) {
	p.handlers.Remove(loc)
	p.reportHandlerTableSize()
}

// BeginSendRequest implements the outbound API: wrap the
// caller's (actor, action), replace the timeout header, attach a
// RoutingAgentProxyHeader, and issue an IPC request. A reply whose
// action is IpcFailure is unpacked into a typed error.
func (p *Proxy) BeginSendRequest(ctx context.Context, msg wire.Message, timeout time.Duration) (wire.Message, error) {
	rewrapped := msg.WithTimeout(timeout)
	rewrapped = wire.WrapRoutingAgentProxy(rewrapped)

	// A host's IPC client is already bound to its single node agent
	// process; targetHostID is unused on this leg (it only matters when
	// the node agent forwards onward to one of possibly several hosts).
	reply, err := p.ipcClient.BeginRequest(ctx, "", rewrapped, timeout)
	if err != nil {
		return wire.Message{}, err
	}
	if kind, ok := reply.IsIpcFailure(); ok {
		return wire.Message{}, fabriterr.Wrap(kind, "ipc failure reply")
	}
	return reply, nil
}

// dispatch implements the inbound API: look up the
// local handler by FilterHeader, unwrap the IPC form, and invoke it. A
// missing handler yields an IpcFailure reply with
// MessageHandlerDoesNotExistFault.
func (p *Proxy) dispatch(ctx context.Context, msg wire.Message, clientID string) (wire.Message, error) {
	unwrapped, err := wire.UnwrapRoutingAgentProxy(msg)
	if err != nil {
		return wire.NewIpcFailure(fabriterr.InvalidMessage), nil
	}

	filter, ok := unwrapped.Filter()
	if !ok {
		return wire.NewIpcFailure(fabriterr.InvalidMessage), nil
	}

	handler, ok := p.handlers.Lookup(filter)
	if !ok {
		return wire.NewIpcFailure(fabriterr.MessageHandlerDoesNotExistFault), nil
	}

	reply, err := handler(ctx, unwrapped)
	if err != nil {
		return wire.NewIpcFailure(fabriterr.KindOf(err)), nil
	}
	return reply, nil
}
