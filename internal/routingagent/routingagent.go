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

// Package routingagent implements the node-side RoutingAgent: three
// simultaneous ingresses (local IPC, federation, gateway) that either
// forward a co-located host's outbound request into the cluster, or
// deliver an inbound routed request to whichever local host process
// serves the target service type.
package routingagent

import (
	"context"

	"github.com/sfrouting/core/internal/collab"
	"github.com/sfrouting/core/internal/fabriterr"
	"github.com/sfrouting/core/internal/lifecycle"
	"github.com/sfrouting/core/internal/log"
	"github.com/sfrouting/core/internal/metrics"
	"github.com/sfrouting/core/internal/wire"
)

// Agent is the node-side RoutingAgent.
type Agent struct {
	lifecycle.Component

	ipc        collab.LocalTransportServer
	federation collab.NodeTransport
	gateway    collab.NamingGateway
	hosting    collab.HostingServices
	ipcClient  collab.LocalTransportClient

	appName string
	logger  log.Logger
	metrics *metrics.Metrics
}

// SetMetrics attaches m so every request this Agent handles is counted
// by ingress and outcome. Nil-safe: an Agent with no metrics attached
// simply skips recording.
func (a *Agent) SetMetrics(m *metrics.Metrics) {
	a.metrics = m
}

func (a *Agent) record(ingress, outcome string) {
	if a.metrics != nil {
		a.metrics.RoutingAgentRequests.WithLabelValues(ingress, outcome).Inc()
	}
}

// outcomeOf reduces an error to a metrics label: "ok" on success, else
// the classified fabriterr kind.
func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return fabriterr.KindOf(err).String()
}

// New builds an Agent wired to its three ingresses plus the
// collaborators it needs to forward each direction (Hosting for
// service-type -> host-id lookup, an IPC client to reach that host).
func New(ipc collab.LocalTransportServer, federation collab.NodeTransport, gateway collab.NamingGateway, hosting collab.HostingServices, ipcClient collab.LocalTransportClient, appName string, logger log.Logger) *Agent {
	return &Agent{
		ipc:        ipc,
		federation: federation,
		gateway:    gateway,
		hosting:    hosting,
		ipcClient:  ipcClient,
		appName:    appName,
		logger:     logger,
	}
}

// Open registers all three ingresses. IPC ingress carries
// host-process-initiated requests (service-to-node path); federation
// and gateway ingress carry peer-initiated requests (node-to-service
// path).
func (a *Agent) Open() error {
	a.MustOpen()

	if err := a.ipc.RegisterMessageHandler(wire.ActorServiceRoutingAgent, a.handleIPC); err != nil {
		return err
	}
	if err := a.federation.RegisterMessageHandler(wire.ActorServiceRoutingAgent, a.handleFederation); err != nil {
		return err
	}
	return a.gateway.RegisterGatewayMessageHandler(wire.ActorServiceRoutingAgent, a.handleGateway)
}

// Close unregisters the IPC and federation ingresses. The gateway
// ingress is not unregistered: collab.NamingGateway has no unregister
// method. Idempotent.
func (a *Agent) Close() error {
	if !a.BeginClose() {
		return nil
	}
	defer a.Finish()

	var firstErr error
	if err := a.ipc.UnregisterMessageHandler(wire.ActorServiceRoutingAgent); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.federation.UnregisterMessageHandler(wire.ActorServiceRoutingAgent); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// handleIPC implements the service-to-node path: a
// co-located host process asks us to route its request into the
// cluster via the naming gateway.
func (a *Agent) handleIPC(ctx context.Context, msg wire.Message, clientID string) (wire.Message, error) {
	if msg.Actor != wire.ActorServiceRoutingAgent {
		a.record("ipc", "invalid_message")
		return wire.NewIpcFailure(fabriterr.InvalidMessage), nil
	}
	if err := msg.RequireTimeout(); err != nil {
		a.record("ipc", "invalid_message")
		return wire.NewIpcFailure(fabriterr.InvalidMessage), nil
	}

	unwrapped, err := wire.UnwrapRoutingAgentProxy(msg)
	if err != nil {
		a.record("ipc", "invalid_message")
		return wire.NewIpcFailure(fabriterr.InvalidMessage), nil
	}

	remaining, _ := unwrapped.Timeout()
	reply, err := a.gateway.BeginProcessRequest(ctx, unwrapped, remaining)
	if err != nil {
		a.record("ipc", fabriterr.KindOf(err).String())
		return wire.NewIpcFailure(fabriterr.KindOf(err)), nil
	}

	a.record("ipc", "ok")
	return reply, nil
}

// handleFederation implements the node-to-service path for messages arriving over the federation ingress.
func (a *Agent) handleFederation(ctx context.Context, msg wire.Message) (wire.Message, error) {
	reply, err := a.routeToLocalHost(ctx, msg)
	a.record("federation", outcomeOf(err))
	return reply, err
}

// handleGateway implements the same node-to-service path for messages
// arriving over the gateway ingress; both ingresses share identical
// forwarding semantics.
func (a *Agent) handleGateway(ctx context.Context, msg wire.Message) (wire.Message, error) {
	reply, err := a.routeToLocalHost(ctx, msg)
	a.record("gateway", outcomeOf(err))
	return reply, err
}

// routeToLocalHost resolves the target service type to a local host
// process id, rewraps the message for the IPC leg, and forwards it.
func (a *Agent) routeToLocalHost(ctx context.Context, msg wire.Message) (wire.Message, error) {
	serviceTypeID, ok := msg.RoutingAgentTarget()
	if !ok {
		return wire.Message{}, fabriterr.Wrap(fabriterr.InvalidMessage, "missing RoutingAgentHeader service type")
	}

	hostID, found, err := a.hosting.GetHostID(ctx, serviceTypeID, a.appName)
	if err != nil {
		return wire.Message{}, err
	}
	if !found {
		return wire.Message{}, fabriterr.SystemServiceNotFound
	}

	rewrapped, err := wire.RewrapForProxy(msg)
	if err != nil {
		return wire.Message{}, err
	}

	timeout, _ := msg.Timeout()
	reply, err := a.ipcClient.BeginRequest(ctx, hostID, rewrapped, timeout)
	if err != nil {
		// A CannotConnectToAnonymousTarget from IPC means the host process
		// we resolved is gone; map it so the gateway re-resolves and
		// retries instead of treating this as terminal.
		if fabriterr.Is(err, fabriterr.CannotConnectToAnonymousTarget) {
			return wire.Message{}, fabriterr.MessageHandlerDoesNotExistFault
		}
		return wire.Message{}, err
	}

	if kind, ok := reply.IsIpcFailure(); ok {
		return wire.Message{}, fabriterr.Wrap(kind, "ipc failure reply")
	}
	return reply, nil
}
