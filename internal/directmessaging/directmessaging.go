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

// Package directmessaging implements the service-host side
// (DirectMessagingAgent) and resolver-backed client side
// (DirectMessagingClient) of the bypass-routing direct messaging path.
package directmessaging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sfrouting/core/internal/collab"
	"github.com/sfrouting/core/internal/fabriterr"
	"github.com/sfrouting/core/internal/handlertable"
	"github.com/sfrouting/core/internal/lifecycle"
	"github.com/sfrouting/core/internal/location"
	"github.com/sfrouting/core/internal/log"
	"github.com/sfrouting/core/internal/metrics"
	"github.com/sfrouting/core/internal/resolver"
	"github.com/sfrouting/core/internal/wire"
)

// DirectHandler processes one dispatched direct-messaging request and
// is responsible for sending the reply via ReplyContext.
type DirectHandler func(ctx context.Context, msg wire.Message, reply ReplyContext)

// ReplyContext lets a DirectHandler answer the request it was handed,
// either with a message or with a classified failure.
type ReplyContext interface {
	Reply(msg wire.Message)
	Fail(kind fabriterr.Kind)
}

type replyContext struct {
	resultCh chan<- wire.Message
}

func (r *replyContext) Reply(msg wire.Message) {
	r.resultCh <- msg
}

func (r *replyContext) Fail(kind fabriterr.Kind) {
	r.resultCh <- wire.NewDirectMessagingFailure(kind)
}

// Agent is the service-host side of direct messaging: it registers the
// fixed DirectMessaging handler with the node transport and dispatches
// unwrapped requests to whichever local replica's FilterHeader matches.
type Agent struct {
	lifecycle.Component

	transport collab.NodeTransport
	handlers  *handlertable.Table[DirectHandler]
	logger    log.Logger
	metrics   *metrics.Metrics
}

// New builds an Agent bound to transport. It does not start listening
// until Open is called.
func New(transport collab.NodeTransport, logger log.Logger) *Agent {
	return &Agent{
		transport: transport,
		handlers:  handlertable.New[DirectHandler](),
		logger:    logger,
	}
}

// SetMetrics attaches m so every dispatched request is counted by
// outcome and the handler table's size is kept up to date. Nil-safe:
// an Agent with no metrics attached simply skips recording.
func (a *Agent) SetMetrics(m *metrics.Metrics) {
	a.metrics = m
	a.reportHandlerTableSize()
}

func (a *Agent) reportHandlerTableSize() {
	if a.metrics != nil {
		a.metrics.HandlerTableSize.WithLabelValues("directmessaging").Set(float64(a.handlers.Size()))
	}
}

// Open registers the DirectMessaging handler with the node transport.
func (a *Agent) Open() error {
	a.MustOpen()
	return a.transport.RegisterMessageHandler(wire.ActorDirectMessagingAgent, a.dispatch)
}

// Close unregisters the transport handler and clears the handler
// table. Idempotent.
func (a *Agent) Close() error {
	if !a.BeginClose() {
		return nil
	}
	defer a.Finish()
	err := a.transport.UnregisterMessageHandler(wire.ActorDirectMessagingAgent)
	a.handlers.Clear()
	a.reportHandlerTableSize()
	return err
}

// Register binds handler to loc, replacing any prior registration at
// the same location atomically.
func (a *Agent) Register(loc location.Location, handler DirectHandler) {
	a.handlers.Set(loc, handler)
	a.reportHandlerTableSize()
}

// Unregister removes the handler bound to loc, if any.
func (a *Agent) Unregister(loc location.Location) {
	a.handlers.Remove(loc)
	a.reportHandlerTableSize()
}

// dispatch looks up the registered handler by FilterHeader, failing
// with MessageHandlerDoesNotExistFault when absent; otherwise it
// restores the logical (actor, action) and activity id and invokes
// the handler.
func (a *Agent) dispatch(ctx context.Context, msg wire.Message) (wire.Message, error) {
	filter, ok := msg.Filter()
	if !ok {
		a.recordOutcome("invalid_message")
		return wire.NewDirectMessagingFailure(fabriterr.InvalidMessage), nil
	}

	handler, ok := a.handlers.Lookup(filter)
	if !ok {
		a.recordOutcome(fabriterr.MessageHandlerDoesNotExistFault.String())
		return wire.NewDirectMessagingFailure(fabriterr.MessageHandlerDoesNotExistFault), nil
	}

	restored, hadHeader := wire.UnwrapDirectMessaging(msg)
	if !hadHeader && a.logger != nil {
		a.logger.Infof("direct messaging request missing DirectMessagingHeader, synthesized activity id")
	}

	resultCh := make(chan wire.Message, 1)
	handler(ctx, restored, &replyContext{resultCh: resultCh})
	select {
	case reply := <-resultCh:
		a.recordOutcome("ok")
		return reply, nil
	case <-ctx.Done():
		a.recordOutcome("context_canceled")
		return wire.Message{}, ctx.Err()
	}
}

func (a *Agent) recordOutcome(outcome string) {
	if a.metrics != nil {
		a.metrics.DirectMessagingTotal.WithLabelValues(outcome).Inc()
	}
}

// Client is the resolver-backed caller side of direct messaging: it
// resolves a service name to a live location and reuses a transport
// target for as long as the resolved host address does not change.
type Client struct {
	resolver *resolver.Resolver
	dial     func(ctx context.Context, hostAddress string) (Target, error)

	mu      sync.RWMutex
	targets map[string]cachedTarget
}

// Target is a live connection to one replica's DirectMessagingAgent.
type Target interface {
	HostAddress() string
	Send(ctx context.Context, msg wire.Message) (wire.Message, error)
}

type cachedTarget struct {
	hostAddress string
	target      Target
}

// NewClient builds a Client. dial creates a new Target for a given
// host address; it is the only transport-specific seam this package
// requires.
func NewClient(r *resolver.Resolver, dial func(ctx context.Context, hostAddress string) (Target, error)) *Client {
	return &Client{resolver: r, dial: dial, targets: make(map[string]cachedTarget)}
}

// BeginResolve resolves name, reuses a cached target whose host
// address still matches, and otherwise dials a new one and atomically
// replaces the cache entry.
func (c *Client) BeginResolve(ctx context.Context, name string, activityID uuid.UUID, timeout time.Duration) (Target, error) {
	primary, _, err := c.resolver.ResolveByName(ctx, name, activityID, timeout)
	if err != nil {
		if fabriterr.Is(err, fabriterr.FMFailoverUnitNotFound) {
			c.mu.Lock()
			delete(c.targets, name)
			c.mu.Unlock()
		}
		return nil, err
	}

	c.mu.RLock()
	cached, ok := c.targets[name]
	c.mu.RUnlock()
	if ok && cached.hostAddress == primary.HostAddress {
		return cached.target, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-checked: another goroutine may have raced us to dial.
	if cached, ok := c.targets[name]; ok && cached.hostAddress == primary.HostAddress {
		return cached.target, nil
	}

	target, err := c.dial(ctx, primary.HostAddress)
	if err != nil {
		return nil, fabriterr.Wrap(fabriterr.ConnectionDenied, err.Error())
	}
	c.targets[name] = cachedTarget{hostAddress: primary.HostAddress, target: target}
	return target, nil
}
