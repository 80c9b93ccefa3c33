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

// Package wire implements the message envelope shared by every agent:
// a logical (actor, action) pair, a typed header bag, and a byte body.
// Wrapping and unwrapping follow one convention throughout: one wrapper
// header per hop, and a fixed pass-through set carried across every
// wrap.
package wire

import (
	"time"

	"github.com/google/uuid"

	"github.com/sfrouting/core/internal/fabriterr"
	"github.com/sfrouting/core/internal/location"
)

// Reserved actions used by the wrapper headers below.
const (
	ActionServiceRouteRequest    = "ServiceRouteRequest"
	ActionForwardMessage         = "ForwardMessage"
	ActionForwardToFileStore     = "ForwardToFileStoreMessage"
	ActionForwardToTvs           = "ForwardToTvsMessage"
	ActionDirectMessaging        = "DirectMessaging"
	ActionDirectMessagingFailure = "DirectMessagingFailure"
	ActionIpcFailure             = "IpcFailure"
)

// Fixed actor identity used by the DirectMessaging transport wrapper.
const ActorDirectMessagingAgent = "DirectMessagingAgent"

// ActorServiceRoutingAgent is the single actor every RoutingAgent
// ingress (IPC, federation, gateway) listens under.
const ActorServiceRoutingAgent = "ServiceRoutingAgent"

// RoutingAgentProxyHeader wraps a host -> node IPC hop.
type RoutingAgentProxyHeader struct {
	Actor  string
	Action string
}

// RoutingAgentHeader wraps a node -> node federation/gateway hop and
// carries the target service type for host lookup by the recipient.
type RoutingAgentHeader struct {
	Actor         string
	Action        string
	ServiceTypeID string
}

// ForwardMessageHeader wraps a node agent forward to the Naming
// gateway or File-Store/Token-Validation fast paths.
type ForwardMessageHeader struct {
	Actor  string
	Action string
}

// DirectMessagingHeader stashes the caller's logical (actor, action)
// and activity id under the DirectMessaging transport wrapper.
type DirectMessagingHeader struct {
	Actor      string
	Action     string
	ActivityID uuid.UUID
}

// Message is the envelope carried across every hop: a logical
// (actor, action), a header bag, and an opaque body.
type Message struct {
	Actor  string
	Action string
	Body   []byte

	activityID      uuid.UUID
	hasActivity     bool
	timeout         time.Duration
	hasTimeout      bool
	messageID       string
	hasMessageID    bool
	queryAddress    string
	hasQueryAddr    bool
	requestInstance int64
	hasReqInstance  bool
	filter          location.FilterHeader
	hasFilter       bool

	proxyHeader   *RoutingAgentProxyHeader
	agentHeader   *RoutingAgentHeader
	forwardHeader *ForwardMessageHeader
	directHeader  *DirectMessagingHeader
}

// New builds a bare message with the given logical actor/action/body.
func New(actor, action string, body []byte) Message {
	return Message{Actor: actor, Action: action, Body: body}
}

// WithActivity attaches the FabricActivityHeader.
func (m Message) WithActivity(id uuid.UUID) Message {
	m.activityID, m.hasActivity = id, true
	return m
}

// Activity returns the activity id and whether one was set, so callers
// can test-assert presence rather than silently synthesizing one here.
func (m Message) Activity() (uuid.UUID, bool) {
	return m.activityID, m.hasActivity
}

// WithTimeout attaches the TimeoutHeader.
func (m Message) WithTimeout(d time.Duration) Message {
	m.timeout, m.hasTimeout = d, true
	return m
}

// Timeout returns the TimeoutHeader value.
func (m Message) Timeout() (time.Duration, bool) {
	return m.timeout, m.hasTimeout
}

// WithMessageID attaches the optional MessageIdHeader.
func (m Message) WithMessageID(id string) Message {
	m.messageID, m.hasMessageID = id, true
	return m
}

// MessageID returns the MessageIdHeader, if present.
func (m Message) MessageID() (string, bool) {
	return m.messageID, m.hasMessageID
}

// WithQueryAddress attaches the optional QueryAddressHeader.
func (m Message) WithQueryAddress(addr string) Message {
	m.queryAddress, m.hasQueryAddr = addr, true
	return m
}

// QueryAddress returns the QueryAddressHeader, if present.
func (m Message) QueryAddress() (string, bool) {
	return m.queryAddress, m.hasQueryAddr
}

// WithRequestInstance attaches the optional RequestInstanceHeader.
func (m Message) WithRequestInstance(instance int64) Message {
	m.requestInstance, m.hasReqInstance = instance, true
	return m
}

// RequestInstance returns the RequestInstanceHeader, if present.
func (m Message) RequestInstance() (int64, bool) {
	return m.requestInstance, m.hasReqInstance
}

// WithFilter attaches the FilterHeader used by direct/proxy paths.
func (m Message) WithFilter(f location.FilterHeader) Message {
	m.filter, m.hasFilter = f, true
	return m
}

// Filter returns the FilterHeader, if present.
func (m Message) Filter() (location.FilterHeader, bool) {
	return m.filter, m.hasFilter
}

// passThrough copies the canonical pass-through header set from src onto dst, leaving dst's logical actor/action/body
// untouched.
func passThrough(dst, src Message) Message {
	if id, ok := src.Activity(); ok {
		dst = dst.WithActivity(id)
	}
	if d, ok := src.Timeout(); ok {
		dst = dst.WithTimeout(d)
	}
	if id, ok := src.MessageID(); ok {
		dst = dst.WithMessageID(id)
	}
	if addr, ok := src.QueryAddress(); ok {
		dst = dst.WithQueryAddress(addr)
	}
	if ri, ok := src.RequestInstance(); ok {
		dst = dst.WithRequestInstance(ri)
	}
	if f, ok := src.Filter(); ok {
		dst = dst.WithFilter(f)
	}
	return dst
}

// EnsureActivity synthesizes a fresh activity id when absent. Callers
// that enforce the test-assert half of "never drop activity" should
// check the returned bool and assert false in test builds.
func (m Message) EnsureActivity() (Message, bool) {
	if m.hasActivity {
		return m, true
	}
	return m.WithActivity(uuid.New()), false
}

// RequireTimeout returns fabriterr.InvalidMessage when the TimeoutHeader
// is missing.
func (m Message) RequireTimeout() error {
	if !m.hasTimeout {
		return fabriterr.Wrap(fabriterr.InvalidMessage, "missing TimeoutHeader on routed request")
	}
	return nil
}

// WrapDirectMessaging replaces the logical (actor, action) with the
// fixed DirectMessaging transport identity, stashing the originals (and
// the caller's activity id) in a DirectMessagingHeader.
func WrapDirectMessaging(m Message) Message {
	id, _ := m.EnsureActivity()
	wrapped := New(ActorDirectMessagingAgent, ActionDirectMessaging, m.Body)
	wrapped = passThrough(wrapped, id)
	activityID, _ := id.Activity()
	wrapped.directHeader = &DirectMessagingHeader{Actor: m.Actor, Action: m.Action, ActivityID: activityID}
	return wrapped
}

// UnwrapDirectMessaging restores the original (actor, action) and
// activity id from the DirectMessagingHeader. The second result reports
// whether the header was present; when it is absent the message is
// returned as is, with a fresh activity id synthesized if it carried
// none (fail-soft path, test-assert in the caller).
func UnwrapDirectMessaging(m Message) (Message, bool) {
	if m.directHeader == nil {
		synthesized, _ := m.EnsureActivity()
		return synthesized, false
	}
	restored := New(m.directHeader.Actor, m.directHeader.Action, m.Body)
	restored = passThrough(restored, m)
	restored = restored.WithActivity(m.directHeader.ActivityID)
	return restored, true
}

// WrapRoutingAgentProxy attaches a RoutingAgentProxyHeader for a
// host -> node IPC hop, preserving the logical (actor, action) inside
// the wrapper and the pass-through set on the envelope.
func WrapRoutingAgentProxy(m Message) Message {
	wrapped := New(ActorServiceRoutingAgent, ActionServiceRouteRequest, m.Body)
	wrapped = passThrough(wrapped, m)
	wrapped.proxyHeader = &RoutingAgentProxyHeader{Actor: m.Actor, Action: m.Action}
	return wrapped
}

// UnwrapRoutingAgentProxy strips the RoutingAgentProxyHeader and
// restores the logical (actor, action) plus the pass-through set.
func UnwrapRoutingAgentProxy(m Message) (Message, error) {
	if m.proxyHeader == nil {
		return Message{}, fabriterr.Wrap(fabriterr.InvalidMessage, "missing RoutingAgentProxyHeader")
	}
	restored := New(m.proxyHeader.Actor, m.proxyHeader.Action, m.Body)
	restored = passThrough(restored, m)
	return restored, nil
}

// WrapRoutingAgent attaches a RoutingAgentHeader for a node -> node
// federation/gateway hop, recording the target service type.
func WrapRoutingAgent(m Message, serviceTypeID string) Message {
	wrapped := New(ActorServiceRoutingAgent, ActionServiceRouteRequest, m.Body)
	wrapped = passThrough(wrapped, m)
	wrapped.agentHeader = &RoutingAgentHeader{Actor: m.Actor, Action: m.Action, ServiceTypeID: serviceTypeID}
	return wrapped
}

// RoutingAgentTarget reads the target service type off a message
// wrapped with WrapRoutingAgent.
func (m Message) RoutingAgentTarget() (string, bool) {
	if m.agentHeader == nil {
		return "", false
	}
	return m.agentHeader.ServiceTypeID, true
}

// RewrapForProxy strips the transport wrapper that brought this
// message in (RoutingAgentHeader or ForwardMessageHeader), preserves
// FilterHeader plus the pass-through set, and reattaches a
// RoutingAgentProxyHeader built from the outer wrapper's logical
// (actor, action).
func RewrapForProxy(m Message) (Message, error) {
	var actor, action string
	switch {
	case m.agentHeader != nil:
		actor, action = m.agentHeader.Actor, m.agentHeader.Action
	case m.forwardHeader != nil:
		actor, action = m.forwardHeader.Actor, m.forwardHeader.Action
	default:
		return Message{}, fabriterr.Wrap(fabriterr.InvalidMessage, "no transport wrapper to rewrap for proxy")
	}

	wrapped := New(ActorServiceRoutingAgent, ActionServiceRouteRequest, m.Body)
	wrapped = passThrough(wrapped, m)
	wrapped.proxyHeader = &RoutingAgentProxyHeader{Actor: actor, Action: action}
	return wrapped, nil
}

// WrapForwardMessage attaches a ForwardMessageHeader for a node agent
// forward to the Naming gateway or File-Store/Token-Validation path.
func WrapForwardMessage(m Message) Message {
	wrapped := New(ActorServiceRoutingAgent, ActionForwardMessage, m.Body)
	wrapped = passThrough(wrapped, m)
	wrapped.forwardHeader = &ForwardMessageHeader{Actor: m.Actor, Action: m.Action}
	return wrapped
}

// IpcFailureBody is the typed body carried on an IpcFailure reply.
type IpcFailureBody struct {
	Error fabriterr.Kind
}

// NewIpcFailure builds an IpcFailure reply message.
func NewIpcFailure(kind fabriterr.Kind) Message {
	return New(ActorServiceRoutingAgent, ActionIpcFailure, encodeIpcFailure(kind))
}

// IsIpcFailure reports whether m is an IpcFailure envelope and, if so,
// the classified error it carries.
func (m Message) IsIpcFailure() (fabriterr.Kind, bool) {
	if m.Action != ActionIpcFailure {
		return fabriterr.Kind{}, false
	}
	return decodeIpcFailure(m.Body), true
}

// NewDirectMessagingFailure builds a DirectMessagingFailure reply
// message, the DirectMessaging path's own failure envelope, distinct
// from the IpcFailure used by the IPC channel.
func NewDirectMessagingFailure(kind fabriterr.Kind) Message {
	return New(ActorDirectMessagingAgent, ActionDirectMessagingFailure, encodeIpcFailure(kind))
}

// IsDirectMessagingFailure reports whether m is a DirectMessagingFailure
// envelope and, if so, the classified error it carries.
func (m Message) IsDirectMessagingFailure() (fabriterr.Kind, bool) {
	if m.Action != ActionDirectMessagingFailure {
		return fabriterr.Kind{}, false
	}
	return decodeIpcFailure(m.Body), true
}

func encodeIpcFailure(kind fabriterr.Kind) []byte { return []byte(kind.String()) }

func decodeIpcFailure(body []byte) fabriterr.Kind {
	return fabriterr.KindFromString(string(body))
}
