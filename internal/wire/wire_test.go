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

package wire

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfrouting/core/internal/fabriterr"
	"github.com/sfrouting/core/internal/location"
)

func baseMessage(t *testing.T) Message {
	t.Helper()
	m := New("MyActor", "MyAction", []byte("payload"))
	m = m.WithActivity(uuid.New()).WithTimeout(5 * time.Second).WithMessageID("msg-1")
	m = m.WithFilter(location.FilterHeader{PartitionID: uuid.New(), ReplicaID: 3, ReplicaInstance: 1})
	return m
}

func TestDirectMessagingWrapUnwrapRoundTrip(t *testing.T) {
	original := baseMessage(t)

	wrapped := WrapDirectMessaging(original)
	assert.Equal(t, ActorDirectMessagingAgent, wrapped.Actor)
	assert.Equal(t, ActionDirectMessaging, wrapped.Action)

	unwrapped, hadHeader := UnwrapDirectMessaging(wrapped)
	require.True(t, hadHeader)
	assert.Equal(t, original.Actor, unwrapped.Actor)
	assert.Equal(t, original.Action, unwrapped.Action)

	originalID, _ := original.Activity()
	unwrappedID, ok := unwrapped.Activity()
	require.True(t, ok)
	assert.Equal(t, originalID, unwrappedID)

	timeout, ok := unwrapped.Timeout()
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, timeout)
}

func TestUnwrapDirectMessagingWithoutHeaderSynthesizesActivity(t *testing.T) {
	bare := New(ActorDirectMessagingAgent, ActionDirectMessaging, nil)
	unwrapped, hadHeader := UnwrapDirectMessaging(bare)
	assert.False(t, hadHeader)
	_, ok := unwrapped.Activity()
	assert.True(t, ok)
}

func TestRoutingAgentProxyWrapUnwrapRoundTrip(t *testing.T) {
	original := baseMessage(t)

	wrapped := WrapRoutingAgentProxy(original)
	assert.Equal(t, ActorServiceRoutingAgent, wrapped.Actor)

	unwrapped, err := UnwrapRoutingAgentProxy(wrapped)
	require.NoError(t, err)
	assert.Equal(t, original.Actor, unwrapped.Actor)
	assert.Equal(t, original.Action, unwrapped.Action)

	filter, ok := unwrapped.Filter()
	require.True(t, ok)
	origFilter, _ := original.Filter()
	assert.Equal(t, origFilter, filter)
}

func TestUnwrapRoutingAgentProxyWithoutHeaderFails(t *testing.T) {
	_, err := UnwrapRoutingAgentProxy(New("x", "y", nil))
	assert.True(t, fabriterr.Is(err, fabriterr.InvalidMessage))
}

func TestRewrapForProxyFromRoutingAgentHeader(t *testing.T) {
	original := baseMessage(t)
	wrapped := WrapRoutingAgent(original, "MyServiceType")

	target, ok := wrapped.RoutingAgentTarget()
	require.True(t, ok)
	assert.Equal(t, "MyServiceType", target)

	rewrapped, err := RewrapForProxy(wrapped)
	require.NoError(t, err)

	unwrapped, err := UnwrapRoutingAgentProxy(rewrapped)
	require.NoError(t, err)
	assert.Equal(t, original.Actor, unwrapped.Actor)
	assert.Equal(t, original.Action, unwrapped.Action)

	_, hasFilter := unwrapped.Filter()
	assert.True(t, hasFilter)
}

func TestRewrapForProxyPreservesFullPassThroughSet(t *testing.T) {
	original := baseMessage(t)
	wrapped := WrapRoutingAgent(original, "MyServiceType")

	rewrapped, err := RewrapForProxy(wrapped)
	require.NoError(t, err)

	unwrapped, err := UnwrapRoutingAgentProxy(rewrapped)
	require.NoError(t, err)

	// Compare the whole pass-through set at once (activity, timeout,
	// message id, filter), not just actor/action: a field-by-field
	// assert.Equal chain would silently stop catching regressions the
	// day a new header is added to the pass-through set but not threaded
	// through passThrough.
	diff := cmp.Diff(original, unwrapped, cmp.AllowUnexported(Message{}))
	assert.Empty(t, diff)
}

func TestRewrapForProxyFromForwardMessageHeader(t *testing.T) {
	original := baseMessage(t)
	wrapped := WrapForwardMessage(original)

	rewrapped, err := RewrapForProxy(wrapped)
	require.NoError(t, err)

	unwrapped, err := UnwrapRoutingAgentProxy(rewrapped)
	require.NoError(t, err)
	assert.Equal(t, original.Actor, unwrapped.Actor)
}

func TestRewrapForProxyWithoutTransportWrapperFails(t *testing.T) {
	_, err := RewrapForProxy(New("x", "y", nil))
	assert.True(t, fabriterr.Is(err, fabriterr.InvalidMessage))
}

func TestRequireTimeoutMissing(t *testing.T) {
	m := New("actor", "action", nil)
	err := m.RequireTimeout()
	assert.True(t, fabriterr.Is(err, fabriterr.InvalidMessage))
}

func TestRequireTimeoutPresent(t *testing.T) {
	m := New("actor", "action", nil).WithTimeout(time.Second)
	assert.NoError(t, m.RequireTimeout())
}

func TestIpcFailureRoundTrip(t *testing.T) {
	m := NewIpcFailure(fabriterr.MessageHandlerDoesNotExistFault)
	kind, ok := m.IsIpcFailure()
	require.True(t, ok)
	assert.Equal(t, fabriterr.MessageHandlerDoesNotExistFault, kind)
}

func TestIsIpcFailureFalseForOtherActions(t *testing.T) {
	m := New("actor", "SomethingElse", nil)
	_, ok := m.IsIpcFailure()
	assert.False(t, ok)
}
