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

package directmessaging

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfrouting/core/internal/collab"
	"github.com/sfrouting/core/internal/collabtest"
	"github.com/sfrouting/core/internal/fabriterr"
	"github.com/sfrouting/core/internal/location"
	"github.com/sfrouting/core/internal/metrics"
	"github.com/sfrouting/core/internal/resolver"
	"github.com/sfrouting/core/internal/wire"
)

type noopClassifier struct{}

func (noopClassifier) IsJSONEndpointService(uuid.UUID, string) bool { return false }
func (noopClassifier) IsEventStoreService(uuid.UUID, string) bool   { return false }

func TestAgentDispatchesToRegisteredHandler(t *testing.T) {
	transport := collabtest.NewNodeTransport()
	agent := New(transport, nil)
	require.NoError(t, agent.Open())
	defer agent.Close()

	pid := uuid.New()
	loc, err := location.Create(location.NodeID{Name: "n", Instance: 1}, pid, 1, 1, "")
	require.NoError(t, err)

	var received wire.Message
	agent.Register(loc, func(ctx context.Context, msg wire.Message, reply ReplyContext) {
		received = msg
		reply.Reply(wire.New("Caller", "Echo", []byte("ok")))
	})

	req := wire.New("Caller", "Ping", []byte("hi")).WithFilter(loc.FilterHeader())
	wrapped := wire.WrapDirectMessaging(req)

	replyMsg, err := transport.Deliver(context.Background(), wire.ActorDirectMessagingAgent, wrapped)
	require.NoError(t, err)
	assert.Equal(t, "Echo", replyMsg.Action)
	assert.Equal(t, "Caller", received.Actor)
	assert.Equal(t, "Ping", received.Action)
}

func TestAgentRecordsDispatchOutcomeAndHandlerTableSize(t *testing.T) {
	transport := collabtest.NewNodeTransport()
	agent := New(transport, nil)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	agent.SetMetrics(m)
	require.NoError(t, agent.Open())
	defer agent.Close()

	pid := uuid.New()
	loc, err := location.Create(location.NodeID{Name: "n", Instance: 1}, pid, 1, 1, "")
	require.NoError(t, err)

	agent.Register(loc, func(ctx context.Context, msg wire.Message, reply ReplyContext) {
		reply.Reply(wire.New("Caller", "Echo", []byte("ok")))
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HandlerTableSize.WithLabelValues("directmessaging")))

	req := wire.New("Caller", "Ping", []byte("hi")).WithFilter(loc.FilterHeader())
	wrapped := wire.WrapDirectMessaging(req)

	_, err = transport.Deliver(context.Background(), wire.ActorDirectMessagingAgent, wrapped)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DirectMessagingTotal.WithLabelValues("ok")))

	agent.Unregister(loc)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.HandlerTableSize.WithLabelValues("directmessaging")))
}

func TestAgentRepliesHandlerDoesNotExistWhenUnregistered(t *testing.T) {
	transport := collabtest.NewNodeTransport()
	agent := New(transport, nil)
	require.NoError(t, agent.Open())
	defer agent.Close()

	pid := uuid.New()
	req := wire.New("Caller", "Ping", nil).WithFilter(location.FilterHeader{PartitionID: pid, ReplicaID: 1, ReplicaInstance: 1})
	wrapped := wire.WrapDirectMessaging(req)

	replyMsg, err := transport.Deliver(context.Background(), wire.ActorDirectMessagingAgent, wrapped)
	require.NoError(t, err)
	kind, ok := replyMsg.IsDirectMessagingFailure()
	require.True(t, ok)
	assert.Equal(t, fabriterr.MessageHandlerDoesNotExistFault, kind)
}

func TestAgentCloseUnregistersAndClearsHandlers(t *testing.T) {
	transport := collabtest.NewNodeTransport()
	agent := New(transport, nil)
	require.NoError(t, agent.Open())

	loc, _ := location.Create(location.NodeID{Name: "n", Instance: 1}, uuid.New(), 1, 1, "")
	agent.Register(loc, func(ctx context.Context, msg wire.Message, reply ReplyContext) {})

	require.NoError(t, agent.Close())
	assert.Equal(t, 0, agent.handlers.Size())

	_, err := transport.Deliver(context.Background(), wire.ActorDirectMessagingAgent, wire.New("a", "b", nil))
	assert.Error(t, err)
}

func TestClientReusesTargetWhileHostAddressStable(t *testing.T) {
	cuid := uuid.New()
	loc, _ := location.Create(location.NodeID{Name: "n1", Instance: 1}, cuid, 1, 1, "10.0.0.1:1234")

	query := collabtest.NewQuery()
	query.SetPartitions("fabric:/System/Foo", []collab.PartitionDescriptor{{Cuid: cuid, Partition: location.Singleton()}})
	fm := collabtest.NewFMServiceResolver()
	fm.SetEntry(cuid, collab.ResolvedEntry{Cuid: cuid, PrimaryLocation: loc.String(), Version: location.LocationVersion{FMVersion: 1}})

	r := resolver.New(query, fm, noopClassifier{})

	dialCount := 0
	client := NewClient(r, func(ctx context.Context, hostAddress string) (Target, error) {
		dialCount++
		return fakeTarget{addr: hostAddress}, nil
	})

	target1, err := client.BeginResolve(context.Background(), "fabric:/System/Foo", uuid.New(), time.Second)
	require.NoError(t, err)
	target2, err := client.BeginResolve(context.Background(), "fabric:/System/Foo", uuid.New(), time.Second)
	require.NoError(t, err)

	assert.Equal(t, 1, dialCount)
	assert.Equal(t, target1, target2)
}

func TestClientDropsTargetOnFailoverUnitNotFound(t *testing.T) {
	cuid := uuid.New()
	fm := collabtest.NewFMServiceResolver()
	query := collabtest.NewQuery()
	query.SetPartitions("fabric:/System/Foo", []collab.PartitionDescriptor{{Cuid: cuid, Partition: location.Singleton()}})

	r := resolver.New(query, fm, noopClassifier{}, resolver.WithRetries(1))
	client := NewClient(r, func(ctx context.Context, hostAddress string) (Target, error) {
		return fakeTarget{addr: hostAddress}, nil
	})

	loc, _ := location.Create(location.NodeID{Name: "n1", Instance: 1}, cuid, 1, 1, "10.0.0.1:1234")
	fm.SetEntry(cuid, collab.ResolvedEntry{Cuid: cuid, PrimaryLocation: loc.String(), Version: location.LocationVersion{FMVersion: 1}})
	_, err := client.BeginResolve(context.Background(), "fabric:/System/Foo", uuid.New(), time.Second)
	require.NoError(t, err)

	fm.Err = fabriterr.FMFailoverUnitNotFound
	_, err = client.BeginResolve(context.Background(), "fabric:/System/Foo", uuid.New(), time.Second)
	assert.True(t, fabriterr.Is(err, fabriterr.FMFailoverUnitNotFound))

	client.mu.RLock()
	_, stillCached := client.targets["fabric:/System/Foo"]
	client.mu.RUnlock()
	assert.False(t, stillCached)
}

type fakeTarget struct {
	addr string
}

func (f fakeTarget) HostAddress() string { return f.addr }
func (f fakeTarget) Send(ctx context.Context, msg wire.Message) (wire.Message, error) {
	return wire.Message{}, nil
}
