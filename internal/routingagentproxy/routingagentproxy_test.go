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

package routingagentproxy

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfrouting/core/internal/collabtest"
	"github.com/sfrouting/core/internal/fabriterr"
	"github.com/sfrouting/core/internal/location"
	"github.com/sfrouting/core/internal/metrics"
	"github.com/sfrouting/core/internal/wire"
)

func TestBeginSendRequestUnpacksIpcFailure(t *testing.T) {
	ipcServer := collabtest.NewLocalTransport()
	ipcClient := collabtest.NewLocalTransport()
	ipcClient.Hosts = map[string]*collabtest.LocalTransport{
		"": nodeAgentStub(func(ctx context.Context, msg wire.Message, clientID string) (wire.Message, error) {
			return wire.NewIpcFailure(fabriterr.MessageHandlerDoesNotExistFault), nil
		}),
	}

	proxy := New(ipcClient, ipcServer)
	require.NoError(t, proxy.Open())
	defer proxy.Close()

	_, err := proxy.BeginSendRequest(context.Background(), wire.New("Caller", "Action", nil), time.Second)
	assert.True(t, fabriterr.Is(err, fabriterr.MessageHandlerDoesNotExistFault))
}

func TestDispatchInvokesRegisteredHandler(t *testing.T) {
	ipcServer := collabtest.NewLocalTransport()
	ipcClient := collabtest.NewLocalTransport()

	proxy := New(ipcClient, ipcServer)
	require.NoError(t, proxy.Open())
	defer proxy.Close()

	pid := uuid.New()
	loc, err := location.Create(location.NodeID{Name: "n", Instance: 1}, pid, 1, 1, "")
	require.NoError(t, err)

	var gotActor string
	proxy.Register(loc, func(ctx context.Context, msg wire.Message) (wire.Message, error) {
		gotActor = msg.Actor
		return wire.New("Reply", "Done", nil), nil
	})

	inner := wire.New("OriginalCaller", "DoSomething", nil).WithFilter(loc.FilterHeader())
	wrapped := wire.WrapRoutingAgentProxy(inner)

	reply, err := ipcServer.Deliver(context.Background(), "host-1", wrapped)
	require.NoError(t, err)
	assert.Equal(t, "Done", reply.Action)
	assert.Equal(t, "OriginalCaller", gotActor)
}

func TestRegisterReportsHandlerTableSize(t *testing.T) {
	ipcServer := collabtest.NewLocalTransport()
	ipcClient := collabtest.NewLocalTransport()

	proxy := New(ipcClient, ipcServer)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	proxy.SetMetrics(m)
	require.NoError(t, proxy.Open())
	defer proxy.Close()

	pid := uuid.New()
	loc, err := location.Create(location.NodeID{Name: "n", Instance: 1}, pid, 1, 1, "")
	require.NoError(t, err)

	proxy.Register(loc, func(ctx context.Context, msg wire.Message) (wire.Message, error) {
		return wire.New("Reply", "Done", nil), nil
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HandlerTableSize.WithLabelValues("routingagentproxy")))

	proxy.Unregister(loc)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.HandlerTableSize.WithLabelValues("routingagentproxy")))
}

func TestDispatchReturnsHandlerDoesNotExistWhenUnregistered(t *testing.T) {
	ipcServer := collabtest.NewLocalTransport()
	ipcClient := collabtest.NewLocalTransport()

	proxy := New(ipcClient, ipcServer)
	require.NoError(t, proxy.Open())
	defer proxy.Close()

	pid := uuid.New()
	inner := wire.New("Caller", "Action", nil).WithFilter(location.FilterHeader{PartitionID: pid, ReplicaID: 1, ReplicaInstance: 1})
	wrapped := wire.WrapRoutingAgentProxy(inner)

	reply, err := ipcServer.Deliver(context.Background(), "host-1", wrapped)
	require.NoError(t, err)
	kind, ok := reply.IsIpcFailure()
	require.True(t, ok)
	assert.Equal(t, fabriterr.MessageHandlerDoesNotExistFault, kind)
}

// nodeAgentStub builds a *collabtest.LocalTransport standing in for the
// node agent process that proxy.ipcClient.BeginRequest targets, with
// its server handler pre-registered under the routing actor.
func nodeAgentStub(handler func(ctx context.Context, msg wire.Message, clientID string) (wire.Message, error)) *collabtest.LocalTransport {
	stub := collabtest.NewLocalTransport()
	_ = stub.RegisterMessageHandler(wire.ActorServiceRoutingAgent, handler)
	return stub
}
