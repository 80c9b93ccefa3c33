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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func TestNewMetricsRegistersAllCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.HandlerTableSize.WithLabelValues("direct").Set(3)
	m.ResolverCacheHits.Inc()
	m.RoutingAgentRequests.WithLabelValues("ipc", "success").Inc()
	m.DirectMessagingTotal.WithLabelValues("success").Inc()

	families, err := registry.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{HandlerTableSizeGauge, ResolverCacheHitTotal, ResolverCacheMissTotal, RoutingAgentRequestTotal, DirectMessagingRequestTotal} {
		assert.True(t, names[want], "expected metric %q to be registered", want)
	}
}

func TestHandlerTableSizeGaugeValue(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.HandlerTableSize.WithLabelValues("direct").Set(5)

	families, err := registry.Gather()
	assert.NoError(t, err)

	var got *io_prometheus_client.Metric
	for _, f := range families {
		if f.GetName() == HandlerTableSizeGauge {
			got = f.Metric[0]
		}
	}
	if assert.NotNil(t, got) {
		assert.Equal(t, float64(5), got.GetGauge().GetValue())
	}
}
