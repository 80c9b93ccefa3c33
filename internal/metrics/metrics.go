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

// Package metrics provides Prometheus metrics for the fabric's agents:
// a single Metrics struct of long-lived Gauge/Counter collectors,
// registered once at startup and handed down to each component.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	HandlerTableSizeGauge       = "fabric_handler_table_size"
	ResolverCacheHitTotal       = "fabric_resolver_cache_hit_total"
	ResolverCacheMissTotal      = "fabric_resolver_cache_miss_total"
	RoutingAgentRequestTotal    = "fabric_routing_agent_requests_total"
	DirectMessagingRequestTotal = "fabric_direct_messaging_requests_total"
)

// Metrics provides Prometheus metrics for the routing, resolution and
// direct-messaging fabric.
type Metrics struct {
	HandlerTableSize     *prometheus.GaugeVec
	ResolverCacheHits    prometheus.Counter
	ResolverCacheMisses  prometheus.Counter
	RoutingAgentRequests *prometheus.CounterVec
	DirectMessagingTotal *prometheus.CounterVec
}

// NewMetrics creates a Metrics and registers its collectors with
// registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HandlerTableSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: HandlerTableSizeGauge,
			Help: "Number of handlers currently registered, by table name.",
		}, []string{"table"}),
		ResolverCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: ResolverCacheHitTotal,
			Help: "Total number of resolver name->cuid cache hits.",
		}),
		ResolverCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: ResolverCacheMissTotal,
			Help: "Total number of resolver name->cuid cache misses.",
		}),
		RoutingAgentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RoutingAgentRequestTotal,
			Help: "Total number of requests handled by the routing agent, by ingress and outcome.",
		}, []string{"ingress", "outcome"}),
		DirectMessagingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: DirectMessagingRequestTotal,
			Help: "Total number of direct messaging requests handled, by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.HandlerTableSize,
		m.ResolverCacheHits,
		m.ResolverCacheMisses,
		m.RoutingAgentRequests,
		m.DirectMessagingTotal,
	)
	return m
}

// Handler returns an http.Handler serving registry's metrics in the
// Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
