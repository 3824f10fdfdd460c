// Package metrics exposes the gateway's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gateway"

// Metrics holds the gateway counters. All counters are safe for concurrent
// use.
type Metrics struct {
	Requests            prometheus.Counter
	FastPathHits        prometheus.Counter
	Compositions        prometheus.Counter
	CompositionFailures prometheus.Counter
	SchemaCacheHits     prometheus.Counter
	SchemaCacheMisses   prometheus.Counter
}

// New registers the gateway counters with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total GraphQL requests dispatched.",
		}),
		FastPathHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fastpath_hits_total",
			Help:      "Requests answered from the canned fast-path table.",
		}),
		Compositions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_compositions_total",
			Help:      "Successful schema compositions, fresh or from cache.",
		}),
		CompositionFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_composition_failures_total",
			Help:      "Failed schema compositions.",
		}),
		SchemaCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_cache_hits_total",
			Help:      "Schema reconstructions served from the external cache.",
		}),
		SchemaCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_cache_misses_total",
			Help:      "External cache lookups finding no usable entry set.",
		}),
	}
}
