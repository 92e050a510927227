package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio_tracker"

var (
	ChainCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "calls_total",
		Help:      "Read-only contract calls by method and status.",
	}, []string{"method", "status"})

	ChainCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "call_duration_seconds",
		Help:      "Latency of read-only contract calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	ValuationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "valuations_total",
		Help:      "Portfolio valuations by outcome (complete, partial, failed).",
	}, []string{"outcome"})

	UnpricedTokensTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unpriced_tokens_total",
		Help:      "Tokens for which no price path produced a price.",
	})

	registerOnce sync.Once
)

// MustRegisterMetrics registers every collector with the default registry. Safe to call twice.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ChainCallsTotal, ChainCallDuration, ValuationsTotal, UnpricedTokensTotal)
	})
}
