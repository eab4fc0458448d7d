package latency

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OutcomesTotal tracks recorded adapter call outcomes per venue.
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroute_latency_outcomes_total",
			Help: "Total number of adapter call outcomes recorded",
		},
		[]string{"venue", "result"},
	)

	// CallLatencySeconds tracks observed adapter call latency per venue.
	CallLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartroute_latency_call_seconds",
			Help:    "Observed adapter call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"venue"},
	)

	// RetriesRefusedTotal tracks retries refused against degraded venues.
	RetriesRefusedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroute_latency_retries_refused_total",
			Help: "Total number of retries refused due to venue degradation",
		},
		[]string{"venue", "reason"},
	)
)
