package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal tracks routing decisions by strategy and shape.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroute_router_decisions_total",
			Help: "Total number of routing decisions",
		},
		[]string{"strategy", "shape"},
	)

	// SnapshotFailuresTotal tracks venues dropped from a routing pass because
	// their market data lookups failed.
	SnapshotFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroute_router_snapshot_failures_total",
			Help: "Total number of failed venue snapshot gathers",
		},
		[]string{"venue"},
	)

	// SnapshotDurationSeconds tracks how long venue snapshot gathers take.
	SnapshotDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartroute_router_snapshot_duration_seconds",
			Help:    "Duration of venue market data snapshot gathers",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"venue"},
	)
)
