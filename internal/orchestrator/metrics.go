package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics are package-level by convention
var (
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartroute_executions_total",
		Help: "Total order executions by terminal status",
	}, []string{"status"})

	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smartroute_execution_duration_seconds",
		Help:    "End to end order execution duration",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	VolumeExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartroute_volume_executed_total",
		Help: "Total base asset volume filled",
	})

	ActiveOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartroute_active_orders",
		Help: "Number of orders currently in flight",
	})

	AttemptsPerLeg = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smartroute_attempts_per_leg",
		Help:    "Venue placement attempts needed per successful leg",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	AttemptFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartroute_attempt_failures_total",
		Help: "Failed venue placement attempts by venue",
	}, []string{"venue"})

	FailoversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartroute_failovers_total",
		Help: "Venue failovers by source and destination venue",
	}, []string{"from", "to"})

	CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartroute_cancellations_total",
		Help: "Orders cancelled by request",
	})
)
