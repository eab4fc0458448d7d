package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal tracks pre-trade check outcomes.
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroute_risk_checks_total",
			Help: "Total number of pre-trade risk checks",
		},
		[]string{"outcome"},
	)

	// RiskScoreObserved tracks risk scores of approved orders.
	RiskScoreObserved = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smartroute_risk_score",
		Help:    "Risk scores of approved orders (0-10)",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})

	// SizingsTotal tracks position size computations by method.
	SizingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroute_risk_sizings_total",
			Help: "Total number of position size computations",
		},
		[]string{"method"},
	)

	// OpenPositions tracks the current open-position count.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartroute_risk_open_positions",
		Help: "Current number of open positions",
	})
)
