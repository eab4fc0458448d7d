package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerActive tracks whether each policy is currently tripped (1) or
	// clear (0).
	BreakerActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartroute_breaker_active",
			Help: "Whether the circuit breaker policy is currently active",
		},
		[]string{"policy"},
	)

	// TriggersTotal tracks breaker trips by policy and reason.
	TriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroute_breaker_triggers_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"policy", "reason"},
	)

	// ErrorsTotal tracks categorized errors fed into the breaker.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroute_breaker_errors_total",
			Help: "Total number of categorized errors recorded",
		},
		[]string{"category"},
	)

	// PeakPortfolioValue tracks the peak portfolio value observed.
	PeakPortfolioValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartroute_breaker_peak_portfolio_value",
		Help: "Peak portfolio value observed by the drawdown check",
	})

	// ConsecutiveLosses tracks the current losing streak.
	ConsecutiveLosses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartroute_breaker_consecutive_losses",
		Help: "Current count of consecutive losing trades",
	})

	// DailyPnL tracks realized PnL for the current UTC day.
	DailyPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartroute_breaker_daily_pnl",
		Help: "Realized PnL accumulated for the current UTC day",
	})
)
