package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesStoredTotal tracks persisted trade records.
	TradesStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartroute_storage_trades_total",
		Help: "Total number of trade records stored",
	})

	// TriggersStoredTotal tracks persisted circuit-breaker trigger events.
	TriggersStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartroute_storage_triggers_total",
		Help: "Total number of circuit breaker trigger events stored",
	})
)
