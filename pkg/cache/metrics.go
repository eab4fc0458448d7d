package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHitsTotal tracks snapshot cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartroute_cache_hits_total",
		Help: "Total number of snapshot cache hits",
	})

	// CacheMissesTotal tracks snapshot cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartroute_cache_misses_total",
		Help: "Total number of snapshot cache misses",
	})

	// CacheSetsTotal tracks snapshot cache writes.
	CacheSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartroute_cache_sets_total",
		Help: "Total number of snapshot cache writes",
	})
)
