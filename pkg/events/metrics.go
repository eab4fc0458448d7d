package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsPublishedTotal tracks published events by type.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroute_events_published_total",
			Help: "Total number of events published",
		},
		[]string{"type"},
	)

	// EventsDroppedTotal tracks events dropped due to slow subscribers.
	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartroute_events_dropped_total",
		Help: "Total number of events dropped due to full subscriber buffers",
	})
)
