package router

import (
	"sync"

	"github.com/crossvenue/smartroute/pkg/types"
)

// Statistics aggregates the bounded routing decision history.
type Statistics struct {
	TotalDecisions int                      `json:"total_decisions"`
	SplitDecisions int                      `json:"split_decisions"`
	SplitRatio     float64                  `json:"split_ratio"`
	ByStrategy     map[types.Strategy]int   `json:"by_strategy"`
	ByVenue        map[string]int           `json:"by_venue"`
	Recent         []*types.RoutingDecision `json:"recent,omitempty"`
}

// history is a bounded ring of recent routing decisions. Reads compute
// statistics without side effects.
type history struct {
	mu   sync.RWMutex
	buf  []*types.RoutingDecision
	next int
	full bool
}

func newHistory(size int) *history {
	return &history{buf: make([]*types.RoutingDecision, size)}
}

func (h *history) add(d *types.RoutingDecision) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = d
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

func (h *history) stats() Statistics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := Statistics{
		ByStrategy: make(map[types.Strategy]int),
		ByVenue:    make(map[string]int),
	}

	n := h.next
	if h.full {
		n = len(h.buf)
	}

	for i := 0; i < n; i++ {
		d := h.buf[i]
		stats.TotalDecisions++
		stats.ByStrategy[d.Strategy]++
		for _, a := range d.Allocations {
			stats.ByVenue[a.Venue]++
		}
		if d.Split {
			stats.SplitDecisions++
		}
	}

	if stats.TotalDecisions > 0 {
		stats.SplitRatio = float64(stats.SplitDecisions) / float64(stats.TotalDecisions)
	}

	// Up to the 10 most recent decisions, newest last.
	recent := make([]*types.RoutingDecision, 0, 10)
	count := n
	if count > 10 {
		count = 10
	}
	start := h.next - count
	if start < 0 {
		start += len(h.buf)
	}
	for i := 0; i < count; i++ {
		idx := (start + i) % len(h.buf)
		if h.buf[idx] != nil {
			recent = append(recent, h.buf[idx])
		}
	}
	stats.Recent = recent

	return stats
}
