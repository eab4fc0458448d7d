package orchestrator

import (
	"sync"
	"sync/atomic"

	"github.com/crossvenue/smartroute/pkg/types"
)

// leg is one venue placement belonging to an order. Split orders carry one
// leg per venue.
type leg struct {
	venue        string
	venueOrderID string
	filled       float64
	avgPrice     float64
}

// managedOrder is an order owned by the orchestrator while active. The
// cancelled flag is checked between retry attempts so that a cancellation
// observes and supersedes any in-flight retry.
type managedOrder struct {
	mu        sync.Mutex
	order     types.Order
	legs      []leg
	strategy  types.Strategy
	riskScore float64
	cancelled atomic.Bool
	attempts  atomic.Int64
}

func (m *managedOrder) snapshot() types.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order
}

// orderTable holds active orders and a bounded history of terminal ones.
// Completion counters run unbounded so Stats survives history truncation.
type orderTable struct {
	mu          sync.RWMutex
	active      map[string]*managedOrder
	history     []types.Order
	historySize int
	completed   map[types.OrderStatus]int64
}

func newOrderTable(historySize int) *orderTable {
	if historySize <= 0 {
		historySize = 1000
	}
	return &orderTable{
		active:      make(map[string]*managedOrder),
		historySize: historySize,
		completed:   make(map[types.OrderStatus]int64),
	}
}

func (t *orderTable) add(m *managedOrder) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[m.order.ID] = m
	ActiveOrders.Set(float64(len(t.active)))
}

func (t *orderTable) get(id string) (*managedOrder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.active[id]
	return m, ok
}

// complete moves an order to immutable history under its terminal status.
// A second completion of the same order (a cancel racing the execution loop)
// is a no-op.
func (t *orderTable) complete(m *managedOrder) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.active[m.order.ID]; !ok {
		return
	}
	delete(t.active, m.order.ID)
	ActiveOrders.Set(float64(len(t.active)))

	snap := m.snapshot()
	t.completed[snap.Status]++
	t.history = append(t.history, snap)
	if len(t.history) > t.historySize {
		t.history = t.history[len(t.history)-t.historySize:]
	}
}

func (t *orderTable) stats() Statistics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := Statistics{
		ActiveOrders: len(t.active),
		ByStatus:     make(map[types.OrderStatus]int64, len(t.completed)),
	}
	for status, n := range t.completed {
		stats.ByStatus[status] = n
		stats.TotalCompleted += n
	}
	return stats
}

func (t *orderTable) activeOrders() []types.Order {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.Order, 0, len(t.active))
	for _, m := range t.active {
		out = append(out, m.snapshot())
	}
	return out
}

func (t *orderTable) activeManaged() []*managedOrder {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*managedOrder, 0, len(t.active))
	for _, m := range t.active {
		out = append(out, m)
	}
	return out
}

func (t *orderTable) historyOrders() []types.Order {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.Order, len(t.history))
	copy(out, t.history)
	return out
}
