// Package testutil provides in-memory fakes shared by the engine test
// suites.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crossvenue/smartroute/internal/circuitbreaker"
	"github.com/crossvenue/smartroute/pkg/types"
	"github.com/crossvenue/smartroute/pkg/venue"
	"github.com/google/uuid"
)

// MockAdapter is a configurable in-memory venue adapter. Zero value is not
// usable; construct with NewMockAdapter.
type MockAdapter struct {
	mu sync.Mutex

	name    string
	bid     float64
	ask     float64
	depth   float64
	maker   float64
	taker   float64
	minSize float64
	symbols map[string]bool

	// FailPlacements makes the next N placement calls fail before
	// succeeding again.
	FailPlacements int
	// PlaceDelay is slept inside every placement call.
	PlaceDelay time.Duration
	// QuoteErr, when set, is returned by Quote and OrderBook.
	QuoteErr error
	// CancelAck controls the acknowledgment flag returned by Cancel.
	CancelAck bool

	placeCalls  int
	cancelCalls int
	orders      map[string]*venue.ExecResult
}

// NewMockAdapter builds a mock venue quoting the given top of book.
func NewMockAdapter(name string, bid, ask float64) *MockAdapter {
	return &MockAdapter{
		name:      name,
		bid:       bid,
		ask:       ask,
		depth:     1000,
		maker:     0.001,
		taker:     0.002,
		minSize:   0.0001,
		symbols:   map[string]bool{},
		CancelAck: true,
		orders:    map[string]*venue.ExecResult{},
	}
}

// WithSymbols restricts the adapter to the given symbols. Without it every
// symbol is supported.
func (m *MockAdapter) WithSymbols(symbols ...string) *MockAdapter {
	for _, s := range symbols {
		m.symbols[s] = true
	}
	return m
}

// WithFees overrides the maker/taker schedule.
func (m *MockAdapter) WithFees(maker, taker float64) *MockAdapter {
	m.maker = maker
	m.taker = taker
	return m
}

// WithDepth overrides the per-level book depth.
func (m *MockAdapter) WithDepth(depth float64) *MockAdapter {
	m.depth = depth
	return m
}

// WithMinOrderSize overrides the minimum accepted amount.
func (m *MockAdapter) WithMinOrderSize(size float64) *MockAdapter {
	m.minSize = size
	return m
}

func (m *MockAdapter) Name() string { return m.name }

func (m *MockAdapter) Quote(_ context.Context, symbol string) (*venue.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QuoteErr != nil {
		return nil, m.QuoteErr
	}
	return &venue.Quote{
		Symbol:    symbol,
		Bid:       m.bid,
		Ask:       m.ask,
		Last:      (m.bid + m.ask) / 2,
		Timestamp: time.Now(),
	}, nil
}

func (m *MockAdapter) OrderBook(_ context.Context, symbol string, depth int) (*venue.OrderBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QuoteErr != nil {
		return nil, m.QuoteErr
	}
	if depth <= 0 {
		depth = 10
	}
	book := &venue.OrderBook{Symbol: symbol, Timestamp: time.Now()}
	for i := 0; i < depth; i++ {
		book.Bids = append(book.Bids, venue.BookLevel{Price: m.bid - float64(i)*m.bid*0.0001, Amount: m.depth})
		book.Asks = append(book.Asks, venue.BookLevel{Price: m.ask + float64(i)*m.ask*0.0001, Amount: m.depth})
	}
	return book, nil
}

func (m *MockAdapter) Fees(_ context.Context, _ string) (*venue.FeeSchedule, error) {
	return &venue.FeeSchedule{Maker: m.maker, Taker: m.taker}, nil
}

func (m *MockAdapter) PlaceMarket(ctx context.Context, symbol string, side types.Side, amount float64) (*venue.ExecResult, error) {
	price := m.ask
	if side == types.SideSell {
		price = m.bid
	}
	return m.place(ctx, symbol, amount, price)
}

func (m *MockAdapter) PlaceLimit(ctx context.Context, symbol string, _ types.Side, amount, price float64) (*venue.ExecResult, error) {
	return m.place(ctx, symbol, amount, price)
}

func (m *MockAdapter) PlaceStop(ctx context.Context, symbol string, _ types.Side, amount, stopPrice, limitPrice float64) (*venue.ExecResult, error) {
	price := limitPrice
	if price <= 0 {
		price = stopPrice
	}
	return m.place(ctx, symbol, amount, price)
}

func (m *MockAdapter) place(ctx context.Context, _ string, amount, price float64) (*venue.ExecResult, error) {
	if m.PlaceDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.PlaceDelay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.placeCalls++
	if m.FailPlacements > 0 {
		m.FailPlacements--
		return nil, fmt.Errorf("%s: placement rejected", m.name)
	}

	result := &venue.ExecResult{
		VenueOrderID: uuid.NewString(),
		Status:       types.StatusFilled,
		FilledAmount: amount,
		AvgPrice:     price,
		Timestamp:    time.Now(),
	}
	m.orders[result.VenueOrderID] = result
	return result, nil
}

func (m *MockAdapter) Cancel(_ context.Context, venueOrderID, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelCalls++
	if r, ok := m.orders[venueOrderID]; ok {
		r.Status = types.StatusCancelled
	}
	return m.CancelAck, nil
}

func (m *MockAdapter) OrderStatus(_ context.Context, venueOrderID, _ string) (*venue.ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.orders[venueOrderID]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%s: order %s not found", m.name, venueOrderID)
}

func (m *MockAdapter) SupportsSymbol(symbol string) bool {
	if len(m.symbols) == 0 {
		return true
	}
	return m.symbols[symbol]
}

func (m *MockAdapter) MinOrderSize(_ string) float64 { return m.minSize }

// PlaceCalls returns how many placement calls the adapter has seen.
func (m *MockAdapter) PlaceCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.placeCalls
}

// CancelCalls returns how many cancel calls the adapter has seen.
func (m *MockAdapter) CancelCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelCalls
}

// MemoryStorage is an in-memory Storage for tests.
type MemoryStorage struct {
	mu       sync.Mutex
	Trades   []*types.TradeRecord
	Triggers []*circuitbreaker.TriggerEvent
	// StoreErr, when set, is returned by both store methods.
	StoreErr error
}

// NewMemoryStorage builds an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) StoreTrade(_ context.Context, record *types.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StoreErr != nil {
		return s.StoreErr
	}
	s.Trades = append(s.Trades, record)
	return nil
}

func (s *MemoryStorage) StoreTrigger(_ context.Context, event *circuitbreaker.TriggerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StoreErr != nil {
		return s.StoreErr
	}
	s.Triggers = append(s.Triggers, event)
	return nil
}

func (s *MemoryStorage) Close() error { return nil }

// TradeCount returns the number of stored trades.
func (s *MemoryStorage) TradeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Trades)
}
