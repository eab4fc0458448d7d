// Package marketdata defines the read-only market context feed consumed by
// the risk engine and circuit breaker. Real feeds (indicator pipelines,
// portfolio trackers) are external collaborators implementing Feed.
package marketdata

import "sync"

// Snapshot carries the market and portfolio context for one admission check.
type Snapshot struct {
	PortfolioValue float64
	RecentReturns  []float64
	HistoricalStd  float64
	CurrentSpread  float64
	AverageSpread  float64
}

// Feed supplies market and portfolio context on demand.
type Feed interface {
	// Snapshot returns the current market/portfolio context.
	Snapshot() Snapshot

	// SymbolVolatility returns realized volatility for a symbol, or 0 when
	// unknown.
	SymbolVolatility(symbol string) float64
}

// StaticFeed is an in-memory Feed for paper trading and tests.
type StaticFeed struct {
	mu         sync.RWMutex
	snapshot   Snapshot
	volatility map[string]float64
}

// NewStaticFeed creates a StaticFeed with the given starting portfolio value.
func NewStaticFeed(portfolioValue float64) *StaticFeed {
	return &StaticFeed{
		snapshot:   Snapshot{PortfolioValue: portfolioValue},
		volatility: make(map[string]float64),
	}
}

// Snapshot returns the current context.
func (f *StaticFeed) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := f.snapshot
	out.RecentReturns = append([]float64(nil), f.snapshot.RecentReturns...)
	return out
}

// SymbolVolatility returns the configured volatility for a symbol.
func (f *StaticFeed) SymbolVolatility(symbol string) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.volatility[symbol]
}

// SetSnapshot replaces the current context.
func (f *StaticFeed) SetSnapshot(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = s
}

// SetPortfolioValue updates only the portfolio value.
func (f *StaticFeed) SetPortfolioValue(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot.PortfolioValue = v
}

// SetSymbolVolatility sets realized volatility for a symbol.
func (f *StaticFeed) SetSymbolVolatility(symbol string, vol float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volatility[symbol] = vol
}
