// Package risk implements pre-trade order checks and position sizing.
package risk

import (
	"fmt"
	"sync/atomic"

	"github.com/crossvenue/smartroute/internal/marketdata"
	"github.com/crossvenue/smartroute/pkg/types"
	"go.uber.org/zap"
)

// Limits holds the risk configuration applied to every order.
type Limits struct {
	Capital            float64
	MaxTradeSizePct    float64
	MaxOpenPositions   int
	MinPositionSize    float64
	MaxPositionSizePct float64
	MinConfidence      float64
}

// CheckResult is the outcome of one pre-trade check.
type CheckResult struct {
	Approved   bool    `json:"approved"`
	Reason     string  `json:"reason,omitempty"`
	MaxAllowed float64 `json:"max_allowed,omitempty"`
	RiskScore  float64 `json:"risk_score"`
}

// Engine evaluates orders against the configured limits. Checks are pure
// given their inputs apart from the open-position counter, which the
// orchestrator maintains through IncOpenPositions/DecOpenPositions.
type Engine struct {
	limits Limits
	feed   marketdata.Feed
	logger *zap.Logger

	openPositions atomic.Int64
}

// Config holds engine configuration.
type Config struct {
	Limits Limits
	Feed   marketdata.Feed
	Logger *zap.Logger
}

// New creates a new risk engine.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Feed == nil {
		return nil, fmt.Errorf("market data feed cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.Limits.Capital <= 0 {
		return nil, fmt.Errorf("capital must be positive")
	}
	if cfg.Limits.MaxTradeSizePct <= 0 || cfg.Limits.MaxTradeSizePct > 1.0 {
		return nil, fmt.Errorf("max trade size pct must be between 0 and 1.0")
	}
	if cfg.Limits.MaxOpenPositions <= 0 {
		return nil, fmt.Errorf("max open positions must be positive")
	}

	return &Engine{
		limits: cfg.Limits,
		feed:   cfg.Feed,
		logger: cfg.Logger,
	}, nil
}

// CheckOrder rejects an order whose notional exceeds capital * maxTradeSizePct
// or that would open one position too many. An order at exactly the limit is
// approved; the open-position limit binds only position-opening (buy) orders,
// so a closing sell always passes it. The rejection carries the computed
// maximum so the caller can decide whether to clamp (via EnforceRiskLimits) —
// the check itself never clamps.
func (e *Engine) CheckOrder(symbol string, side types.Side, amount, price float64) CheckResult {
	notional := amount * price
	maxNotional := e.limits.Capital * e.limits.MaxTradeSizePct
	score := e.riskScore(symbol, notional)

	if notional > maxNotional {
		ChecksTotal.WithLabelValues("rejected").Inc()
		e.logger.Warn("order-risk-rejected",
			zap.String("symbol", symbol),
			zap.Float64("notional", notional),
			zap.Float64("max_allowed", maxNotional))

		return CheckResult{
			Approved:   false,
			Reason:     fmt.Sprintf("notional %.2f exceeds max trade size %.2f", notional, maxNotional),
			MaxAllowed: maxNotional,
			RiskScore:  score,
		}
	}

	if open := int(e.openPositions.Load()); side == types.SideBuy && open >= e.limits.MaxOpenPositions {
		ChecksTotal.WithLabelValues("rejected").Inc()
		return CheckResult{
			Approved:  false,
			Reason:    fmt.Sprintf("open positions %d at limit %d", open, e.limits.MaxOpenPositions),
			RiskScore: score,
		}
	}

	ChecksTotal.WithLabelValues("approved").Inc()
	RiskScoreObserved.Observe(score)

	return CheckResult{Approved: true, RiskScore: score}
}

// EnforceRiskLimits clamps an order amount to the per-trade notional limit.
// This is a separate, explicit operation: callers opt into clamping rather
// than having CheckOrder silently shrink their orders.
func (e *Engine) EnforceRiskLimits(amount, price float64) float64 {
	if price <= 0 {
		return amount
	}

	maxNotional := e.limits.Capital * e.limits.MaxTradeSizePct
	if amount*price <= maxNotional {
		return amount
	}

	clamped := maxNotional / price
	e.logger.Info("order-amount-clamped",
		zap.Float64("requested", amount),
		zap.Float64("clamped", clamped))

	return clamped
}

// riskScore maps the position-to-capital ratio onto a bounded 0-10 scale,
// scaled up for historically volatile symbols.
func (e *Engine) riskScore(symbol string, notional float64) float64 {
	ratio := notional / e.limits.Capital
	score := ratio * 10 / e.limits.MaxTradeSizePct

	vol := e.feed.SymbolVolatility(symbol)
	if vol > 0 {
		score *= 1 + vol
	}

	if score > 10 {
		score = 10
	}
	if score < 0 {
		score = 0
	}
	return score
}

// IncOpenPositions records a newly opened position.
func (e *Engine) IncOpenPositions() {
	OpenPositions.Set(float64(e.openPositions.Add(1)))
}

// DecOpenPositions records a closed position.
func (e *Engine) DecOpenPositions() {
	v := e.openPositions.Add(-1)
	if v < 0 {
		e.openPositions.Store(0)
		v = 0
	}
	OpenPositions.Set(float64(v))
}

// OpenPositions returns the current open-position count.
func (e *Engine) OpenPositions() int {
	return int(e.openPositions.Load())
}

// Limits returns the configured limits.
func (e *Engine) Limits() Limits {
	return e.limits
}
