package circuitbreaker

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/crossvenue/smartroute/internal/marketdata"
	"github.com/crossvenue/smartroute/pkg/types"
	"go.uber.org/zap"
)

// Trigger reasons reported by MarketBreaker.
const (
	ReasonDrawdown          = "max_drawdown_exceeded"
	ReasonVolatility        = "volatility_spike"
	ReasonConsecutiveLosses = "consecutive_losses"
	ReasonErrorRate         = "error_rate"
	ReasonSystemError       = "system_error"
	ReasonSpread            = "spread_blowout"
	ReasonManual            = "manual"
)

// MarketBreaker is the canonical trading halt gate. It trips on portfolio
// drawdown, return volatility, consecutive losing trades, sustained error
// rates, spread blowouts, or manual activation, and auto-resets once its
// cooldown elapses.
type MarketBreaker struct {
	maxDrawdownPct       float64
	volatilityThreshold  float64
	maxConsecutiveLosses int
	maxAPIErrors         int
	maxSpreadMultiple    float64
	cooldown             time.Duration
	historySize          int
	logger               *zap.Logger

	// All mutable state below is guarded by mu so that peak updates and the
	// admission decision are observed atomically.
	mu                sync.Mutex
	active            bool
	reason            string
	triggeredAt       time.Time
	cooldownUntil     time.Time
	peakValue         float64
	consecutiveLosses int
	errorTimes        map[types.VenueErrorCategory][]time.Time
	history           []TriggerEvent
	triggerCount      int
}

// MarketConfig holds MarketBreaker configuration.
type MarketConfig struct {
	MaxDrawdownPct       float64
	VolatilityThreshold  float64
	MaxConsecutiveLosses int
	MaxAPIErrors         int
	MaxSpreadMultiple    float64
	Cooldown             time.Duration
	HistorySize          int
	Logger               *zap.Logger
}

// NewMarketBreaker creates the canonical circuit breaker.
func NewMarketBreaker(cfg *MarketConfig) (*MarketBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.MaxDrawdownPct <= 0 || cfg.MaxDrawdownPct >= 1.0 {
		return nil, fmt.Errorf("max drawdown pct must be between 0 and 1.0")
	}
	if cfg.MaxConsecutiveLosses <= 0 {
		return nil, fmt.Errorf("max consecutive losses must be positive")
	}
	if cfg.MaxAPIErrors <= 0 {
		return nil, fmt.Errorf("max api errors must be positive")
	}
	if cfg.Cooldown <= 0 {
		return nil, fmt.Errorf("cooldown must be positive")
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}

	return &MarketBreaker{
		maxDrawdownPct:       cfg.MaxDrawdownPct,
		volatilityThreshold:  cfg.VolatilityThreshold,
		maxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		maxAPIErrors:         cfg.MaxAPIErrors,
		maxSpreadMultiple:    cfg.MaxSpreadMultiple,
		cooldown:             cfg.Cooldown,
		historySize:          cfg.HistorySize,
		logger:               cfg.Logger,
		errorTimes:           make(map[types.VenueErrorCategory][]time.Time),
	}, nil
}

// Name implements Policy.
func (b *MarketBreaker) Name() string { return "market" }

// CanTrade evaluates the admission checks in order: cooldown expiry, then
// drawdown, volatility, and spread, short-circuiting on the first failure.
// Peak portfolio value is updated as a side effect, atomically with the
// decision.
func (b *MarketBreaker) CanTrade(snap marketdata.Snapshot) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	if b.active {
		if now.Before(b.cooldownUntil) {
			return Decision{
				Allowed:           false,
				Policy:            b.Name(),
				Reason:            b.reason,
				RemainingCooldown: b.cooldownUntil.Sub(now),
			}
		}
		b.deactivateLocked()
	}

	if snap.PortfolioValue > b.peakValue {
		b.peakValue = snap.PortfolioValue
		PeakPortfolioValue.Set(b.peakValue)
	}

	if b.peakValue > 0 && snap.PortfolioValue > 0 {
		drawdown := (b.peakValue - snap.PortfolioValue) / b.peakValue
		if drawdown >= b.maxDrawdownPct {
			details := fmt.Sprintf("drawdown %.2f%% (peak %.2f, current %.2f)",
				drawdown*100, b.peakValue, snap.PortfolioValue)
			b.triggerLocked(ReasonDrawdown, details, b.cooldown)
			return b.deniedLocked(now)
		}
	}

	if b.volatilityThreshold > 0 && snap.HistoricalStd > 0 && len(snap.RecentReturns) >= 2 {
		recentStd := stddev(snap.RecentReturns)
		ratio := recentStd / snap.HistoricalStd
		if ratio >= b.volatilityThreshold {
			details := fmt.Sprintf("volatility ratio %.2f (recent %.6f, historical %.6f)",
				ratio, recentStd, snap.HistoricalStd)
			b.triggerLocked(ReasonVolatility, details, b.cooldown)
			return b.deniedLocked(now)
		}
	}

	if b.maxSpreadMultiple > 0 && snap.AverageSpread > 0 {
		multiple := snap.CurrentSpread / snap.AverageSpread
		if multiple >= b.maxSpreadMultiple {
			details := fmt.Sprintf("spread multiple %.2f (current %.6f, average %.6f)",
				multiple, snap.CurrentSpread, snap.AverageSpread)
			b.triggerLocked(ReasonSpread, details, b.cooldown)
			return b.deniedLocked(now)
		}
	}

	return Decision{Allowed: true, Policy: b.Name()}
}

// RecordOutcome updates the consecutive-loss counter. A winning trade resets
// it; reaching the configured limit trips the breaker.
func (b *MarketBreaker) RecordOutcome(outcome TradeOutcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if outcome.PnL >= 0 {
		b.consecutiveLosses = 0
		return
	}

	b.consecutiveLosses++
	ConsecutiveLosses.Set(float64(b.consecutiveLosses))

	if b.consecutiveLosses >= b.maxConsecutiveLosses {
		details := fmt.Sprintf("%d consecutive losing trades (last: %s %.2f)",
			b.consecutiveLosses, outcome.Symbol, outcome.PnL)
		b.triggerLocked(ReasonConsecutiveLosses, details, b.cooldown)
	}
}

// RecordError counts a categorized error within a rolling hour. Any
// system-category error trips the breaker immediately; api, network and
// timeout errors trip it once their combined count reaches the limit.
func (b *MarketBreaker) RecordError(category types.VenueErrorCategory) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	ErrorsTotal.WithLabelValues(string(category)).Inc()

	if category == types.ErrCategorySystem {
		b.triggerLocked(ReasonSystemError, "system error reported", b.cooldown)
		return
	}

	b.errorTimes[category] = append(b.errorTimes[category], now)
	b.pruneErrorsLocked(now)

	total := len(b.errorTimes[types.ErrCategoryAPI]) +
		len(b.errorTimes[types.ErrCategoryNetwork]) +
		len(b.errorTimes[types.ErrCategoryTimeout])

	if total >= b.maxAPIErrors {
		details := fmt.Sprintf("%d api/network/timeout errors within the last hour", total)
		b.triggerLocked(ReasonErrorRate, details, b.cooldown)
	}
}

// pruneErrorsLocked drops error timestamps older than one hour.
func (b *MarketBreaker) pruneErrorsLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	for cat, times := range b.errorTimes {
		kept := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		b.errorTimes[cat] = kept
	}
}

// Trigger implements manual activation.
func (b *MarketBreaker) Trigger(reason string, cooldown time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if reason == "" {
		reason = ReasonManual
	}
	if cooldown <= 0 {
		cooldown = b.cooldown
	}
	b.triggerLocked(reason, "manual trigger", cooldown)
}

// Reset clears the active state and, optionally, history and peak tracking.
func (b *MarketBreaker) Reset(opts ResetOptions) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasActive := b.active
	b.active = false
	b.reason = ""
	b.consecutiveLosses = 0
	b.errorTimes = make(map[types.VenueErrorCategory][]time.Time)

	if opts.ClearHistory {
		b.history = nil
	}
	if opts.ClearPeak {
		b.peakValue = 0
		PeakPortfolioValue.Set(0)
	}

	if wasActive {
		BreakerActive.WithLabelValues(b.Name()).Set(0)
		b.logger.Info("breaker-manually-reset",
			zap.String("policy", b.Name()),
			zap.Bool("cleared_history", opts.ClearHistory),
			zap.Bool("cleared_peak", opts.ClearPeak))
	}
}

// Status returns the current state including bounded trigger history.
func (b *MarketBreaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := make(map[string]int, len(b.errorTimes))
	for cat, times := range b.errorTimes {
		counts[string(cat)] = len(times)
	}

	history := make([]TriggerEvent, len(b.history))
	copy(history, b.history)

	return Status{
		Policy:            b.Name(),
		Active:            b.active,
		Reason:            b.reason,
		TriggeredAt:       b.triggeredAt,
		CooldownUntil:     b.cooldownUntil,
		PeakValue:         b.peakValue,
		ConsecutiveLosses: b.consecutiveLosses,
		ErrorCounts:       counts,
		TriggerCount:      b.triggerCount,
		History:           history,
	}
}

func (b *MarketBreaker) triggerLocked(reason, details string, cooldown time.Duration) {
	now := time.Now()
	b.active = true
	b.reason = reason
	b.triggeredAt = now
	b.cooldownUntil = now.Add(cooldown)
	b.triggerCount++

	event := TriggerEvent{
		Policy:        b.Name(),
		Reason:        reason,
		Details:       details,
		TriggeredAt:   now,
		CooldownUntil: b.cooldownUntil,
	}
	b.history = append(b.history, event)
	if len(b.history) > b.historySize {
		b.history = b.history[len(b.history)-b.historySize:]
	}

	BreakerActive.WithLabelValues(b.Name()).Set(1)
	TriggersTotal.WithLabelValues(b.Name(), reason).Inc()

	b.logger.Warn("breaker-triggered",
		zap.String("policy", b.Name()),
		zap.String("reason", reason),
		zap.String("details", details),
		zap.Time("cooldown_until", b.cooldownUntil))
}

func (b *MarketBreaker) deactivateLocked() {
	b.active = false
	b.reason = ""
	b.consecutiveLosses = 0
	BreakerActive.WithLabelValues(b.Name()).Set(0)
	b.logger.Info("breaker-cooldown-elapsed", zap.String("policy", b.Name()))
}

func (b *MarketBreaker) deniedLocked(now time.Time) Decision {
	return Decision{
		Allowed:           false,
		Policy:            b.Name(),
		Reason:            b.reason,
		RemainingCooldown: b.cooldownUntil.Sub(now),
	}
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values) - 1)

	return math.Sqrt(variance)
}
