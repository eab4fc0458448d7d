package circuitbreaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/crossvenue/smartroute/internal/marketdata"
	"github.com/crossvenue/smartroute/pkg/types"
	"go.uber.org/zap"
)

// Trigger reasons reported by LossGuard.
const (
	ReasonDailyLoss = "daily_loss_limit"
	ReasonSlippage  = "slippage_breaches"
)

// LossGuard is the secondary breaker policy: it halts trading when the
// realized loss for the current UTC day exceeds a fraction of the day's
// starting portfolio value, or when per-trade slippage breaches accumulate.
// Day state resets at UTC midnight.
type LossGuard struct {
	maxDailyLoss   float64 // fraction of day-start value
	maxSlippageBPS float64
	maxBreaches    int
	historySize    int
	logger         *zap.Logger

	mu            sync.Mutex
	active        bool
	reason        string
	triggeredAt   time.Time
	cooldownUntil time.Time
	day           string // UTC date the day state belongs to
	dayStartValue float64
	dayPnL        float64
	breaches      int
	history       []TriggerEvent
	triggerCount  int
}

// LossGuardConfig holds LossGuard configuration.
type LossGuardConfig struct {
	MaxDailyLoss   float64
	MaxSlippageBPS float64
	MaxBreaches    int
	HistorySize    int
	Logger         *zap.Logger
}

// NewLossGuard creates the daily-loss/slippage breaker policy.
func NewLossGuard(cfg *LossGuardConfig) (*LossGuard, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.MaxDailyLoss <= 0 || cfg.MaxDailyLoss >= 1.0 {
		return nil, fmt.Errorf("max daily loss must be between 0 and 1.0")
	}
	if cfg.MaxBreaches <= 0 {
		return nil, fmt.Errorf("max breaches must be positive")
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}

	return &LossGuard{
		maxDailyLoss:   cfg.MaxDailyLoss,
		maxSlippageBPS: cfg.MaxSlippageBPS,
		maxBreaches:    cfg.MaxBreaches,
		historySize:    cfg.HistorySize,
		logger:         cfg.Logger,
	}, nil
}

// Name implements Policy.
func (g *LossGuard) Name() string { return "lossguard" }

// CanTrade rolls the day state over at UTC midnight, anchors the day-start
// value on the first snapshot of the day, and denies while tripped.
func (g *LossGuard) CanTrade(snap marketdata.Snapshot) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.rolloverLocked(now, snap.PortfolioValue)

	if g.active {
		if now.Before(g.cooldownUntil) {
			return Decision{
				Allowed:           false,
				Policy:            g.Name(),
				Reason:            g.reason,
				RemainingCooldown: g.cooldownUntil.Sub(now),
			}
		}
		g.active = false
		g.reason = ""
		BreakerActive.WithLabelValues(g.Name()).Set(0)
		g.logger.Info("breaker-cooldown-elapsed", zap.String("policy", g.Name()))
	}

	return Decision{Allowed: true, Policy: g.Name()}
}

// RecordOutcome accumulates realized PnL for the day and counts slippage
// breaches.
func (g *LossGuard) RecordOutcome(outcome TradeOutcome) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.rolloverLocked(now, 0)

	g.dayPnL += outcome.PnL
	DailyPnL.Set(g.dayPnL)

	if g.dayStartValue > 0 && g.dayPnL < 0 {
		lossPct := -g.dayPnL / g.dayStartValue
		if lossPct >= g.maxDailyLoss {
			details := fmt.Sprintf("daily loss %.2f%% of %.2f start value",
				lossPct*100, g.dayStartValue)
			g.triggerLocked(ReasonDailyLoss, details, g.untilMidnight(now))
			return
		}
	}

	if g.maxSlippageBPS > 0 && outcome.SlippageBPS > g.maxSlippageBPS {
		g.breaches++
		g.logger.Warn("slippage-breach",
			zap.String("symbol", outcome.Symbol),
			zap.Float64("slippage_bps", outcome.SlippageBPS),
			zap.Float64("limit_bps", g.maxSlippageBPS),
			zap.Int("breaches", g.breaches))

		if g.breaches >= g.maxBreaches {
			details := fmt.Sprintf("%d slippage breaches over %.1f bps", g.breaches, g.maxSlippageBPS)
			g.triggerLocked(ReasonSlippage, details, g.untilMidnight(now))
		}
	}
}

// RecordError is a no-op: error-rate halts are the market breaker's concern.
func (g *LossGuard) RecordError(category types.VenueErrorCategory) {}

// Trigger implements manual activation.
func (g *LossGuard) Trigger(reason string, cooldown time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if reason == "" {
		reason = ReasonManual
	}
	if cooldown <= 0 {
		cooldown = g.untilMidnight(time.Now())
	}
	g.triggerLocked(reason, "manual trigger", cooldown)
}

// Reset clears the active state and day counters.
func (g *LossGuard) Reset(opts ResetOptions) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.active = false
	g.reason = ""
	g.breaches = 0
	g.dayPnL = 0
	DailyPnL.Set(0)
	BreakerActive.WithLabelValues(g.Name()).Set(0)

	if opts.ClearHistory {
		g.history = nil
	}
}

// Status returns the current state.
func (g *LossGuard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	history := make([]TriggerEvent, len(g.history))
	copy(history, g.history)

	return Status{
		Policy:        g.Name(),
		Active:        g.active,
		Reason:        g.reason,
		TriggeredAt:   g.triggeredAt,
		CooldownUntil: g.cooldownUntil,
		TriggerCount:  g.triggerCount,
		History:       history,
	}
}

// rolloverLocked resets the day state when the UTC date changes, and anchors
// the day-start value on the first nonzero portfolio snapshot of the day.
func (g *LossGuard) rolloverLocked(now time.Time, portfolioValue float64) {
	day := now.UTC().Format("2006-01-02")
	if day != g.day {
		g.day = day
		g.dayStartValue = 0
		g.dayPnL = 0
		g.breaches = 0
		DailyPnL.Set(0)
	}
	if g.dayStartValue == 0 && portfolioValue > 0 {
		g.dayStartValue = portfolioValue
	}
}

func (g *LossGuard) untilMidnight(now time.Time) time.Duration {
	utc := now.UTC()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return midnight.Sub(utc)
}

func (g *LossGuard) triggerLocked(reason, details string, cooldown time.Duration) {
	now := time.Now()
	g.active = true
	g.reason = reason
	g.triggeredAt = now
	g.cooldownUntil = now.Add(cooldown)
	g.triggerCount++

	event := TriggerEvent{
		Policy:        g.Name(),
		Reason:        reason,
		Details:       details,
		TriggeredAt:   now,
		CooldownUntil: g.cooldownUntil,
	}
	g.history = append(g.history, event)
	if len(g.history) > g.historySize {
		g.history = g.history[len(g.history)-g.historySize:]
	}

	BreakerActive.WithLabelValues(g.Name()).Set(1)
	TriggersTotal.WithLabelValues(g.Name(), reason).Inc()

	g.logger.Warn("breaker-triggered",
		zap.String("policy", g.Name()),
		zap.String("reason", reason),
		zap.String("details", details),
		zap.Time("cooldown_until", g.cooldownUntil))
}
