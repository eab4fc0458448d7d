package circuitbreaker

import (
	"testing"
	"time"

	"github.com/crossvenue/smartroute/internal/marketdata"
	"github.com/crossvenue/smartroute/pkg/types"
	"go.uber.org/zap/zaptest"
)

func validMarketConfig(t *testing.T) *MarketConfig {
	t.Helper()
	return &MarketConfig{
		MaxDrawdownPct:       0.10,
		VolatilityThreshold:  2.5,
		MaxConsecutiveLosses: 5,
		MaxAPIErrors:         10,
		MaxSpreadMultiple:    3.0,
		Cooldown:             30 * time.Minute,
		HistorySize:          100,
		Logger:               zaptest.NewLogger(t),
	}
}

func TestNewMarketBreaker(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)

	tests := []struct {
		name    string
		mutate  func(*MarketConfig)
		nilCfg  bool
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid-config",
			mutate: func(*MarketConfig) {},
		},
		{
			name:    "nil-config",
			nilCfg:  true,
			wantErr: true,
			errMsg:  "config cannot be nil",
		},
		{
			name:    "nil-logger",
			mutate:  func(c *MarketConfig) { c.Logger = nil },
			wantErr: true,
			errMsg:  "logger cannot be nil",
		},
		{
			name:    "zero-drawdown",
			mutate:  func(c *MarketConfig) { c.MaxDrawdownPct = 0 },
			wantErr: true,
			errMsg:  "max drawdown pct must be between 0 and 1.0",
		},
		{
			name:    "drawdown-at-one",
			mutate:  func(c *MarketConfig) { c.MaxDrawdownPct = 1.0 },
			wantErr: true,
			errMsg:  "max drawdown pct must be between 0 and 1.0",
		},
		{
			name:    "zero-consecutive-losses",
			mutate:  func(c *MarketConfig) { c.MaxConsecutiveLosses = 0 },
			wantErr: true,
			errMsg:  "max consecutive losses must be positive",
		},
		{
			name:    "zero-api-errors",
			mutate:  func(c *MarketConfig) { c.MaxAPIErrors = 0 },
			wantErr: true,
			errMsg:  "max api errors must be positive",
		},
		{
			name:    "zero-cooldown",
			mutate:  func(c *MarketConfig) { c.Cooldown = 0 },
			wantErr: true,
			errMsg:  "cooldown must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg *MarketConfig
			if !tt.nilCfg {
				cfg = validMarketConfig(t)
				cfg.Logger = logger
				tt.mutate(cfg)
			}

			breaker, err := NewMarketBreaker(cfg)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tt.errMsg)
				}
				if err.Error() != tt.errMsg {
					t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if breaker == nil {
				t.Fatal("expected breaker, got nil")
			}
			if breaker.Status().Active {
				t.Error("expected breaker to start inactive")
			}
		})
	}
}

func TestMarketBreaker_DrawdownTrip(t *testing.T) {
	t.Parallel()

	breaker, err := NewMarketBreaker(validMarketConfig(t))
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	// Establish peak at 100000
	decision := breaker.CanTrade(marketdata.Snapshot{PortfolioValue: 100000})
	if !decision.Allowed {
		t.Fatalf("expected trade allowed at peak, got denial: %s", decision.Reason)
	}

	// 15% drawdown against a 10% limit trips the breaker
	decision = breaker.CanTrade(marketdata.Snapshot{PortfolioValue: 85000})
	if decision.Allowed {
		t.Fatal("expected trade denied at 15% drawdown")
	}
	if decision.Reason != ReasonDrawdown {
		t.Errorf("expected reason %q, got %q", ReasonDrawdown, decision.Reason)
	}
	if decision.RemainingCooldown <= 0 {
		t.Errorf("expected positive remaining cooldown, got %s", decision.RemainingCooldown)
	}

	status := breaker.Status()
	if !status.Active {
		t.Error("expected breaker active after trip")
	}
	if status.PeakValue != 100000 {
		t.Errorf("expected peak 100000, got %f", status.PeakValue)
	}
	if status.TriggerCount != 1 {
		t.Errorf("expected 1 trigger, got %d", status.TriggerCount)
	}
	if len(status.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(status.History))
	}
	if status.History[0].Reason != ReasonDrawdown {
		t.Errorf("expected history reason %q, got %q", ReasonDrawdown, status.History[0].Reason)
	}
}

func TestMarketBreaker_DrawdownBelowLimitAllowed(t *testing.T) {
	t.Parallel()

	breaker, err := NewMarketBreaker(validMarketConfig(t))
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.CanTrade(marketdata.Snapshot{PortfolioValue: 100000})

	// 9% drawdown stays under the 10% limit
	decision := breaker.CanTrade(marketdata.Snapshot{PortfolioValue: 91000})
	if !decision.Allowed {
		t.Errorf("expected trade allowed at 9%% drawdown, denied with %q", decision.Reason)
	}
}

func TestMarketBreaker_CooldownAutoReset(t *testing.T) {
	t.Parallel()

	cfg := validMarketConfig(t)
	cfg.Cooldown = 10 * time.Millisecond
	breaker, err := NewMarketBreaker(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.CanTrade(marketdata.Snapshot{PortfolioValue: 100000})
	decision := breaker.CanTrade(marketdata.Snapshot{PortfolioValue: 85000})
	if decision.Allowed {
		t.Fatal("expected trip")
	}

	time.Sleep(20 * time.Millisecond)

	// Cooldown elapsed; a recovered portfolio is admitted again. The peak is
	// retained, so the recovered value must clear the drawdown check.
	decision = breaker.CanTrade(marketdata.Snapshot{PortfolioValue: 99000})
	if !decision.Allowed {
		t.Errorf("expected trade allowed after cooldown, denied with %q", decision.Reason)
	}
	if breaker.Status().Active {
		t.Error("expected breaker inactive after cooldown elapsed")
	}
}

func TestMarketBreaker_CanTradeIdempotentWhileActive(t *testing.T) {
	t.Parallel()

	breaker, err := NewMarketBreaker(validMarketConfig(t))
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.CanTrade(marketdata.Snapshot{PortfolioValue: 100000})
	breaker.CanTrade(marketdata.Snapshot{PortfolioValue: 85000})

	for i := 0; i < 5; i++ {
		breaker.CanTrade(marketdata.Snapshot{PortfolioValue: 85000})
	}

	// Repeated denials must not re-trigger
	status := breaker.Status()
	if status.TriggerCount != 1 {
		t.Errorf("expected 1 trigger after repeated denials, got %d", status.TriggerCount)
	}
}

func TestMarketBreaker_VolatilitySpike(t *testing.T) {
	t.Parallel()

	breaker, err := NewMarketBreaker(validMarketConfig(t))
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	// Recent returns with stddev far above the historical baseline
	snap := marketdata.Snapshot{
		PortfolioValue: 100000,
		RecentReturns:  []float64{0.05, -0.06, 0.07, -0.05, 0.06},
		HistoricalStd:  0.001,
	}

	decision := breaker.CanTrade(snap)
	if decision.Allowed {
		t.Fatal("expected denial on volatility spike")
	}
	if decision.Reason != ReasonVolatility {
		t.Errorf("expected reason %q, got %q", ReasonVolatility, decision.Reason)
	}
}

func TestMarketBreaker_SpreadBlowout(t *testing.T) {
	t.Parallel()

	breaker, err := NewMarketBreaker(validMarketConfig(t))
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	snap := marketdata.Snapshot{
		PortfolioValue: 100000,
		CurrentSpread:  0.009,
		AverageSpread:  0.003, // 3x >= 3.0 limit
	}

	decision := breaker.CanTrade(snap)
	if decision.Allowed {
		t.Fatal("expected denial on spread blowout")
	}
	if decision.Reason != ReasonSpread {
		t.Errorf("expected reason %q, got %q", ReasonSpread, decision.Reason)
	}
}

func TestMarketBreaker_ConsecutiveLosses(t *testing.T) {
	t.Parallel()

	cfg := validMarketConfig(t)
	cfg.MaxConsecutiveLosses = 3
	breaker, err := NewMarketBreaker(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	loss := TradeOutcome{Symbol: "BTC-USD", PnL: -100, At: time.Now()}
	win := TradeOutcome{Symbol: "BTC-USD", PnL: 50, At: time.Now()}

	breaker.RecordOutcome(loss)
	breaker.RecordOutcome(loss)
	breaker.RecordOutcome(win) // resets the streak
	breaker.RecordOutcome(loss)
	breaker.RecordOutcome(loss)

	if breaker.Status().Active {
		t.Fatal("expected breaker inactive at 2 consecutive losses")
	}

	breaker.RecordOutcome(loss)

	status := breaker.Status()
	if !status.Active {
		t.Fatal("expected breaker active at 3 consecutive losses")
	}
	if status.Reason != ReasonConsecutiveLosses {
		t.Errorf("expected reason %q, got %q", ReasonConsecutiveLosses, status.Reason)
	}
}

func TestMarketBreaker_ErrorRate(t *testing.T) {
	t.Parallel()

	cfg := validMarketConfig(t)
	cfg.MaxAPIErrors = 3
	breaker, err := NewMarketBreaker(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordError(types.ErrCategoryAPI)
	breaker.RecordError(types.ErrCategoryNetwork)

	if breaker.Status().Active {
		t.Fatal("expected breaker inactive at 2 errors")
	}

	// Mixed categories count toward one combined limit
	breaker.RecordError(types.ErrCategoryTimeout)

	status := breaker.Status()
	if !status.Active {
		t.Fatal("expected breaker active at 3 errors")
	}
	if status.Reason != ReasonErrorRate {
		t.Errorf("expected reason %q, got %q", ReasonErrorRate, status.Reason)
	}
}

func TestMarketBreaker_SystemErrorTripsImmediately(t *testing.T) {
	t.Parallel()

	breaker, err := NewMarketBreaker(validMarketConfig(t))
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordError(types.ErrCategorySystem)

	status := breaker.Status()
	if !status.Active {
		t.Fatal("expected breaker active after system error")
	}
	if status.Reason != ReasonSystemError {
		t.Errorf("expected reason %q, got %q", ReasonSystemError, status.Reason)
	}
}

func TestMarketBreaker_ManualTriggerAndReset(t *testing.T) {
	t.Parallel()

	breaker, err := NewMarketBreaker(validMarketConfig(t))
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.Trigger("", time.Hour)

	status := breaker.Status()
	if !status.Active {
		t.Fatal("expected breaker active after manual trigger")
	}
	if status.Reason != ReasonManual {
		t.Errorf("expected reason %q, got %q", ReasonManual, status.Reason)
	}

	breaker.CanTrade(marketdata.Snapshot{PortfolioValue: 100000})
	breaker.Reset(ResetOptions{ClearHistory: true, ClearPeak: true})

	status = breaker.Status()
	if status.Active {
		t.Error("expected breaker inactive after reset")
	}
	if len(status.History) != 0 {
		t.Errorf("expected empty history after reset, got %d entries", len(status.History))
	}
	if status.PeakValue != 0 {
		t.Errorf("expected peak cleared, got %f", status.PeakValue)
	}
}

func TestMarketBreaker_HistoryBounded(t *testing.T) {
	t.Parallel()

	cfg := validMarketConfig(t)
	cfg.HistorySize = 3
	breaker, err := NewMarketBreaker(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	for i := 0; i < 5; i++ {
		breaker.Trigger("manual", time.Minute)
	}

	status := breaker.Status()
	if len(status.History) != 3 {
		t.Errorf("expected history capped at 3, got %d", len(status.History))
	}
	if status.TriggerCount != 5 {
		t.Errorf("expected trigger count 5, got %d", status.TriggerCount)
	}
}

func TestStddev(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "single", values: []float64{1.0}, want: 0},
		{name: "identical", values: []float64{2, 2, 2, 2}, want: 0},
		{name: "known-sample", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, want: 2.13808993529939},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stddev(tt.values)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("stddev(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}
