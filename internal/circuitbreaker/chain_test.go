package circuitbreaker

import (
	"testing"
	"time"

	"github.com/crossvenue/smartroute/internal/marketdata"
	"github.com/crossvenue/smartroute/pkg/types"
)

// stubPolicy is a scriptable Policy for chain tests.
type stubPolicy struct {
	name      string
	allow     bool
	evaluated int
	outcomes  int
	errors    int
	triggered int
	resets    int
}

func (s *stubPolicy) Name() string { return s.name }

func (s *stubPolicy) CanTrade(marketdata.Snapshot) Decision {
	s.evaluated++
	if s.allow {
		return Decision{Allowed: true, Policy: s.name}
	}
	return Decision{Allowed: false, Policy: s.name, Reason: s.name + "-denied"}
}

func (s *stubPolicy) RecordOutcome(TradeOutcome)           { s.outcomes++ }
func (s *stubPolicy) RecordError(types.VenueErrorCategory) { s.errors++ }
func (s *stubPolicy) Trigger(string, time.Duration)        { s.triggered++ }
func (s *stubPolicy) Reset(ResetOptions)                   { s.resets++ }
func (s *stubPolicy) Status() Status {
	return Status{Policy: s.name, Active: !s.allow}
}

func TestNewChain(t *testing.T) {
	t.Parallel()

	if _, err := NewChain(); err == nil {
		t.Error("expected error for empty chain")
	}
	if _, err := NewChain(&stubPolicy{name: "a", allow: true}, nil); err == nil {
		t.Error("expected error for nil policy")
	}
	if _, err := NewChain(&stubPolicy{name: "a", allow: true}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestChain_FirstDenialWins(t *testing.T) {
	t.Parallel()

	first := &stubPolicy{name: "first", allow: true}
	second := &stubPolicy{name: "second", allow: false}
	third := &stubPolicy{name: "third", allow: false}

	chain, err := NewChain(first, second, third)
	if err != nil {
		t.Fatalf("failed to create chain: %v", err)
	}

	decision := chain.CanTrade(marketdata.Snapshot{PortfolioValue: 100000})
	if decision.Allowed {
		t.Fatal("expected denial")
	}
	if decision.Policy != "second" {
		t.Errorf("expected first denial from %q, got %q", "second", decision.Policy)
	}

	// Every policy still observes the snapshot, even after a denial
	for _, p := range []*stubPolicy{first, second, third} {
		if p.evaluated != 1 {
			t.Errorf("policy %s evaluated %d times, want 1", p.name, p.evaluated)
		}
	}
}

func TestChain_AllAllow(t *testing.T) {
	t.Parallel()

	chain, err := NewChain(
		&stubPolicy{name: "a", allow: true},
		&stubPolicy{name: "b", allow: true},
	)
	if err != nil {
		t.Fatalf("failed to create chain: %v", err)
	}

	decision := chain.CanTrade(marketdata.Snapshot{})
	if !decision.Allowed {
		t.Errorf("expected allowed, denied with %q", decision.Reason)
	}
	if chain.Active() {
		t.Error("expected chain inactive")
	}
}

func TestChain_FanOut(t *testing.T) {
	t.Parallel()

	a := &stubPolicy{name: "a", allow: true}
	b := &stubPolicy{name: "b", allow: true}

	chain, err := NewChain(a, b)
	if err != nil {
		t.Fatalf("failed to create chain: %v", err)
	}

	chain.RecordOutcome(TradeOutcome{PnL: -1})
	chain.RecordError(types.ErrCategoryAPI)
	chain.Trigger("manual", time.Minute)
	chain.Reset(ResetOptions{})

	for _, p := range []*stubPolicy{a, b} {
		if p.outcomes != 1 || p.errors != 1 || p.triggered != 1 || p.resets != 1 {
			t.Errorf("policy %s not fanned out: outcomes=%d errors=%d triggers=%d resets=%d",
				p.name, p.outcomes, p.errors, p.triggered, p.resets)
		}
	}

	if len(chain.Status()) != 2 {
		t.Errorf("expected 2 statuses, got %d", len(chain.Status()))
	}
}

func TestChain_MarketAndLossGuard(t *testing.T) {
	t.Parallel()

	market, err := NewMarketBreaker(validMarketConfig(t))
	if err != nil {
		t.Fatalf("failed to create market breaker: %v", err)
	}
	guard, err := NewLossGuard(validLossGuardConfig(t))
	if err != nil {
		t.Fatalf("failed to create loss guard: %v", err)
	}

	chain, err := NewChain(market, guard)
	if err != nil {
		t.Fatalf("failed to create chain: %v", err)
	}

	if d := chain.CanTrade(marketdata.Snapshot{PortfolioValue: 100000}); !d.Allowed {
		t.Fatalf("expected allowed, denied with %q", d.Reason)
	}

	// Daily loss trips only the guard; the market breaker alone cannot resume
	chain.RecordOutcome(TradeOutcome{Symbol: "BTC-USD", PnL: -6000, At: time.Now()})

	decision := chain.CanTrade(marketdata.Snapshot{PortfolioValue: 94000})
	if decision.Allowed {
		t.Fatal("expected denial from loss guard")
	}
	if decision.Policy != "lossguard" {
		t.Errorf("expected denial from lossguard, got %q", decision.Policy)
	}
	if !chain.Active() {
		t.Error("expected chain active")
	}
}
