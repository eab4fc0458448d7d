package circuitbreaker

import (
	"fmt"
	"time"

	"github.com/crossvenue/smartroute/internal/marketdata"
	"github.com/crossvenue/smartroute/pkg/types"
)

// Chain composes breaker policies into one gate. Evaluation is AND-fashion:
// the first policy that denies wins, so any single policy can halt trading
// and no policy alone can resume it while another remains tripped.
type Chain struct {
	policies []Policy
}

// NewChain creates a policy chain. At least one policy is required; the first
// is conventionally the canonical MarketBreaker.
func NewChain(policies ...Policy) (*Chain, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("at least one policy is required")
	}
	for i, p := range policies {
		if p == nil {
			return nil, fmt.Errorf("policy %d is nil", i)
		}
	}

	return &Chain{policies: policies}, nil
}

// CanTrade evaluates every policy in order and returns the first denial.
// Every policy still observes the snapshot so that cooldown expiry and peak
// tracking advance even when an earlier policy denies.
func (c *Chain) CanTrade(snap marketdata.Snapshot) Decision {
	denied := Decision{Allowed: true}
	for _, p := range c.policies {
		d := p.CanTrade(snap)
		if !d.Allowed && denied.Allowed {
			denied = d
		}
	}
	return denied
}

// RecordOutcome fans a trade result out to every policy.
func (c *Chain) RecordOutcome(outcome TradeOutcome) {
	for _, p := range c.policies {
		p.RecordOutcome(outcome)
	}
}

// RecordError fans a categorized error out to every policy.
func (c *Chain) RecordError(category types.VenueErrorCategory) {
	for _, p := range c.policies {
		p.RecordError(category)
	}
}

// Trigger manually activates every policy.
func (c *Chain) Trigger(reason string, cooldown time.Duration) {
	for _, p := range c.policies {
		p.Trigger(reason, cooldown)
	}
}

// Reset manually resets every policy.
func (c *Chain) Reset(opts ResetOptions) {
	for _, p := range c.policies {
		p.Reset(opts)
	}
}

// Status returns the state of every policy.
func (c *Chain) Status() []Status {
	out := make([]Status, 0, len(c.policies))
	for _, p := range c.policies {
		out = append(out, p.Status())
	}
	return out
}

// Active reports whether any policy is currently tripped.
func (c *Chain) Active() bool {
	for _, p := range c.policies {
		if p.Status().Active {
			return true
		}
	}
	return false
}
