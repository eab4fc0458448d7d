// Package circuitbreaker implements the trading halt safety layer. Two
// policies share one interface: MarketBreaker (drawdown, volatility,
// consecutive losses, error rate, spread) is the canonical gate, and
// LossGuard (daily loss, slippage) is a composable secondary policy. A Chain
// evaluates them together: any policy can halt trading, and no policy alone
// can resume while another is still tripped.
package circuitbreaker

import (
	"time"

	"github.com/crossvenue/smartroute/internal/marketdata"
	"github.com/crossvenue/smartroute/pkg/types"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed           bool          `json:"allowed"`
	Policy            string        `json:"policy,omitempty"`
	Reason            string        `json:"reason,omitempty"`
	RemainingCooldown time.Duration `json:"remaining_cooldown,omitempty"`
}

// TradeOutcome is the realized result of one completed trade.
type TradeOutcome struct {
	Symbol      string
	PnL         float64
	SlippageBPS float64
	At          time.Time
}

// TriggerEvent is one append-only history entry.
type TriggerEvent struct {
	Policy        string    `json:"policy"`
	Reason        string    `json:"reason"`
	Details       string    `json:"details,omitempty"`
	TriggeredAt   time.Time `json:"triggered_at"`
	CooldownUntil time.Time `json:"cooldown_until"`
}

// ResetOptions controls what a manual reset clears beyond the active state.
type ResetOptions struct {
	ClearHistory bool
	ClearPeak    bool
}

// Status is a point-in-time view of one policy for the control plane.
type Status struct {
	Policy            string         `json:"policy"`
	Active            bool           `json:"active"`
	Reason            string         `json:"reason,omitempty"`
	TriggeredAt       time.Time      `json:"triggered_at,omitempty"`
	CooldownUntil     time.Time      `json:"cooldown_until,omitempty"`
	PeakValue         float64        `json:"peak_value,omitempty"`
	ConsecutiveLosses int            `json:"consecutive_losses,omitempty"`
	ErrorCounts       map[string]int `json:"error_counts,omitempty"`
	TriggerCount      int            `json:"trigger_count"`
	History           []TriggerEvent `json:"history,omitempty"`
}

// Policy is the common circuit-breaker contract.
type Policy interface {
	// Name identifies the policy in status output and metrics.
	Name() string

	// CanTrade evaluates whether trading is currently allowed given a fresh
	// market/portfolio snapshot. Implementations update internal state (peak
	// value, cooldown expiry) as a side effect.
	CanTrade(snap marketdata.Snapshot) Decision

	// RecordOutcome feeds a completed trade result into the policy.
	RecordOutcome(outcome TradeOutcome)

	// RecordError feeds a categorized error into the policy.
	RecordError(category types.VenueErrorCategory)

	// Trigger manually activates the policy.
	Trigger(reason string, cooldown time.Duration)

	// Reset manually deactivates the policy.
	Reset(opts ResetOptions)

	// Status returns the current policy state.
	Status() Status
}
