package types

import "time"

// Strategy selects how the router scores candidate venues.
type Strategy string

const (
	StrategyBestPrice        Strategy = "best_price"
	StrategyLowestFee        Strategy = "lowest_fee"
	StrategyFastestExecution Strategy = "fastest_execution"
	StrategySmartRouting     Strategy = "smart_routing"
)

// ScoreBreakdown records the per-factor components behind one venue score.
type ScoreBreakdown struct {
	PriceScore     float64 `json:"price_score"`
	FeeScore       float64 `json:"fee_score"`
	LiquidityScore float64 `json:"liquidity_score"`
	StaticWeight   float64 `json:"static_weight"`
	Total          float64 `json:"total"`
}

// VenueAllocation is one leg of a routing decision.
type VenueAllocation struct {
	Venue         string         `json:"venue"`
	Amount        float64        `json:"amount"`
	ExpectedPrice float64        `json:"expected_price"`
	Score         ScoreBreakdown `json:"score"`
}

// RoutingDecision is the router output for one order. The sum of allocation
// amounts equals the requested amount within floating tolerance.
type RoutingDecision struct {
	ID          string            `json:"id"`
	Symbol      string            `json:"symbol"`
	Side        Side              `json:"side"`
	Amount      float64           `json:"amount"`
	Strategy    Strategy          `json:"strategy"`
	Allocations []VenueAllocation `json:"allocations"`
	Split       bool              `json:"split"`
	DecidedAt   time.Time         `json:"decided_at"`
}

// TotalAllocated returns the sum of per-venue allocation amounts.
func (d *RoutingDecision) TotalAllocated() float64 {
	total := 0.0
	for _, a := range d.Allocations {
		total += a.Amount
	}
	return total
}

// BestVenue returns the venue of the largest allocation, or "" when empty.
func (d *RoutingDecision) BestVenue() string {
	best := ""
	max := -1.0
	for _, a := range d.Allocations {
		if a.Amount > max {
			max = a.Amount
			best = a.Venue
		}
	}
	return best
}
