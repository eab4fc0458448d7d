package risk

import (
	"fmt"
	"math"
)

// SizingMethod selects a position sizing algorithm.
type SizingMethod string

const (
	MethodFixedFraction  SizingMethod = "fixed_fraction"
	MethodPercentCapital SizingMethod = "percent_capital"
	MethodRiskBased      SizingMethod = "risk_based"
	MethodHalfKelly      SizingMethod = "half_kelly"
	MethodVolAdjusted    SizingMethod = "volatility_adjusted"
)

// SizingInput carries the inputs shared across sizing methods. Unused fields
// are ignored by methods that do not need them.
type SizingInput struct {
	Capital         float64
	Exposure        float64 // Currently deployed notional
	Fraction        float64 // Fixed fraction of capital (fixed_fraction, volatility_adjusted)
	TargetPositions int     // Desired concurrent position count (percent_capital)
	RiskPerTrade    float64 // Fraction of capital risked per trade (risk_based)
	EntryPrice      float64
	StopPrice       float64
	WinRate         float64 // Historical win rate, 0-1 (half_kelly)
	RewardRiskRatio float64 // Average win / average loss (half_kelly)
	Volatility      float64 // Realized volatility (volatility_adjusted)
}

// SizingResult is the chosen notional plus an audit trail of the method's
// inputs and intermediate values.
type SizingResult struct {
	Method   SizingMethod       `json:"method"`
	Amount   float64            `json:"amount"`
	Reason   string             `json:"reason,omitempty"`
	Metadata map[string]float64 `json:"metadata"`
}

// targetVolatility is the reference point for inverse volatility scaling.
const targetVolatility = 0.02

// PositionSize computes a notional for the given method. All methods clamp to
// the [MinPositionSize, MaxPositionSizePct * capital] band; a method that
// cannot size safely returns zero with a documented reason instead of
// guessing.
func (e *Engine) PositionSize(method SizingMethod, input SizingInput) (SizingResult, error) {
	if input.Capital <= 0 {
		return SizingResult{}, fmt.Errorf("capital must be positive")
	}

	var result SizingResult
	switch method {
	case MethodFixedFraction:
		result = sizeFixedFraction(input)
	case MethodPercentCapital:
		result = sizePercentCapital(input)
	case MethodRiskBased:
		result = sizeRiskBased(input)
	case MethodHalfKelly:
		result = sizeHalfKelly(input)
	case MethodVolAdjusted:
		result = sizeVolAdjusted(input)
	default:
		return SizingResult{}, fmt.Errorf("unknown sizing method: %s", method)
	}

	result.Method = method
	if result.Amount > 0 {
		result.Amount = e.clampSize(result.Amount, input.Capital, result.Metadata)
	}

	SizingsTotal.WithLabelValues(string(method)).Inc()

	return result, nil
}

// clampSize applies the configured position size band and records the raw
// value in the metadata when clamping changed it.
func (e *Engine) clampSize(amount, capital float64, meta map[string]float64) float64 {
	maxSize := e.limits.MaxPositionSizePct * capital
	clamped := amount

	if maxSize > 0 && clamped > maxSize {
		clamped = maxSize
	}
	if clamped < e.limits.MinPositionSize {
		clamped = e.limits.MinPositionSize
	}

	if clamped != amount && meta != nil {
		meta["raw_amount"] = amount
		meta["clamped_amount"] = clamped
	}
	return clamped
}

func sizeFixedFraction(in SizingInput) SizingResult {
	fraction := in.Fraction
	if fraction <= 0 {
		fraction = 0.02
	}
	amount := in.Capital * fraction

	return SizingResult{
		Amount: amount,
		Metadata: map[string]float64{
			"capital":  in.Capital,
			"fraction": fraction,
		},
	}
}

func sizePercentCapital(in SizingInput) SizingResult {
	positions := in.TargetPositions
	if positions <= 0 {
		positions = 5
	}
	available := in.Capital - in.Exposure
	if available < 0 {
		available = 0
	}
	amount := available / float64(positions)

	return SizingResult{
		Amount: amount,
		Metadata: map[string]float64{
			"capital":          in.Capital,
			"exposure":         in.Exposure,
			"available":        available,
			"target_positions": float64(positions),
		},
	}
}

func sizeRiskBased(in SizingInput) SizingResult {
	if in.EntryPrice <= 0 || in.StopPrice <= 0 {
		return SizingResult{Reason: "entry and stop prices required for risk-based sizing"}
	}

	stopDistance := math.Abs(in.EntryPrice - in.StopPrice)
	if stopDistance == 0 {
		return SizingResult{Reason: "stop-loss distance is zero"}
	}

	riskPerTrade := in.RiskPerTrade
	if riskPerTrade <= 0 {
		riskPerTrade = 0.01
	}
	riskAmount := in.Capital * riskPerTrade
	quantity := riskAmount / stopDistance
	amount := quantity * in.EntryPrice

	return SizingResult{
		Amount: amount,
		Metadata: map[string]float64{
			"capital":       in.Capital,
			"risk_amount":   riskAmount,
			"stop_distance": stopDistance,
			"quantity":      quantity,
			"entry_price":   in.EntryPrice,
		},
	}
}

// sizeHalfKelly applies half the Kelly fraction. Negative expectancy
// (rewardRiskRatio * winRate <= 1 - winRate) yields zero size with an
// explicit reason rather than sizing naively.
func sizeHalfKelly(in SizingInput) SizingResult {
	if in.RewardRiskRatio <= 0 || in.WinRate <= 0 || in.WinRate >= 1 {
		return SizingResult{Reason: "half-kelly requires win rate in (0,1) and positive reward/risk ratio"}
	}

	edge := in.RewardRiskRatio*in.WinRate - (1 - in.WinRate)
	meta := map[string]float64{
		"capital":           in.Capital,
		"win_rate":          in.WinRate,
		"reward_risk_ratio": in.RewardRiskRatio,
		"edge":              edge,
	}

	if edge <= 0 {
		return SizingResult{
			Reason:   "negative expectancy: reward_risk_ratio * win_rate <= (1 - win_rate)",
			Metadata: meta,
		}
	}

	kelly := edge / in.RewardRiskRatio
	halfKelly := kelly / 2
	meta["kelly_fraction"] = kelly
	meta["half_kelly_fraction"] = halfKelly

	return SizingResult{
		Amount:   in.Capital * halfKelly,
		Metadata: meta,
	}
}

func sizeVolAdjusted(in SizingInput) SizingResult {
	fraction := in.Fraction
	if fraction <= 0 {
		fraction = 0.02
	}
	base := in.Capital * fraction

	meta := map[string]float64{
		"capital":           in.Capital,
		"fraction":          fraction,
		"base_amount":       base,
		"volatility":        in.Volatility,
		"target_volatility": targetVolatility,
	}

	if in.Volatility <= 0 {
		return SizingResult{Amount: base, Metadata: meta}
	}

	// Inverse scaling: size shrinks proportionally once realized volatility
	// exceeds the target, and is never scaled above the base.
	scale := targetVolatility / in.Volatility
	if scale > 1 {
		scale = 1
	}
	meta["scale"] = scale

	return SizingResult{Amount: base * scale, Metadata: meta}
}
