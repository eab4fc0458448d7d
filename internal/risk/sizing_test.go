package risk

import (
	"strings"
	"testing"
)

func TestPositionSize_FixedFraction(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	result, err := engine.PositionSize(MethodFixedFraction, SizingInput{
		Capital:  100000,
		Fraction: 0.05,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Amount != 5000 {
		t.Errorf("expected 5000, got %f", result.Amount)
	}
	if result.Metadata["fraction"] != 0.05 {
		t.Errorf("expected fraction metadata 0.05, got %f", result.Metadata["fraction"])
	}

	// Default fraction when unset
	result, err = engine.PositionSize(MethodFixedFraction, SizingInput{Capital: 100000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Amount != 2000 {
		t.Errorf("expected default-fraction size 2000, got %f", result.Amount)
	}
}

func TestPositionSize_PercentCapital(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	result, err := engine.PositionSize(MethodPercentCapital, SizingInput{
		Capital:         100000,
		Exposure:        40000,
		TargetPositions: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Amount != 15000 {
		t.Errorf("expected 15000, got %f", result.Amount)
	}
	if result.Metadata["available"] != 60000 {
		t.Errorf("expected available metadata 60000, got %f", result.Metadata["available"])
	}
}

func TestPositionSize_RiskBased(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	// Risk 1% of 100000 = 1000 over a 1000 stop distance -> 1 unit at 50000.
	// The raw 50000 notional is clamped to the 25% position cap.
	result, err := engine.PositionSize(MethodRiskBased, SizingInput{
		Capital:      100000,
		RiskPerTrade: 0.01,
		EntryPrice:   50000,
		StopPrice:    49000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Amount != 25000 {
		t.Errorf("expected clamped 25000, got %f", result.Amount)
	}
	if result.Metadata["raw_amount"] != 50000 {
		t.Errorf("expected raw_amount metadata 50000, got %f", result.Metadata["raw_amount"])
	}

	// Missing stop price yields zero with a reason
	result, err = engine.PositionSize(MethodRiskBased, SizingInput{
		Capital:    100000,
		EntryPrice: 50000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Amount != 0 {
		t.Errorf("expected zero size without stop, got %f", result.Amount)
	}
	if !strings.Contains(result.Reason, "stop") {
		t.Errorf("unexpected reason: %s", result.Reason)
	}
}

func TestPositionSize_HalfKelly(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	// edge = 2.0*0.6 - 0.4 = 0.8; kelly = 0.4; half = 0.2 -> 20000
	result, err := engine.PositionSize(MethodHalfKelly, SizingInput{
		Capital:         100000,
		WinRate:         0.6,
		RewardRiskRatio: 2.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Amount != 20000 {
		t.Errorf("expected 20000, got %f", result.Amount)
	}
	if result.Metadata["half_kelly_fraction"] != 0.2 {
		t.Errorf("expected half kelly fraction 0.2, got %f", result.Metadata["half_kelly_fraction"])
	}
}

func TestPositionSize_HalfKellyNegativeExpectancy(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	// edge = 2.0*0.3 - 0.7 = -0.1: never size a negative-expectancy setup
	result, err := engine.PositionSize(MethodHalfKelly, SizingInput{
		Capital:         100000,
		WinRate:         0.3,
		RewardRiskRatio: 2.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Amount != 0 {
		t.Errorf("expected zero size on negative expectancy, got %f", result.Amount)
	}
	if !strings.Contains(result.Reason, "negative expectancy") {
		t.Errorf("unexpected reason: %s", result.Reason)
	}
}

func TestPositionSize_VolAdjusted(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	// Realized vol at 2x target halves the base size
	result, err := engine.PositionSize(MethodVolAdjusted, SizingInput{
		Capital:    100000,
		Fraction:   0.05,
		Volatility: 0.04,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Amount != 2500 {
		t.Errorf("expected 2500, got %f", result.Amount)
	}

	// Vol below target never scales above the base
	result, err = engine.PositionSize(MethodVolAdjusted, SizingInput{
		Capital:    100000,
		Fraction:   0.05,
		Volatility: 0.01,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Amount != 5000 {
		t.Errorf("expected 5000, got %f", result.Amount)
	}
}

func TestPositionSize_MinimumClamp(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	result, err := engine.PositionSize(MethodFixedFraction, SizingInput{
		Capital:  100,
		Fraction: 0.0001,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Amount != 10 {
		t.Errorf("expected min position size 10, got %f", result.Amount)
	}
}

func TestPositionSize_Errors(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t)

	if _, err := engine.PositionSize(MethodFixedFraction, SizingInput{}); err == nil {
		t.Error("expected error for zero capital")
	}
	if _, err := engine.PositionSize("martingale", SizingInput{Capital: 1000}); err == nil {
		t.Error("expected error for unknown method")
	}
}
