package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/crossvenue/smartroute/internal/circuitbreaker"
	"github.com/crossvenue/smartroute/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the circuit-breaker configuration and initial state",
	Long: `Builds the circuit breaker from the current environment configuration and
prints each policy's state. Useful for verifying threshold configuration
before starting the engine.`,
	RunE: runStatus,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	market, err := circuitbreaker.NewMarketBreaker(&circuitbreaker.MarketConfig{
		MaxDrawdownPct:       cfg.BreakerMaxDrawdownPct,
		VolatilityThreshold:  cfg.BreakerVolatilityThreshold,
		MaxConsecutiveLosses: cfg.BreakerMaxConsecutiveLosses,
		MaxAPIErrors:         cfg.BreakerMaxAPIErrors,
		MaxSpreadMultiple:    cfg.BreakerMaxSpreadMultiple,
		Cooldown:             cfg.BreakerCooldown,
		HistorySize:          cfg.BreakerHistorySize,
		Logger:               logger,
	})
	if err != nil {
		return fmt.Errorf("create market breaker: %w", err)
	}

	policies := []circuitbreaker.Policy{market}
	if cfg.LossGuardEnabled {
		guard, guardErr := circuitbreaker.NewLossGuard(&circuitbreaker.LossGuardConfig{
			MaxDailyLoss:   cfg.LossGuardMaxDailyLoss,
			MaxSlippageBPS: cfg.LossGuardMaxSlippage,
			MaxBreaches:    cfg.LossGuardMaxBreaches,
			HistorySize:    cfg.BreakerHistorySize,
			Logger:         logger,
		})
		if guardErr != nil {
			return fmt.Errorf("create loss guard: %w", guardErr)
		}
		policies = append(policies, guard)
	}

	chain, err := circuitbreaker.NewChain(policies...)
	if err != nil {
		return fmt.Errorf("create breaker chain: %w", err)
	}

	fmt.Printf("Circuit breaker policies (cooldown %s):\n\n", cfg.BreakerCooldown)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POLICY\tACTIVE\tREASON\tTRIGGERS")
	for _, status := range chain.Status() {
		reason := status.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%d\n",
			status.Policy, status.Active, reason, status.TriggerCount)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
