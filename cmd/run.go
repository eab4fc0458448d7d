package cmd

import (
	"fmt"
	"strings"

	"github.com/crossvenue/smartroute/internal/app"
	"github.com/crossvenue/smartroute/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the execution engine",
	Long: `Starts the execution engine with simulated paper venues and the HTTP
control plane:

  /metrics            Prometheus metrics
  /health, /ready     liveness and readiness probes
  /api/...            breaker status, routing stats, latency, orders
  /ws/events          websocket event stream

Configuration is read from environment variables (see .env.example).`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("symbols", "s", "", "Comma-separated symbols the paper venues quote (default BTC-USD,ETH-USD)")
}

func runEngine(cmd *cobra.Command, _ []string) error {
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

	opts := &app.Options{}
	if symbols, _ := cmd.Flags().GetString("symbols"); symbols != "" {
		opts.Symbols = strings.Split(symbols, ",")
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
