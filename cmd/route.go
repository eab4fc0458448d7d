package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/crossvenue/smartroute/internal/latency"
	"github.com/crossvenue/smartroute/internal/router"
	"github.com/crossvenue/smartroute/pkg/cache"
	"github.com/crossvenue/smartroute/pkg/config"
	"github.com/crossvenue/smartroute/pkg/types"
	"github.com/crossvenue/smartroute/pkg/venue"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Simulate routing one order across the paper venues",
	Long: `Runs a single routing pass against the simulated paper venues and prints
the resulting venue allocation without placing anything. Useful for inspecting
how each strategy scores the venues.`,
	RunE: runRoute,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.Flags().StringP("symbol", "s", "BTC-USD", "Symbol to route")
	routeCmd.Flags().StringP("side", "d", "buy", "Order side: buy or sell")
	routeCmd.Flags().Float64P("amount", "a", 1.0, "Order amount")
	routeCmd.Flags().StringP("strategy", "t", "smart_routing", "Routing strategy: best_price, lowest_fee, fastest_execution, smart_routing")
}

func runRoute(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

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

	symbol, _ := cmd.Flags().GetString("symbol")
	sideStr, _ := cmd.Flags().GetString("side")
	amount, _ := cmd.Flags().GetFloat64("amount")
	strategyStr, _ := cmd.Flags().GetString("strategy")

	side := types.Side(sideStr)
	if !side.Valid() {
		return fmt.Errorf("invalid side: %s. Valid options: buy, sell", sideStr)
	}
	strategy := types.Strategy(strategyStr)

	adapters, err := paperVenuesFor(symbol)
	if err != nil {
		return fmt.Errorf("create paper venues: %w", err)
	}

	optimizer, err := latency.New(&latency.Config{
		WindowSize:    cfg.LatencyWindowSize,
		SummaryWindow: cfg.LatencySummaryWindow,
		Target:        cfg.LatencyTarget,
		P95Ceiling:    cfg.LatencyP95Ceiling,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create latency optimizer: %w", err)
	}

	quoteCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	orderRouter, err := router.New(&router.Config{
		Adapters:       adapters,
		Optimizer:      optimizer,
		Cache:          quoteCache,
		Logger:         logger,
		SplitThreshold: cfg.RouteSplitThreshold,
		SplitMaxVenues: cfg.RouteSplitMaxVenues,
		BookDepth:      cfg.RouteBookDepth,
		SnapshotTTL:    cfg.RouteSnapshotTTL,
		HistorySize:    cfg.RouteHistorySize,
	})
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}

	fmt.Printf("Routing %s %.4f %s (%s)...\n\n", side, amount, symbol, strategy)

	decision, err := orderRouter.Route(ctx, router.RouteRequest{
		Symbol:   symbol,
		Side:     side,
		Amount:   amount,
		Kind:     types.KindMarket,
		Strategy: strategy,
	})
	if err != nil {
		return fmt.Errorf("route: %w", err)
	}

	shape := "single"
	if decision.Split {
		shape = "split"
	}
	fmt.Printf("Decision %s (%s):\n\n", decision.ID, shape)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VENUE\tAMOUNT\tEXPECTED PRICE\tSCORE")
	for _, alloc := range decision.Allocations {
		fmt.Fprintf(w, "%s\t%.4f\t%.2f\t%.1f\n",
			alloc.Venue, alloc.Amount, alloc.ExpectedPrice, alloc.Score.Total)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

func paperVenuesFor(symbol string) ([]venue.Adapter, error) {
	mids := map[string]float64{symbol: 50000}
	if symbol == "ETH-USD" {
		mids[symbol] = 3000
	}

	specs := []venue.PaperConfig{
		{Name: "alpha", Mids: mids, SpreadBPS: 8, MakerFee: 0.0008, TakerFee: 0.0015, Depth: 500},
		{Name: "beta", Mids: mids, SpreadBPS: 12, MakerFee: 0.0005, TakerFee: 0.0010, Depth: 800},
		{Name: "gamma", Mids: mids, SpreadBPS: 6, MakerFee: 0.0010, TakerFee: 0.0020, Depth: 300},
	}

	adapters := make([]venue.Adapter, 0, len(specs))
	for _, spec := range specs {
		adapter, err := venue.NewPaperAdapter(spec)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}
