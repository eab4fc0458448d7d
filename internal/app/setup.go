package app

import (
	"context"
	"fmt"
	"time"

	"github.com/crossvenue/smartroute/internal/circuitbreaker"
	"github.com/crossvenue/smartroute/internal/latency"
	"github.com/crossvenue/smartroute/internal/marketdata"
	"github.com/crossvenue/smartroute/internal/orchestrator"
	"github.com/crossvenue/smartroute/internal/risk"
	"github.com/crossvenue/smartroute/internal/router"
	"github.com/crossvenue/smartroute/internal/storage"
	"github.com/crossvenue/smartroute/pkg/cache"
	"github.com/crossvenue/smartroute/pkg/config"
	"github.com/crossvenue/smartroute/pkg/events"
	"github.com/crossvenue/smartroute/pkg/healthprobe"
	"github.com/crossvenue/smartroute/pkg/httpserver"
	"github.com/crossvenue/smartroute/pkg/venue"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	if len(opts.Symbols) == 0 {
		opts.Symbols = []string{"BTC-USD", "ETH-USD"}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()
	eventHub := events.NewHub(256, logger)
	feed := marketdata.NewStaticFeed(cfg.RiskCapital)

	quoteCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	optimizer, err := setupOptimizer(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup latency optimizer: %w", err)
	}

	adapters, err := setupPaperVenues(opts.Symbols)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup paper venues: %w", err)
	}

	orderRouter, err := setupRouter(cfg, logger, adapters, optimizer, quoteCache)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	breaker, err := setupBreaker(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	riskEngine, err := setupRiskEngine(cfg, logger, feed)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup risk engine: %w", err)
	}

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	orch, err := orchestrator.New(&orchestrator.Config{
		Router:          orderRouter,
		RiskEngine:      riskEngine,
		Breaker:         breaker,
		Optimizer:       optimizer,
		Feed:            feed,
		Storage:         store,
		EventHub:        eventHub,
		Logger:          logger,
		MaxRetries:      cfg.ExecMaxRetries,
		AttemptTimeout:  cfg.ExecAttemptTimeout,
		BackoffInitial:  cfg.ExecBackoffInitial,
		BackoffMax:      cfg.ExecBackoffMax,
		BackoffMult:     cfg.ExecBackoffMult,
		FailoverEnabled: cfg.ExecFailoverEnabled,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup orchestrator: %w", err)
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Orchestrator:  orch,
		Router:        orderRouter,
		Breaker:       breaker,
		Optimizer:     optimizer,
		RiskEngine:    riskEngine,
		EventHub:      eventHub,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		orchestrator:  orch,
		router:        orderRouter,
		breaker:       breaker,
		optimizer:     optimizer,
		riskEngine:    riskEngine,
		feed:          feed,
		storage:       store,
		eventHub:      eventHub,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max items
		MaxCost:     1000,  // Maximum 1000 items in cache
		BufferItems: 64,    // Buffer size for Get operations
		Logger:      logger,
	})
}

func setupOptimizer(cfg *config.Config, logger *zap.Logger) (*latency.Optimizer, error) {
	return latency.New(&latency.Config{
		WindowSize:    cfg.LatencyWindowSize,
		SummaryWindow: cfg.LatencySummaryWindow,
		Target:        cfg.LatencyTarget,
		P95Ceiling:    cfg.LatencyP95Ceiling,
		Logger:        logger,
	})
}

// setupPaperVenues builds the in-process simulated venues used for paper
// trading. Real venue adapters are external collaborators implementing
// venue.Adapter and would be registered here instead.
func setupPaperVenues(symbols []string) ([]venue.Adapter, error) {
	base := map[string]float64{}
	for _, s := range symbols {
		switch s {
		case "BTC-USD":
			base[s] = 50000
		case "ETH-USD":
			base[s] = 3000
		default:
			base[s] = 100
		}
	}

	specs := []venue.PaperConfig{
		{Name: "alpha", Mids: base, SpreadBPS: 8, MakerFee: 0.0008, TakerFee: 0.0015, Latency: 20 * time.Millisecond, Depth: 500},
		{Name: "beta", Mids: base, SpreadBPS: 12, MakerFee: 0.0005, TakerFee: 0.0010, Latency: 45 * time.Millisecond, Depth: 800},
		{Name: "gamma", Mids: base, SpreadBPS: 6, MakerFee: 0.0010, TakerFee: 0.0020, Latency: 10 * time.Millisecond, Depth: 300},
	}

	adapters := make([]venue.Adapter, 0, len(specs))
	for _, spec := range specs {
		adapter, err := venue.NewPaperAdapter(spec)
		if err != nil {
			return nil, fmt.Errorf("create paper venue %s: %w", spec.Name, err)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

func setupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	adapters []venue.Adapter,
	optimizer *latency.Optimizer,
	quoteCache cache.Cache,
) (*router.Router, error) {
	return router.New(&router.Config{
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
}

func setupBreaker(cfg *config.Config, logger *zap.Logger) (*circuitbreaker.Chain, error) {
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
		return nil, fmt.Errorf("create market breaker: %w", err)
	}

	policies := []circuitbreaker.Policy{market}

	if cfg.LossGuardEnabled {
		guard, err := circuitbreaker.NewLossGuard(&circuitbreaker.LossGuardConfig{
			MaxDailyLoss:   cfg.LossGuardMaxDailyLoss,
			MaxSlippageBPS: cfg.LossGuardMaxSlippage,
			MaxBreaches:    cfg.LossGuardMaxBreaches,
			HistorySize:    cfg.BreakerHistorySize,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create loss guard: %w", err)
		}
		policies = append(policies, guard)
	}

	return circuitbreaker.NewChain(policies...)
}

func setupRiskEngine(cfg *config.Config, logger *zap.Logger, feed marketdata.Feed) (*risk.Engine, error) {
	return risk.New(&risk.Config{
		Limits: risk.Limits{
			Capital:            cfg.RiskCapital,
			MaxTradeSizePct:    cfg.RiskMaxTradeSizePct,
			MaxOpenPositions:   cfg.RiskMaxOpenPositions,
			MinPositionSize:    cfg.RiskMinPositionSize,
			MaxPositionSizePct: cfg.RiskMaxPositionSizePct,
			MinConfidence:      cfg.RiskMinConfidence,
		},
		Feed:   feed,
		Logger: logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}
