// Package app wires the execution engine together and owns its lifecycle.
package app

import (
	"context"
	"sync"

	"github.com/crossvenue/smartroute/internal/circuitbreaker"
	"github.com/crossvenue/smartroute/internal/latency"
	"github.com/crossvenue/smartroute/internal/marketdata"
	"github.com/crossvenue/smartroute/internal/orchestrator"
	"github.com/crossvenue/smartroute/internal/risk"
	"github.com/crossvenue/smartroute/internal/router"
	"github.com/crossvenue/smartroute/internal/storage"
	"github.com/crossvenue/smartroute/pkg/config"
	"github.com/crossvenue/smartroute/pkg/events"
	"github.com/crossvenue/smartroute/pkg/healthprobe"
	"github.com/crossvenue/smartroute/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	orchestrator  *orchestrator.Orchestrator
	router        *router.Router
	breaker       *circuitbreaker.Chain
	optimizer     *latency.Optimizer
	riskEngine    *risk.Engine
	feed          marketdata.Feed
	storage       storage.Storage
	eventHub      *events.Hub
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	Symbols []string // Symbols the paper venues quote; defaults to BTC-USD, ETH-USD
}

// Orchestrator exposes the execution entry point for embedding callers.
func (a *App) Orchestrator() *orchestrator.Orchestrator {
	return a.orchestrator
}
