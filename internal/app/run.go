package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crossvenue/smartroute/pkg/events"
	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.Float64("risk-capital", a.cfg.RiskCapital),
		zap.String("log-level", a.cfg.LogLevel))

	a.startComponents()

	// Mark as ready
	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Start the circuit breaker health loop
	a.wg.Add(1)
	go a.runBreakerMonitor()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// runBreakerMonitor periodically re-evaluates the circuit breaker against the
// live market snapshot, keeps the health probe's halted flag current, and
// publishes trip/reset transitions. Re-evaluating also lets expired cooldowns
// auto-reset without waiting for the next order.
func (a *App) runBreakerMonitor() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.BreakerCheckInterval)
	defer ticker.Stop()

	halted := false

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			decision := a.breaker.CanTrade(a.feed.Snapshot())
			a.healthChecker.SetHalted(!decision.Allowed)

			switch {
			case !decision.Allowed && !halted:
				halted = true
				a.logger.Warn("trading-halted",
					zap.String("reason", decision.Reason),
					zap.Duration("remaining-cooldown", decision.RemainingCooldown))
				a.eventHub.Publish(events.Event{
					Type:    events.TypeBreakerTripped,
					Payload: a.breaker.Status(),
				})
				a.storeTriggers()

			case decision.Allowed && halted:
				halted = false
				a.logger.Info("trading-resumed")
				a.eventHub.Publish(events.Event{
					Type:    events.TypeBreakerReset,
					Payload: a.breaker.Status(),
				})
			}
		}
	}
}

// storeTriggers persists the latest trigger event of every active policy.
func (a *App) storeTriggers() {
	for _, status := range a.breaker.Status() {
		if !status.Active || len(status.History) == 0 {
			continue
		}
		latest := status.History[len(status.History)-1]
		if err := a.storage.StoreTrigger(a.ctx, &latest); err != nil {
			a.logger.Error("trigger-store-failed",
				zap.String("policy", status.Policy),
				zap.Error(err))
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
