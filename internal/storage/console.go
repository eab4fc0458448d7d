package storage

import (
	"context"
	"fmt"

	"github.com/crossvenue/smartroute/internal/circuitbreaker"
	"github.com/crossvenue/smartroute/pkg/types"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing to console. Used in
// paper-trading and local runs where no database is available.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreTrade pretty-prints a completed trade to console.
func (c *ConsoleStorage) StoreTrade(ctx context.Context, record *types.TradeRecord) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📋 TRADE EXECUTED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Order:     %s\n", record.OrderID)
	fmt.Printf("Symbol:    %s (%s)\n", record.Symbol, record.Side)
	fmt.Printf("Venue:     %s\n", record.Venue)
	fmt.Printf("Strategy:  %s\n", record.Strategy)
	fmt.Printf("Time:      %s\n", record.ExecutedAt.Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Quantity:     %.8f\n", record.Quantity)
	fmt.Printf("  Entry Price:  %.4f\n", record.EntryPrice)
	if record.ExitPrice > 0 {
		fmt.Printf("  Exit Price:   %.4f\n", record.ExitPrice)
	}
	fmt.Printf("  PnL:          %.2f\n", record.PnL)
	fmt.Printf("  Risk Score:   %.1f / 10\n", record.RiskScore)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	TradesStoredTotal.Inc()

	return nil
}

// StoreTrigger pretty-prints a circuit-breaker trigger to console.
func (c *ConsoleStorage) StoreTrigger(ctx context.Context, event *circuitbreaker.TriggerEvent) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("🛑 CIRCUIT BREAKER TRIPPED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Policy:    %s\n", event.Policy)
	fmt.Printf("Reason:    %s\n", event.Reason)
	if event.Details != "" {
		fmt.Printf("Details:   %s\n", event.Details)
	}
	fmt.Printf("Time:      %s\n", event.TriggeredAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Cooldown:  until %s\n", event.CooldownUntil.Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	TriggersStoredTotal.Inc()

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
