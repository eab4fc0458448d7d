package storage

import (
	"context"

	"github.com/crossvenue/smartroute/internal/circuitbreaker"
	"github.com/crossvenue/smartroute/pkg/types"
)

// Storage is the interface for persisting immutable trade records and
// circuit-breaker trigger events.
type Storage interface {
	// StoreTrade persists one completed trade.
	StoreTrade(ctx context.Context, record *types.TradeRecord) error

	// StoreTrigger persists one circuit-breaker trigger event.
	StoreTrigger(ctx context.Context, event *circuitbreaker.TriggerEvent) error

	// Close closes the storage connection.
	Close() error
}
