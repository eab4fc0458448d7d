// Package venue defines the interface every trading venue adapter implements.
// Concrete adapters (exchange REST/WebSocket clients, DEX pool wrappers) live
// outside this module; the engine only depends on this contract.
package venue

import (
	"context"
	"time"

	"github.com/crossvenue/smartroute/pkg/types"
)

// Quote is a top-of-book snapshot for one symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Last      float64   `json:"last"`
	Timestamp time.Time `json:"timestamp"`
}

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// OrderBook is a depth snapshot. Bids are sorted descending, asks ascending.
type OrderBook struct {
	Symbol    string      `json:"symbol"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	Timestamp time.Time   `json:"timestamp"`
}

// DepthFor returns cumulative book depth on the side an order of the given
// direction would consume.
func (b *OrderBook) DepthFor(side types.Side) float64 {
	levels := b.Asks
	if side == types.SideSell {
		levels = b.Bids
	}
	depth := 0.0
	for _, l := range levels {
		depth += l.Amount
	}
	return depth
}

// FeeSchedule holds maker/taker fee rates for a symbol.
type FeeSchedule struct {
	Maker float64 `json:"maker"`
	Taker float64 `json:"taker"`
}

// ExecResult is the normalized outcome of a placement, cancel lookup, or
// status query against a venue.
type ExecResult struct {
	VenueOrderID string            `json:"venue_order_id"`
	Status       types.OrderStatus `json:"status"`
	FilledAmount float64           `json:"filled_amount"`
	AvgPrice     float64           `json:"avg_price"`
	Timestamp    time.Time         `json:"timestamp"`
}

// Adapter is the per-venue capability surface. Every call that reaches the
// network takes a context and is expected to honor its deadline.
type Adapter interface {
	// Name returns the venue identifier used in routing and metrics.
	Name() string

	// Quote returns the current top of book for a symbol.
	Quote(ctx context.Context, symbol string) (*Quote, error)

	// OrderBook returns a depth snapshot limited to the given number of levels.
	OrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error)

	// Fees returns the maker/taker schedule for a symbol.
	Fees(ctx context.Context, symbol string) (*FeeSchedule, error)

	// PlaceMarket submits a market order.
	PlaceMarket(ctx context.Context, symbol string, side types.Side, amount float64) (*ExecResult, error)

	// PlaceLimit submits a limit order at the given price.
	PlaceLimit(ctx context.Context, symbol string, side types.Side, amount, price float64) (*ExecResult, error)

	// PlaceStop submits a stop order. limitPrice of zero means stop-market.
	PlaceStop(ctx context.Context, symbol string, side types.Side, amount, stopPrice, limitPrice float64) (*ExecResult, error)

	// Cancel cancels a venue order. Returns true when the venue acknowledged.
	Cancel(ctx context.Context, venueOrderID, symbol string) (bool, error)

	// OrderStatus queries the current state of a venue order.
	OrderStatus(ctx context.Context, venueOrderID, symbol string) (*ExecResult, error)

	// SupportsSymbol reports whether the venue trades the symbol.
	SupportsSymbol(symbol string) bool

	// MinOrderSize returns the smallest accepted amount for the symbol.
	MinOrderSize(symbol string) float64
}
