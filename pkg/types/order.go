package types

import "time"

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is a known value.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderKind is the order type.
type OrderKind string

const (
	KindMarket     OrderKind = "market"
	KindLimit      OrderKind = "limit"
	KindStopLoss   OrderKind = "stop_loss"
	KindTakeProfit OrderKind = "take_profit"
)

// RequiresPrice reports whether this order kind must carry a price level.
func (k OrderKind) RequiresPrice() bool {
	return k == KindLimit || k == KindStopLoss || k == KindTakeProfit
}

// OrderStatus is the lifecycle status of an order.
// Transitions are monotonic: pending -> submitted -> {partial -> filled | cancelled | failed}.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusSubmitted OrderStatus = "submitted"
	StatusPartial   OrderStatus = "partial"
	StatusFilled    OrderStatus = "filled"
	StatusCancelled OrderStatus = "cancelled"
	StatusFailed    OrderStatus = "failed"
)

// Terminal reports whether the status is terminal.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusFailed
}

// Order is a unit of trading intent. Owned by the orchestrator while active,
// moved to immutable history on a terminal status.
type Order struct {
	ID           string      `json:"id"`
	Symbol       string      `json:"symbol"`
	Side         Side        `json:"side"`
	Amount       float64     `json:"amount"`
	Kind         OrderKind   `json:"kind"`
	Price        float64     `json:"price,omitempty"`
	StopPrice    float64     `json:"stop_price,omitempty"`
	Venue        string      `json:"venue,omitempty"`
	VenueOrderID string      `json:"venue_order_id,omitempty"`
	Status       OrderStatus `json:"status"`
	FilledAmount float64     `json:"filled_amount"`
	AvgPrice     float64     `json:"avg_price"`
	CreatedAt    time.Time   `json:"created_at"`
	CompletedAt  time.Time   `json:"completed_at,omitempty"`
}

// OrderRequest is the caller-facing input to ExecuteOrder.
type OrderRequest struct {
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Amount float64   `json:"amount"`
	Kind   OrderKind `json:"kind"`
	// Price is required for limit, stop and take-profit kinds.
	Price float64 `json:"price,omitempty"`
	// StopPrice is an optional secondary trigger level for stop orders.
	StopPrice float64 `json:"stop_price,omitempty"`
	// VenueHint, when set to a venue that supports the symbol, bypasses routing.
	VenueHint string   `json:"venue_hint,omitempty"`
	Strategy  Strategy `json:"strategy,omitempty"`
}

// OrderResult is the terminal outcome of one ExecuteOrder call.
type OrderResult struct {
	OrderID      string        `json:"order_id"`
	Symbol       string        `json:"symbol"`
	Side         Side          `json:"side"`
	Venue        string        `json:"venue,omitempty"`
	Status       OrderStatus   `json:"status"`
	FilledAmount float64       `json:"filled_amount"`
	AvgPrice     float64       `json:"avg_price"`
	Attempts     int           `json:"attempts"`
	Latency      time.Duration `json:"latency"`
	Reason       string        `json:"reason,omitempty"`
	Err          error         `json:"-"`
}

// TradeRecord is the immutable persistence shape for one completed trade.
type TradeRecord struct {
	OrderID    string    `json:"order_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price,omitempty"`
	Quantity   float64   `json:"quantity"`
	PnL        float64   `json:"pnl"`
	Venue      string    `json:"venue"`
	Strategy   string    `json:"strategy"`
	RiskScore  float64   `json:"risk_score"`
	ExecutedAt time.Time `json:"executed_at"`
}
