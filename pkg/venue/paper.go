package venue

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/crossvenue/smartroute/pkg/types"
	"github.com/google/uuid"
)

// PaperAdapter is an in-process venue simulator used for paper trading and
// dry runs. Prices follow a small random walk around a configured mid; all
// placements fill immediately at the simulated top of book.
type PaperAdapter struct {
	mu sync.Mutex

	name      string
	mids      map[string]float64 // symbol -> mid price
	spreadBPS float64
	fees      FeeSchedule
	minSize   float64
	latency   time.Duration
	depth     float64

	orders map[string]*ExecResult
}

// PaperConfig configures one simulated venue.
type PaperConfig struct {
	Name      string
	Mids      map[string]float64 // symbol -> starting mid price
	SpreadBPS float64            // quoted spread in basis points
	MakerFee  float64
	TakerFee  float64
	MinSize   float64
	Latency   time.Duration // simulated per-call latency
	Depth     float64       // liquidity per book level
}

// NewPaperAdapter creates a simulated venue.
func NewPaperAdapter(cfg PaperConfig) (*PaperAdapter, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}
	if len(cfg.Mids) == 0 {
		return nil, fmt.Errorf("at least one symbol is required")
	}
	if cfg.SpreadBPS <= 0 {
		cfg.SpreadBPS = 10
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = 0.0001
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 100
	}

	mids := make(map[string]float64, len(cfg.Mids))
	for s, m := range cfg.Mids {
		mids[s] = m
	}

	return &PaperAdapter{
		name:      cfg.Name,
		mids:      mids,
		spreadBPS: cfg.SpreadBPS,
		fees:      FeeSchedule{Maker: cfg.MakerFee, Taker: cfg.TakerFee},
		minSize:   cfg.MinSize,
		latency:   cfg.Latency,
		depth:     cfg.Depth,
		orders:    map[string]*ExecResult{},
	}, nil
}

func (p *PaperAdapter) Name() string { return p.name }

// walk advances the symbol's mid by up to +/-5bps and returns bid/ask.
// Caller must hold the mutex.
func (p *PaperAdapter) walk(symbol string) (bid, ask float64, err error) {
	mid, ok := p.mids[symbol]
	if !ok {
		return 0, 0, fmt.Errorf("%s: symbol %s not traded", p.name, symbol)
	}

	mid *= 1 + (rand.Float64()-0.5)*0.001
	p.mids[symbol] = mid

	half := mid * p.spreadBPS / 10000 / 2
	return mid - half, mid + half, nil
}

func (p *PaperAdapter) sleep(ctx context.Context) error {
	if p.latency <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.latency):
		return nil
	}
}

func (p *PaperAdapter) Quote(ctx context.Context, symbol string) (*Quote, error) {
	if err := p.sleep(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bid, ask, err := p.walk(symbol)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Last:      (bid + ask) / 2,
		Timestamp: time.Now(),
	}, nil
}

func (p *PaperAdapter) OrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error) {
	if err := p.sleep(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bid, ask, err := p.walk(symbol)
	if err != nil {
		return nil, err
	}
	if depth <= 0 {
		depth = 10
	}

	book := &OrderBook{Symbol: symbol, Timestamp: time.Now()}
	for i := 0; i < depth; i++ {
		step := float64(i) * (ask - bid)
		book.Bids = append(book.Bids, BookLevel{Price: bid - step, Amount: p.depth})
		book.Asks = append(book.Asks, BookLevel{Price: ask + step, Amount: p.depth})
	}
	return book, nil
}

func (p *PaperAdapter) Fees(_ context.Context, _ string) (*FeeSchedule, error) {
	fees := p.fees
	return &fees, nil
}

func (p *PaperAdapter) PlaceMarket(ctx context.Context, symbol string, side types.Side, amount float64) (*ExecResult, error) {
	if err := p.sleep(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bid, ask, err := p.walk(symbol)
	if err != nil {
		return nil, err
	}
	price := ask
	if side == types.SideSell {
		price = bid
	}
	return p.fill(amount, price), nil
}

func (p *PaperAdapter) PlaceLimit(ctx context.Context, symbol string, _ types.Side, amount, price float64) (*ExecResult, error) {
	if err := p.sleep(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.mids[symbol]; !ok {
		return nil, fmt.Errorf("%s: symbol %s not traded", p.name, symbol)
	}
	return p.fill(amount, price), nil
}

func (p *PaperAdapter) PlaceStop(ctx context.Context, symbol string, side types.Side, amount, stopPrice, limitPrice float64) (*ExecResult, error) {
	price := limitPrice
	if price <= 0 {
		price = stopPrice
	}
	return p.PlaceLimit(ctx, symbol, side, amount, price)
}

// fill records an immediate full fill. Caller must hold the mutex.
func (p *PaperAdapter) fill(amount, price float64) *ExecResult {
	result := &ExecResult{
		VenueOrderID: uuid.NewString(),
		Status:       types.StatusFilled,
		FilledAmount: amount,
		AvgPrice:     price,
		Timestamp:    time.Now(),
	}
	p.orders[result.VenueOrderID] = result
	return result
}

func (p *PaperAdapter) Cancel(ctx context.Context, venueOrderID, _ string) (bool, error) {
	if err := p.sleep(ctx); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.orders[venueOrderID]
	if !ok {
		return false, fmt.Errorf("%s: order %s not found", p.name, venueOrderID)
	}
	if !r.Status.Terminal() {
		r.Status = types.StatusCancelled
	}
	return true, nil
}

func (p *PaperAdapter) OrderStatus(ctx context.Context, venueOrderID, _ string) (*ExecResult, error) {
	if err := p.sleep(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.orders[venueOrderID]
	if !ok {
		return nil, fmt.Errorf("%s: order %s not found", p.name, venueOrderID)
	}
	out := *r
	return &out, nil
}

func (p *PaperAdapter) SupportsSymbol(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.mids[symbol]
	return ok
}

func (p *PaperAdapter) MinOrderSize(_ string) float64 { return p.minSize }
