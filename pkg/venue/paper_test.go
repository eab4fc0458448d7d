package venue

import (
	"context"
	"strings"
	"testing"

	"github.com/crossvenue/smartroute/pkg/types"
)

func newTestPaper(t *testing.T) *PaperAdapter {
	t.Helper()
	p, err := NewPaperAdapter(PaperConfig{
		Name:      "paper",
		Mids:      map[string]float64{"BTC-USD": 50000},
		SpreadBPS: 10,
		MakerFee:  0.0005,
		TakerFee:  0.0010,
	})
	if err != nil {
		t.Fatalf("NewPaperAdapter: %v", err)
	}
	return p
}

func TestNewPaperAdapter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     PaperConfig
		wantErr string
	}{
		{
			name:    "empty name",
			cfg:     PaperConfig{Mids: map[string]float64{"BTC-USD": 50000}},
			wantErr: "name cannot be empty",
		},
		{
			name:    "no symbols",
			cfg:     PaperConfig{Name: "paper"},
			wantErr: "at least one symbol is required",
		},
		{
			name: "valid",
			cfg:  PaperConfig{Name: "paper", Mids: map[string]float64{"BTC-USD": 50000}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPaperAdapter(tt.cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.Name() != tt.cfg.Name {
					t.Errorf("expected name %s, got %s", tt.cfg.Name, p.Name())
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("expected error %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPaperQuote(t *testing.T) {
	t.Parallel()

	p := newTestPaper(t)

	q, err := p.Quote(context.Background(), "BTC-USD")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	if q.Bid >= q.Ask {
		t.Errorf("expected bid < ask, got %f >= %f", q.Bid, q.Ask)
	}
	// 10bps spread around a mid that moved at most 5bps.
	if q.Bid < 49000 || q.Ask > 51000 {
		t.Errorf("quote drifted implausibly: bid %f ask %f", q.Bid, q.Ask)
	}

	spread := (q.Ask - q.Bid) / q.Last * 10000
	if spread < 9.9 || spread > 10.1 {
		t.Errorf("expected ~10bps spread, got %.2fbps", spread)
	}

	if _, err := p.Quote(context.Background(), "DOGE-USD"); err == nil {
		t.Error("expected error for untraded symbol")
	}
}

func TestPaperOrderBook(t *testing.T) {
	t.Parallel()

	p := newTestPaper(t)

	book, err := p.OrderBook(context.Background(), "BTC-USD", 5)
	if err != nil {
		t.Fatalf("OrderBook: %v", err)
	}

	if len(book.Bids) != 5 || len(book.Asks) != 5 {
		t.Fatalf("expected 5 levels per side, got %d/%d", len(book.Bids), len(book.Asks))
	}

	for i := 1; i < 5; i++ {
		if book.Asks[i].Price <= book.Asks[i-1].Price {
			t.Errorf("asks must ascend: level %d %f <= %f", i, book.Asks[i].Price, book.Asks[i-1].Price)
		}
		if book.Bids[i].Price >= book.Bids[i-1].Price {
			t.Errorf("bids must descend: level %d %f >= %f", i, book.Bids[i].Price, book.Bids[i-1].Price)
		}
	}

	// Default liquidity per level.
	if book.Asks[0].Amount != 100 {
		t.Errorf("expected default depth 100 per level, got %f", book.Asks[0].Amount)
	}
}

func TestPaperPlaceAndStatus(t *testing.T) {
	t.Parallel()

	p := newTestPaper(t)

	result, err := p.PlaceMarket(context.Background(), "BTC-USD", types.SideBuy, 0.5)
	if err != nil {
		t.Fatalf("PlaceMarket: %v", err)
	}

	if result.Status != types.StatusFilled {
		t.Errorf("expected immediate fill, got %s", result.Status)
	}
	if result.FilledAmount != 0.5 {
		t.Errorf("expected filled amount 0.5, got %f", result.FilledAmount)
	}
	if result.AvgPrice <= 0 {
		t.Errorf("expected a positive fill price, got %f", result.AvgPrice)
	}

	status, err := p.OrderStatus(context.Background(), result.VenueOrderID, "BTC-USD")
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if status.VenueOrderID != result.VenueOrderID {
		t.Errorf("expected order %s, got %s", result.VenueOrderID, status.VenueOrderID)
	}

	if _, err := p.OrderStatus(context.Background(), "missing", "BTC-USD"); err == nil {
		t.Error("expected error for unknown order")
	} else if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestPaperPlaceLimit(t *testing.T) {
	t.Parallel()

	p := newTestPaper(t)

	result, err := p.PlaceLimit(context.Background(), "BTC-USD", types.SideBuy, 1, 49500)
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}
	if result.AvgPrice != 49500 {
		t.Errorf("expected fill at limit price 49500, got %f", result.AvgPrice)
	}

	if _, err := p.PlaceLimit(context.Background(), "DOGE-USD", types.SideBuy, 1, 0.5); err == nil {
		t.Error("expected error for untraded symbol")
	}
}

func TestPaperPlaceStopFallsBackToStopPrice(t *testing.T) {
	t.Parallel()

	p := newTestPaper(t)

	result, err := p.PlaceStop(context.Background(), "BTC-USD", types.SideSell, 1, 48000, 0)
	if err != nil {
		t.Fatalf("PlaceStop: %v", err)
	}
	if result.AvgPrice != 48000 {
		t.Errorf("expected fill at stop price 48000, got %f", result.AvgPrice)
	}
}

func TestPaperCancel(t *testing.T) {
	t.Parallel()

	p := newTestPaper(t)

	result, err := p.PlaceMarket(context.Background(), "BTC-USD", types.SideBuy, 1)
	if err != nil {
		t.Fatalf("PlaceMarket: %v", err)
	}

	// A filled order stays filled; the cancel is still acknowledged.
	acked, err := p.Cancel(context.Background(), result.VenueOrderID, "BTC-USD")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !acked {
		t.Error("expected acknowledgment")
	}

	status, err := p.OrderStatus(context.Background(), result.VenueOrderID, "BTC-USD")
	if err != nil {
		t.Fatalf("OrderStatus: %v", err)
	}
	if status.Status != types.StatusFilled {
		t.Errorf("expected terminal fill to survive cancel, got %s", status.Status)
	}

	if _, err := p.Cancel(context.Background(), "missing", "BTC-USD"); err == nil {
		t.Error("expected error for unknown order")
	}
}

func TestPaperSupportsSymbol(t *testing.T) {
	t.Parallel()

	p := newTestPaper(t)

	if !p.SupportsSymbol("BTC-USD") {
		t.Error("expected BTC-USD to be supported")
	}
	if p.SupportsSymbol("DOGE-USD") {
		t.Error("expected DOGE-USD to be unsupported")
	}
	if p.MinOrderSize("BTC-USD") != 0.0001 {
		t.Errorf("expected default min size 0.0001, got %f", p.MinOrderSize("BTC-USD"))
	}
}
