package router

import (
	"context"
	"fmt"
	"time"

	"github.com/crossvenue/smartroute/pkg/types"
	"github.com/crossvenue/smartroute/pkg/venue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// venueSnapshot is the market view of one venue gathered for a routing pass.
type venueSnapshot struct {
	name  string
	quote *venue.Quote
	book  *venue.OrderBook
	fees  *venue.FeeSchedule
}

// gatherSnapshots fans out quote/fee/orderbook lookups to every candidate
// venue concurrently with a per-venue deadline, serving repeat lookups from
// the snapshot cache within its TTL. Venues that fail to answer are dropped
// from the candidate set rather than failing the route.
func (r *Router) gatherSnapshots(ctx context.Context, symbol string, candidates []venue.Adapter) []*venueSnapshot {
	results := make([]*venueSnapshot, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	for i, adapter := range candidates {
		g.Go(func() error {
			snap, err := r.snapshotVenue(gctx, symbol, adapter)
			if err != nil {
				r.logger.Warn("venue-snapshot-failed",
					zap.String("venue", adapter.Name()),
					zap.String("symbol", symbol),
					zap.Error(err))
				SnapshotFailuresTotal.WithLabelValues(adapter.Name()).Inc()
				return nil // drop the venue, keep routing
			}
			results[i] = snap
			return nil
		})
	}
	_ = g.Wait()

	snapshots := make([]*venueSnapshot, 0, len(results))
	for _, s := range results {
		if s != nil {
			snapshots = append(snapshots, s)
		}
	}
	return snapshots
}

func (r *Router) snapshotVenue(ctx context.Context, symbol string, adapter venue.Adapter) (*venueSnapshot, error) {
	key := fmt.Sprintf("snapshot:%s:%s", adapter.Name(), symbol)
	if cached, ok := r.cache.Get(key); ok {
		if snap, ok := cached.(*venueSnapshot); ok {
			return snap, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.snapshotTimeout)
	defer cancel()

	start := time.Now()

	quote, err := adapter.Quote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}

	fees, err := adapter.Fees(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fees: %w", err)
	}

	book, err := adapter.OrderBook(ctx, symbol, r.bookDepth)
	if err != nil {
		return nil, fmt.Errorf("orderbook: %w", err)
	}

	SnapshotDurationSeconds.WithLabelValues(adapter.Name()).Observe(time.Since(start).Seconds())

	snap := &venueSnapshot{
		name:  adapter.Name(),
		quote: quote,
		book:  book,
		fees:  fees,
	}
	r.cache.Set(key, snap, r.snapshotTTL)

	return snap, nil
}

// effectivePrice walks the order book side the order would consume and
// returns the expected average fill price for the given amount, accounting
// for slippage as depth is eaten. When the visible book is thinner than the
// order, the remainder is priced at the worst visible level.
func effectivePrice(book *venue.OrderBook, side types.Side, amount float64) float64 {
	levels := book.Asks
	if side == types.SideSell {
		levels = book.Bids
	}
	if len(levels) == 0 || amount <= 0 {
		return 0
	}

	remaining := amount
	cost := 0.0
	worst := levels[len(levels)-1].Price

	for _, l := range levels {
		take := l.Amount
		if take > remaining {
			take = remaining
		}
		cost += take * l.Price
		remaining -= take
		if remaining <= 0 {
			break
		}
	}

	if remaining > 0 {
		cost += remaining * worst
	}

	return cost / amount
}
