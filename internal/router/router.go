// Package router selects the venue, or venue split, for each order using
// live price, fee, liquidity and latency signals.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/crossvenue/smartroute/internal/latency"
	"github.com/crossvenue/smartroute/pkg/cache"
	"github.com/crossvenue/smartroute/pkg/types"
	"github.com/crossvenue/smartroute/pkg/venue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SmartRouting score weights.
const (
	weightPrice     = 0.4
	weightFee       = 0.3
	weightLiquidity = 0.2
	weightStatic    = 0.1
)

// Router scores candidate venues and produces routing decisions.
type Router struct {
	adapters        map[string]venue.Adapter
	optimizer       *latency.Optimizer
	cache           cache.Cache
	logger          *zap.Logger
	staticWeights   map[string]float64
	splitThreshold  float64
	splitMaxVenues  int
	bookDepth       int
	snapshotTTL     time.Duration
	snapshotTimeout time.Duration
	history         *history
}

// Config holds router configuration.
type Config struct {
	Adapters        []venue.Adapter
	Optimizer       *latency.Optimizer
	Cache           cache.Cache
	Logger          *zap.Logger
	StaticWeights   map[string]float64 // 0-100 per venue, default 50
	SplitThreshold  float64            // Amounts above this are split candidates
	SplitMaxVenues  int                // Top-N venues considered for a split
	BookDepth       int
	SnapshotTTL     time.Duration
	SnapshotTimeout time.Duration
	HistorySize     int
}

// RouteRequest is the input to one routing pass.
type RouteRequest struct {
	Symbol   string
	Side     types.Side
	Amount   float64
	Kind     types.OrderKind
	Strategy types.Strategy
	Exclude  []string // Venues to skip (failover re-routes set this)
}

// New creates a new router.
func New(cfg *Config) (*Router, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Adapters) == 0 {
		return nil, fmt.Errorf("at least one venue adapter is required")
	}
	if cfg.Optimizer == nil {
		return nil, fmt.Errorf("latency optimizer cannot be nil")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("snapshot cache cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.SplitMaxVenues <= 1 {
		cfg.SplitMaxVenues = 3
	}
	if cfg.BookDepth <= 0 {
		cfg.BookDepth = 20
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 500 * time.Millisecond
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = 5 * time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 1000
	}

	adapters := make(map[string]venue.Adapter, len(cfg.Adapters))
	for _, a := range cfg.Adapters {
		adapters[a.Name()] = a
	}

	weights := cfg.StaticWeights
	if weights == nil {
		weights = make(map[string]float64)
	}

	return &Router{
		adapters:        adapters,
		optimizer:       cfg.Optimizer,
		cache:           cfg.Cache,
		logger:          cfg.Logger,
		staticWeights:   weights,
		splitThreshold:  cfg.SplitThreshold,
		splitMaxVenues:  cfg.SplitMaxVenues,
		bookDepth:       cfg.BookDepth,
		snapshotTTL:     cfg.SnapshotTTL,
		snapshotTimeout: cfg.SnapshotTimeout,
		history:         newHistory(cfg.HistorySize),
	}, nil
}

// Adapter returns the registered adapter for a venue name.
func (r *Router) Adapter(name string) (venue.Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Route selects a venue, or a split across venues, for the requested order.
// Venues that do not support the symbol or whose minimum order size exceeds
// the amount are excluded before scoring.
func (r *Router) Route(ctx context.Context, req RouteRequest) (*types.RoutingDecision, error) {
	if req.Symbol == "" || !req.Side.Valid() || req.Amount <= 0 {
		return nil, fmt.Errorf("%w: symbol, side and positive amount required", types.ErrInvalidParameters)
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = types.StrategySmartRouting
	}

	candidates := r.eligibleAdapters(req)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no venue supports %s at amount %.8f",
			types.ErrNoVenueAvailable, req.Symbol, req.Amount)
	}

	snapshots := r.gatherSnapshots(ctx, req.Symbol, candidates)
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("%w: no venue answered market data lookups for %s",
			types.ErrNoVenueAvailable, req.Symbol)
	}

	scored := r.scoreVenues(snapshots, req, strategy)

	decision := r.decide(scored, req, strategy)
	r.history.add(decision)

	DecisionsTotal.WithLabelValues(string(strategy), splitLabel(decision.Split)).Inc()
	r.logger.Info("route-decided",
		zap.String("decision_id", decision.ID),
		zap.String("symbol", req.Symbol),
		zap.String("strategy", string(strategy)),
		zap.Bool("split", decision.Split),
		zap.String("venue", decision.BestVenue()),
		zap.Int("candidates", len(scored)))

	return decision, nil
}

// eligibleAdapters filters registered adapters down to routing candidates.
func (r *Router) eligibleAdapters(req RouteRequest) []venue.Adapter {
	excluded := make(map[string]bool, len(req.Exclude))
	for _, name := range req.Exclude {
		excluded[name] = true
	}

	out := make([]venue.Adapter, 0, len(r.adapters))
	for name, a := range r.adapters {
		if excluded[name] {
			continue
		}
		if !a.SupportsSymbol(req.Symbol) {
			continue
		}
		if a.MinOrderSize(req.Symbol) > req.Amount {
			continue
		}
		out = append(out, a)
	}
	return out
}

// scoredVenue pairs a snapshot with its computed score.
type scoredVenue struct {
	snap  *venueSnapshot
	score types.ScoreBreakdown
}

// scoreVenues computes a per-venue score under the requested strategy and
// returns venues ordered best first.
func (r *Router) scoreVenues(snapshots []*venueSnapshot, req RouteRequest, strategy types.Strategy) []scoredVenue {
	scored := make([]scoredVenue, 0, len(snapshots))

	switch strategy {
	case types.StrategyBestPrice:
		for _, s := range snapshots {
			price := effectivePrice(s.book, req.Side, req.Amount)
			scored = append(scored, scoredVenue{snap: s, score: types.ScoreBreakdown{
				PriceScore: priceFavorability(price, req.Side),
				Total:      priceFavorability(price, req.Side),
			}})
		}
	case types.StrategyLowestFee:
		for _, s := range snapshots {
			fee := feeFor(s.fees, req.Kind)
			total := inverseScore(fee)
			scored = append(scored, scoredVenue{snap: s, score: types.ScoreBreakdown{
				FeeScore: total,
				Total:    total,
			}})
		}
	case types.StrategyFastestExecution:
		anyData := false
		for _, s := range snapshots {
			if r.optimizer.Metrics(s.name).Samples > 0 {
				anyData = true
				break
			}
		}
		for _, s := range snapshots {
			var total float64
			if anyData {
				total = inverseScore(r.optimizer.Metrics(s.name).AvgLatency.Seconds())
			} else {
				// No latency data anywhere yet: fall back to static weights.
				total = r.staticWeight(s.name)
			}
			scored = append(scored, scoredVenue{snap: s, score: types.ScoreBreakdown{
				StaticWeight: r.staticWeight(s.name),
				Total:        total,
			}})
		}
	default: // SmartRouting
		bestPrice, lowestFee := extremes(snapshots, req)
		for _, s := range snapshots {
			price := effectivePrice(s.book, req.Side, req.Amount)
			fee := feeFor(s.fees, req.Kind)
			breakdown := types.ScoreBreakdown{
				PriceScore:     relativePriceScore(price, bestPrice, req.Side),
				FeeScore:       relativeFeeScore(fee, lowestFee),
				LiquidityScore: liquidityScore(s.book.DepthFor(req.Side), req.Amount),
				StaticWeight:   r.staticWeight(s.name),
			}
			breakdown.Total = weightPrice*breakdown.PriceScore +
				weightFee*breakdown.FeeScore +
				weightLiquidity*breakdown.LiquidityScore +
				weightStatic*breakdown.StaticWeight
			scored = append(scored, scoredVenue{snap: s, score: breakdown})
		}
	}

	sortByScore(scored)
	return scored
}

// decide routes to the single best venue, or evaluates a proportional split
// across the top-N scored venues when the amount exceeds the split threshold.
// The split is accepted only when re-quoting each leg at its sub-amount
// demonstrably improves the expected outcome over the single best venue.
func (r *Router) decide(scored []scoredVenue, req RouteRequest, strategy types.Strategy) *types.RoutingDecision {
	decision := &types.RoutingDecision{
		ID:        uuid.NewString(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Amount:    req.Amount,
		Strategy:  strategy,
		DecidedAt: time.Now(),
	}

	best := scored[0]
	singlePrice := effectivePrice(best.snap.book, req.Side, req.Amount)

	if r.splitThreshold > 0 && req.Amount > r.splitThreshold && len(scored) > 1 {
		if split := r.evaluateSplit(scored, req, singlePrice); split != nil {
			decision.Allocations = split
			decision.Split = true
			return decision
		}
	}

	decision.Allocations = []types.VenueAllocation{{
		Venue:         best.snap.name,
		Amount:        req.Amount,
		ExpectedPrice: singlePrice,
		Score:         best.score,
	}}
	return decision
}

// evaluateSplit builds a score-proportional split over the top venues and
// returns it only if it beats routing everything to the best single venue.
func (r *Router) evaluateSplit(scored []scoredVenue, req RouteRequest, singlePrice float64) []types.VenueAllocation {
	top := scored
	if len(top) > r.splitMaxVenues {
		top = top[:r.splitMaxVenues]
	}

	totalScore := 0.0
	for _, sv := range top {
		totalScore += sv.score.Total
	}
	if totalScore <= 0 {
		return nil
	}

	allocations := make([]types.VenueAllocation, 0, len(top))
	allocated := 0.0
	for i, sv := range top {
		amount := req.Amount * sv.score.Total / totalScore
		if i == len(top)-1 {
			// Assign the remainder to the last leg so the total is exact.
			amount = req.Amount - allocated
		}
		allocated += amount

		allocations = append(allocations, types.VenueAllocation{
			Venue:         sv.snap.name,
			Amount:        amount,
			ExpectedPrice: effectivePrice(sv.snap.book, req.Side, amount),
			Score:         sv.score,
		})
	}

	// Compare expected notional outcome: a buy wants lower total cost, a
	// sell wants higher total proceeds.
	splitNotional := 0.0
	for _, a := range allocations {
		splitNotional += a.Amount * a.ExpectedPrice
	}
	singleNotional := req.Amount * singlePrice

	improves := splitNotional < singleNotional
	if req.Side == types.SideSell {
		improves = splitNotional > singleNotional
	}
	if !improves {
		return nil
	}

	return allocations
}

func (r *Router) staticWeight(name string) float64 {
	if w, ok := r.staticWeights[name]; ok {
		return w
	}
	return 50
}

// Stats returns aggregate statistics over the bounded decision history.
func (r *Router) Stats() Statistics {
	return r.history.stats()
}

func sortByScore(scored []scoredVenue) {
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].score.Total > scored[j-1].score.Total; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}
}

// extremes finds the most favorable effective price and the lowest fee among
// the snapshots, used as normalization anchors for SmartRouting scores.
func extremes(snapshots []*venueSnapshot, req RouteRequest) (bestPrice, lowestFee float64) {
	for i, s := range snapshots {
		price := effectivePrice(s.book, req.Side, req.Amount)
		fee := feeFor(s.fees, req.Kind)
		if i == 0 {
			bestPrice, lowestFee = price, fee
			continue
		}
		if (req.Side == types.SideBuy && price < bestPrice) ||
			(req.Side == types.SideSell && price > bestPrice) {
			bestPrice = price
		}
		if fee < lowestFee {
			lowestFee = fee
		}
	}
	return bestPrice, lowestFee
}

// feeFor picks the fee leg an order kind pays: market orders take, resting
// kinds make.
func feeFor(fees *venue.FeeSchedule, kind types.OrderKind) float64 {
	if kind == types.KindMarket {
		return fees.Taker
	}
	return fees.Maker
}

// priceFavorability converts an absolute price into a comparable score where
// higher is better for the given side.
func priceFavorability(price float64, side types.Side) float64 {
	if price <= 0 {
		return 0
	}
	if side == types.SideBuy {
		return 1e6 / price
	}
	return price
}

// relativePriceScore maps a venue's effective price onto 0-100 against the
// best price in the candidate set.
func relativePriceScore(price, bestPrice float64, side types.Side) float64 {
	if price <= 0 || bestPrice <= 0 {
		return 0
	}
	if side == types.SideBuy {
		return 100 * bestPrice / price
	}
	return 100 * price / bestPrice
}

// relativeFeeScore maps a venue's fee onto 0-100 against the lowest fee in
// the candidate set. The floor keeps the mapping monotonic when the lowest
// fee is zero: only a venue matching the lowest fee scores 100.
func relativeFeeScore(fee, lowestFee float64) float64 {
	const floor = 1e-5 // a tenth of a basis point
	if fee < 0 {
		fee = 0
	}
	if lowestFee < 0 || lowestFee > fee {
		lowestFee = fee
	}
	return 100 * (lowestFee + floor) / (fee + floor)
}

// liquidityScore is a step function of book depth relative to order size.
func liquidityScore(depth, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	ratio := depth / amount
	switch {
	case ratio >= 10:
		return 100
	case ratio >= 5:
		return 80
	case ratio >= 2:
		return 60
	case ratio >= 1:
		return 40
	default:
		return 20
	}
}

// inverseScore maps a non-negative cost (fee, latency seconds) onto a score
// where lower cost is strictly better. A zero cost scores 100.
func inverseScore(cost float64) float64 {
	if cost < 0 {
		cost = 0
	}
	return 100 / (1 + cost)
}

func splitLabel(split bool) string {
	if split {
		return "split"
	}
	return "single"
}
