// Package orchestrator is the top-level order execution entry point. It
// validates requests, gates them through the risk engine and circuit
// breaker, routes them to venues, and drives adapter calls with retry and
// failover.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/crossvenue/smartroute/internal/circuitbreaker"
	"github.com/crossvenue/smartroute/internal/latency"
	"github.com/crossvenue/smartroute/internal/marketdata"
	"github.com/crossvenue/smartroute/internal/risk"
	"github.com/crossvenue/smartroute/internal/router"
	"github.com/crossvenue/smartroute/internal/storage"
	"github.com/crossvenue/smartroute/pkg/events"
	"github.com/crossvenue/smartroute/pkg/types"
	"github.com/crossvenue/smartroute/pkg/venue"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Orchestrator coordinates order execution across all subsystems.
type Orchestrator struct {
	router    *router.Router
	riskEng   *risk.Engine
	breaker   *circuitbreaker.Chain
	optimizer *latency.Optimizer
	feed      marketdata.Feed
	store     storage.Storage
	hub       *events.Hub
	logger    *zap.Logger

	maxRetries      int
	attemptTimeout  time.Duration
	backoffInitial  time.Duration
	backoffMax      time.Duration
	backoffMult     float64
	failoverEnabled bool

	orders *orderTable
}

// Config holds orchestrator configuration.
type Config struct {
	Router          *router.Router
	RiskEngine      *risk.Engine
	Breaker         *circuitbreaker.Chain
	Optimizer       *latency.Optimizer
	Feed            marketdata.Feed
	Storage         storage.Storage
	EventHub        *events.Hub
	Logger          *zap.Logger
	MaxRetries      int
	AttemptTimeout  time.Duration
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
	BackoffMult     float64
	FailoverEnabled bool
	HistorySize     int
}

// New creates a new orchestrator.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Router == nil {
		return nil, fmt.Errorf("router cannot be nil")
	}
	if cfg.RiskEngine == nil {
		return nil, fmt.Errorf("risk engine cannot be nil")
	}
	if cfg.Breaker == nil {
		return nil, fmt.Errorf("circuit breaker cannot be nil")
	}
	if cfg.Optimizer == nil {
		return nil, fmt.Errorf("latency optimizer cannot be nil")
	}
	if cfg.Feed == nil {
		return nil, fmt.Errorf("market data feed cannot be nil")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if cfg.EventHub == nil {
		return nil, fmt.Errorf("event hub cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = 200 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 5 * time.Second
	}
	if cfg.BackoffMult < 1.0 {
		cfg.BackoffMult = 2.0
	}

	return &Orchestrator{
		router:          cfg.Router,
		riskEng:         cfg.RiskEngine,
		breaker:         cfg.Breaker,
		optimizer:       cfg.Optimizer,
		feed:            cfg.Feed,
		store:           cfg.Storage,
		hub:             cfg.EventHub,
		logger:          cfg.Logger,
		maxRetries:      cfg.MaxRetries,
		attemptTimeout:  cfg.AttemptTimeout,
		backoffInitial:  cfg.BackoffInitial,
		backoffMax:      cfg.BackoffMax,
		backoffMult:     cfg.BackoffMult,
		failoverEnabled: cfg.FailoverEnabled,
		orders:          newOrderTable(cfg.HistorySize),
	}, nil
}

// ExecuteOrder validates, gates, routes and executes one order. Local errors
// (invalid parameters, risk rejection, breaker halt) resolve here and never
// reach a venue adapter; transient venue errors are absorbed by the
// retry/failover loop up to the configured budget.
func (o *Orchestrator) ExecuteOrder(ctx context.Context, req types.OrderRequest) (*types.OrderResult, error) {
	start := time.Now()

	if err := validateRequest(req); err != nil {
		ExecutionsTotal.WithLabelValues("invalid").Inc()
		return failedResult(req, "", err), err
	}

	// Risk gate. Market orders without a reference price are re-checked
	// after routing, once an expected price is known.
	var riskScore float64
	if req.Price > 0 {
		check := o.riskEng.CheckOrder(req.Symbol, req.Side, req.Amount, req.Price)
		if !check.Approved {
			err := &types.RiskRejectedError{
				Reason:     check.Reason,
				MaxAllowed: check.MaxAllowed,
				RiskScore:  check.RiskScore,
			}
			ExecutionsTotal.WithLabelValues("risk_rejected").Inc()
			return failedResult(req, "", err), err
		}
		riskScore = check.RiskScore
	}

	// Circuit breaker gate. Never bypassed, even for venue-hinted orders.
	if decision := o.breaker.CanTrade(o.feed.Snapshot()); !decision.Allowed {
		err := &types.CircuitBreakerActiveError{
			Reason:            decision.Reason,
			RemainingCooldown: decision.RemainingCooldown,
		}
		ExecutionsTotal.WithLabelValues("breaker_halted").Inc()
		return failedResult(req, "", err), err
	}

	routing, err := o.selectVenues(ctx, req)
	if err != nil {
		ExecutionsTotal.WithLabelValues("no_venue").Inc()
		return failedResult(req, "", err), err
	}

	// Deferred risk gate for market orders, priced at the routed estimate.
	if req.Price <= 0 {
		refPrice := routing.Allocations[0].ExpectedPrice
		check := o.riskEng.CheckOrder(req.Symbol, req.Side, req.Amount, refPrice)
		if !check.Approved {
			err := &types.RiskRejectedError{
				Reason:     check.Reason,
				MaxAllowed: check.MaxAllowed,
				RiskScore:  check.RiskScore,
			}
			ExecutionsTotal.WithLabelValues("risk_rejected").Inc()
			return failedResult(req, "", err), err
		}
		riskScore = check.RiskScore
	}

	m := &managedOrder{
		strategy:  routing.Strategy,
		riskScore: riskScore,
		order: types.Order{
			ID:        uuid.NewString(),
			Symbol:    req.Symbol,
			Side:      req.Side,
			Amount:    req.Amount,
			Kind:      req.Kind,
			Price:     req.Price,
			StopPrice: req.StopPrice,
			Venue:     routing.BestVenue(),
			Status:    types.StatusPending,
			CreatedAt: time.Now(),
		},
	}
	o.orders.add(m)

	o.hub.Publish(events.Event{
		Type:    events.TypeOrderAccepted,
		Payload: m.snapshot(),
	})

	result := o.executeRouted(ctx, m, req, routing)
	result.Latency = time.Since(start)

	o.finish(ctx, m, result)

	if result.Err != nil {
		return result, result.Err
	}
	return result, nil
}

// selectVenues honors a supported venue hint, otherwise consults the router.
func (o *Orchestrator) selectVenues(ctx context.Context, req types.OrderRequest) (*types.RoutingDecision, error) {
	if req.VenueHint != "" {
		adapter, ok := o.router.Adapter(req.VenueHint)
		if ok && adapter.SupportsSymbol(req.Symbol) && adapter.MinOrderSize(req.Symbol) <= req.Amount {
			expected := req.Price
			if q, err := adapter.Quote(ctx, req.Symbol); err == nil {
				if req.Side == types.SideBuy {
					expected = q.Ask
				} else {
					expected = q.Bid
				}
			}
			return &types.RoutingDecision{
				ID:       uuid.NewString(),
				Symbol:   req.Symbol,
				Side:     req.Side,
				Amount:   req.Amount,
				Strategy: req.Strategy,
				Allocations: []types.VenueAllocation{{
					Venue:         req.VenueHint,
					Amount:        req.Amount,
					ExpectedPrice: expected,
				}},
				DecidedAt: time.Now(),
			}, nil
		}
		o.logger.Warn("venue-hint-unsupported",
			zap.String("venue", req.VenueHint),
			zap.String("symbol", req.Symbol))
	}

	return o.router.Route(ctx, router.RouteRequest{
		Symbol:   req.Symbol,
		Side:     req.Side,
		Amount:   req.Amount,
		Kind:     req.Kind,
		Strategy: req.Strategy,
	})
}

// executeRouted runs every allocation leg, concurrently for splits, and
// aggregates fills into one result.
func (o *Orchestrator) executeRouted(ctx context.Context, m *managedOrder, req types.OrderRequest, routing *types.RoutingDecision) *types.OrderResult {
	m.mu.Lock()
	m.order.Status = types.StatusSubmitted
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	legErrs := make([]error, len(routing.Allocations))

	for i, alloc := range routing.Allocations {
		g.Go(func() error {
			legErrs[i] = o.executeLeg(gctx, m, req, alloc)
			return nil
		})
	}
	_ = g.Wait()

	var lastErr error
	for _, err := range legErrs {
		if err != nil {
			lastErr = err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	totalFilled := 0.0
	notional := 0.0
	for _, l := range m.legs {
		totalFilled += l.filled
		if l.avgPrice > 0 {
			notional += l.filled * l.avgPrice
		}
	}
	avgPrice := 0.0
	if totalFilled > 0 {
		avgPrice = notional / totalFilled
	}

	m.order.FilledAmount = totalFilled
	m.order.AvgPrice = avgPrice

	result := &types.OrderResult{
		OrderID:      m.order.ID,
		Symbol:       req.Symbol,
		Side:         req.Side,
		Venue:        m.order.Venue,
		FilledAmount: totalFilled,
		AvgPrice:     avgPrice,
		Attempts:     int(m.attempts.Load()),
	}

	switch {
	case m.cancelled.Load():
		result.Status = types.StatusCancelled
		result.Reason = "cancelled"
	case lastErr != nil && totalFilled == 0:
		result.Status = types.StatusFailed
		result.Reason = lastErr.Error()
		result.Err = fmt.Errorf("execute order %s: %w", m.order.ID, lastErr)
	case totalFilled < req.Amount*(1-1e-9):
		result.Status = types.StatusPartial
	default:
		result.Status = types.StatusFilled
	}

	return result
}

// executeLeg drives one venue placement with bounded retries, exponential
// backoff and optional failover. The order's cancellation flag is checked
// between attempts so a concurrent cancel supersedes the retry loop.
func (o *Orchestrator) executeLeg(ctx context.Context, m *managedOrder, req types.OrderRequest, alloc types.VenueAllocation) error {
	currentVenue := alloc.Venue
	visited := []string{}
	backoff := o.backoffInitial

	var lastErr error

	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		if m.cancelled.Load() {
			return nil
		}
		m.attempts.Add(1)

		adapter, ok := o.router.Adapter(currentVenue)
		if !ok {
			return fmt.Errorf("%w: adapter %s not registered", types.ErrNoVenueAvailable, currentVenue)
		}

		params := o.optimizer.OptimizeParams(currentVenue, req.Kind, latency.ExecParams{
			Timeout:   o.attemptTimeout,
			BatchSize: 1,
		})

		execResult, callLatency, err := o.placeOnVenue(ctx, adapter, req, alloc.Amount, params.Timeout)
		o.optimizer.RecordOutcome(currentVenue, callLatency, err == nil)

		if err == nil {
			m.mu.Lock()
			m.legs = append(m.legs, leg{
				venue:        currentVenue,
				venueOrderID: execResult.VenueOrderID,
				filled:       execResult.FilledAmount,
				avgPrice:     execResult.AvgPrice,
			})
			if m.order.VenueOrderID == "" {
				m.order.VenueOrderID = execResult.VenueOrderID
				m.order.Venue = currentVenue
			}
			m.mu.Unlock()

			AttemptsPerLeg.Observe(float64(attempt))
			return nil
		}

		venueErr := categorize(currentVenue, err)
		o.breaker.RecordError(venueErr.Category)
		lastErr = venueErr

		o.logger.Warn("venue-attempt-failed",
			zap.String("order-id", m.order.ID),
			zap.String("venue", currentVenue),
			zap.Int("attempt", attempt),
			zap.Error(err))
		AttemptFailuresTotal.WithLabelValues(currentVenue).Inc()

		if attempt == o.maxRetries {
			break
		}

		// Failover: ask the router for an alternative, excluding every venue
		// already tried. Falling back to the same venue is fine when nothing
		// better exists.
		if o.failoverEnabled {
			visited = append(visited, currentVenue)
			if alt := o.failoverVenue(ctx, req, alloc.Amount, visited); alt != "" {
				FailoversTotal.WithLabelValues(currentVenue, alt).Inc()
				currentVenue = alt
			} else if !o.optimizer.ShouldRetry(currentVenue) {
				// Degraded venue and no alternative: stop hammering it.
				break
			}
		} else if !o.optimizer.ShouldRetry(currentVenue) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter(backoff)):
		}

		backoff = time.Duration(float64(backoff) * o.backoffMult)
		if backoff > o.backoffMax {
			backoff = o.backoffMax
		}
	}

	return lastErr
}

// placeOnVenue dispatches to the adapter method matching the order kind,
// under a per-attempt deadline.
func (o *Orchestrator) placeOnVenue(ctx context.Context, adapter venue.Adapter, req types.OrderRequest, amount float64, timeout time.Duration) (*venue.ExecResult, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	var result *venue.ExecResult
	var err error

	switch req.Kind {
	case types.KindMarket:
		result, err = adapter.PlaceMarket(ctx, req.Symbol, req.Side, amount)
	case types.KindLimit:
		result, err = adapter.PlaceLimit(ctx, req.Symbol, req.Side, amount, req.Price)
	case types.KindStopLoss, types.KindTakeProfit:
		stop := req.StopPrice
		if stop <= 0 {
			stop = req.Price
		}
		result, err = adapter.PlaceStop(ctx, req.Symbol, req.Side, amount, stop, req.Price)
	default:
		return nil, 0, fmt.Errorf("%w: unknown order kind %q", types.ErrInvalidParameters, req.Kind)
	}

	return result, time.Since(start), err
}

// failoverVenue re-routes around failed venues and returns the best
// alternative, or "" when none is available.
func (o *Orchestrator) failoverVenue(ctx context.Context, req types.OrderRequest, amount float64, exclude []string) string {
	decision, err := o.router.Route(ctx, router.RouteRequest{
		Symbol:   req.Symbol,
		Side:     req.Side,
		Amount:   amount,
		Kind:     req.Kind,
		Strategy: req.Strategy,
		Exclude:  exclude,
	})
	if err != nil {
		return ""
	}
	return decision.BestVenue()
}

// finish records a terminal outcome everywhere it matters: order table,
// aggregate metrics, circuit breaker, persistence, and the event hub.
func (o *Orchestrator) finish(ctx context.Context, m *managedOrder, result *types.OrderResult) {
	m.mu.Lock()
	m.order.Status = result.Status
	m.order.CompletedAt = time.Now()
	order := m.order
	m.mu.Unlock()

	o.orders.complete(m)

	ExecutionsTotal.WithLabelValues(string(result.Status)).Inc()
	ExecutionDurationSeconds.Observe(result.Latency.Seconds())

	switch result.Status {
	case types.StatusFilled, types.StatusPartial:
		VolumeExecuted.Add(result.FilledAmount)
		// Entry fills open a position against the risk limit, exit fills
		// release it.
		if order.Side == types.SideBuy {
			o.riskEng.IncOpenPositions()
		} else {
			o.riskEng.DecOpenPositions()
		}

		o.breaker.RecordOutcome(circuitbreaker.TradeOutcome{
			Symbol:      order.Symbol,
			PnL:         0, // entry fill, PnL realized on close
			SlippageBPS: slippageBPS(order),
			At:          time.Now(),
		})

		record := &types.TradeRecord{
			OrderID:    order.ID,
			Symbol:     order.Symbol,
			Side:       order.Side,
			EntryPrice: result.AvgPrice,
			Quantity:   result.FilledAmount,
			Venue:      order.Venue,
			Strategy:   string(m.strategy),
			RiskScore:  m.riskScore,
			ExecutedAt: order.CompletedAt,
		}
		if err := o.store.StoreTrade(ctx, record); err != nil {
			o.logger.Error("trade-store-failed",
				zap.String("order-id", order.ID),
				zap.Error(err))
		}

		o.logger.Info("order-executed",
			zap.String("order-id", order.ID),
			zap.String("symbol", order.Symbol),
			zap.String("venue", order.Venue),
			zap.Float64("filled", result.FilledAmount),
			zap.Float64("avg-price", result.AvgPrice),
			zap.Duration("latency", result.Latency))

	case types.StatusFailed:
		o.logger.Error("order-failed",
			zap.String("order-id", order.ID),
			zap.String("symbol", order.Symbol),
			zap.String("reason", result.Reason))
	}

	o.hub.Publish(events.Event{
		Type:    events.TypeTradeResult,
		Payload: result,
	})
}

// CancelOrder cancels an active order. The cancellation flag is raised first
// so any in-flight retry loop observes it; venue legs already placed are
// cancelled against their venues.
func (o *Orchestrator) CancelOrder(ctx context.Context, id string) error {
	m, ok := o.orders.get(id)
	if !ok {
		return fmt.Errorf("cancel order %s: %w", id, types.ErrOrderNotFound)
	}

	m.cancelled.Store(true)

	m.mu.Lock()
	legs := make([]leg, len(m.legs))
	copy(legs, m.legs)
	symbol := m.order.Symbol
	m.mu.Unlock()

	var errs error
	for _, l := range legs {
		adapter, ok := o.router.Adapter(l.venue)
		if !ok {
			continue
		}
		acked, err := adapter.Cancel(ctx, l.venueOrderID, symbol)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cancel on %s: %w", l.venue, err))
			continue
		}
		if !acked {
			errs = multierr.Append(errs, fmt.Errorf("cancel on %s: not acknowledged", l.venue))
		}
	}
	if errs != nil {
		return errs
	}

	m.mu.Lock()
	m.order.Status = types.StatusCancelled
	m.order.CompletedAt = time.Now()
	m.mu.Unlock()

	o.orders.complete(m)
	CancellationsTotal.Inc()

	o.logger.Info("order-cancelled", zap.String("order-id", id))

	return nil
}

// OrderStatus returns the current state of an active or historical order.
func (o *Orchestrator) OrderStatus(id string) (types.Order, error) {
	if m, ok := o.orders.get(id); ok {
		return m.snapshot(), nil
	}
	for _, order := range o.orders.historyOrders() {
		if order.ID == id {
			return order, nil
		}
	}
	return types.Order{}, fmt.Errorf("order %s: %w", id, types.ErrOrderNotFound)
}

// ActiveOrders returns a snapshot of all in-flight orders.
func (o *Orchestrator) ActiveOrders() []types.Order {
	return o.orders.activeOrders()
}

// OrderHistory returns the bounded terminal order history.
func (o *Orchestrator) OrderHistory() []types.Order {
	return o.orders.historyOrders()
}

// Statistics summarizes execution activity since startup.
type Statistics struct {
	ActiveOrders   int                         `json:"active_orders"`
	TotalCompleted int64                       `json:"total_completed"`
	ByStatus       map[types.OrderStatus]int64 `json:"by_status"`
}

// Stats returns execution counters for the control plane.
func (o *Orchestrator) Stats() Statistics {
	return o.orders.stats()
}

// Shutdown drains by attempting to cancel every still-active order,
// aggregating per-order errors without aborting the drain early.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	active := o.orders.activeManaged()
	o.logger.Info("orchestrator-draining", zap.Int("active-orders", len(active)))

	var errs error
	for _, m := range active {
		if err := o.CancelOrder(ctx, m.order.ID); err != nil && !errors.Is(err, types.ErrOrderNotFound) {
			errs = multierr.Append(errs, err)
		}
	}

	o.logger.Info("orchestrator-drained")
	return errs
}

func validateRequest(req types.OrderRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", types.ErrInvalidParameters)
	}
	if !req.Side.Valid() {
		return fmt.Errorf("%w: side must be buy or sell, got %q", types.ErrInvalidParameters, req.Side)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %f", types.ErrInvalidParameters, req.Amount)
	}
	if req.Kind.RequiresPrice() && req.Price <= 0 {
		return fmt.Errorf("%w: %s orders require a price", types.ErrInvalidParameters, req.Kind)
	}
	return nil
}

func failedResult(req types.OrderRequest, orderID string, err error) *types.OrderResult {
	return &types.OrderResult{
		OrderID: orderID,
		Symbol:  req.Symbol,
		Side:    req.Side,
		Status:  types.StatusFailed,
		Reason:  err.Error(),
		Err:     err,
	}
}

// categorize wraps an adapter failure into a VenueError with the counter
// category the circuit breaker tracks.
func categorize(venueName string, err error) *types.VenueError {
	var ve *types.VenueError
	if errors.As(err, &ve) {
		return ve
	}

	category := types.ErrCategoryAPI
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		category = types.ErrCategoryTimeout
	case errors.Is(err, context.Canceled):
		category = types.ErrCategoryNetwork
	}

	return types.NewVenueError(venueName, category, err)
}

// jitter applies +/-20% to a backoff delay so concurrent retries spread out.
func jitter(d time.Duration) time.Duration {
	f := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * f)
}

func slippageBPS(order types.Order) float64 {
	if order.Price <= 0 || order.AvgPrice <= 0 {
		return 0
	}
	slip := (order.AvgPrice - order.Price) / order.Price
	if order.Side == types.SideSell {
		slip = -slip
	}
	return slip * 10000
}
