package httpserver

import (
	"errors"
	"net/http"

	"github.com/crossvenue/smartroute/internal/circuitbreaker"
	"github.com/crossvenue/smartroute/internal/latency"
	"github.com/crossvenue/smartroute/internal/orchestrator"
	"github.com/crossvenue/smartroute/internal/risk"
	"github.com/crossvenue/smartroute/internal/router"
	"github.com/crossvenue/smartroute/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// APIHandler serves the engine debug and control API.
type APIHandler struct {
	orchestrator *orchestrator.Orchestrator
	router       *router.Router
	breaker      *circuitbreaker.Chain
	optimizer    *latency.Optimizer
	riskEngine   *risk.Engine
	logger       *zap.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(cfg *Config, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		orchestrator: cfg.Orchestrator,
		router:       cfg.Router,
		breaker:      cfg.Breaker,
		optimizer:    cfg.Optimizer,
		riskEngine:   cfg.RiskEngine,
		logger:       logger,
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// BreakerResponse represents the circuit breaker status response.
type BreakerResponse struct {
	Active   bool                    `json:"active"`
	Policies []circuitbreaker.Status `json:"policies"`
}

// OrdersResponse represents the orders listing response.
type OrdersResponse struct {
	Active  []types.Order           `json:"active"`
	History []types.Order           `json:"history"`
	Stats   orchestrator.Statistics `json:"stats"`
}

// HandleBreakerStatus handles GET /api/breaker requests.
func (h *APIHandler) HandleBreakerStatus(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, BreakerResponse{
		Active:   h.breaker.Active(),
		Policies: h.breaker.Status(),
	})
}

// HandleRoutingStats handles GET /api/routing/stats requests.
func (h *APIHandler) HandleRoutingStats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.router.Stats())
}

// HandleLatencyMetrics handles GET /api/latency requests.
func (h *APIHandler) HandleLatencyMetrics(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.optimizer.AllMetrics())
}

// HandleRiskLimits handles GET /api/risk/limits requests.
func (h *APIHandler) HandleRiskLimits(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.riskEngine.Limits())
}

// HandleOrders handles GET /api/orders requests.
func (h *APIHandler) HandleOrders(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, OrdersResponse{
		Active:  h.orchestrator.ActiveOrders(),
		History: h.orchestrator.OrderHistory(),
		Stats:   h.orchestrator.Stats(),
	})
}

// HandlePlaceOrder handles POST /api/orders requests.
func (h *APIHandler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req types.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.orchestrator.ExecuteOrder(r.Context(), req)
	if err != nil {
		var riskErr *types.RiskRejectedError
		var breakerErr *types.CircuitBreakerActiveError

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, types.ErrInvalidParameters):
			status = http.StatusBadRequest
		case errors.As(err, &riskErr):
			status = http.StatusUnprocessableEntity
		case errors.As(err, &breakerErr), errors.Is(err, types.ErrNoVenueAvailable):
			status = http.StatusServiceUnavailable
		}
		h.writeError(w, err.Error(), status)
		return
	}

	h.writeJSON(w, result)
}

// HandleOrderStatus handles GET /api/orders/{id} requests.
func (h *APIHandler) HandleOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, err := h.orchestrator.OrderStatus(id)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.writeJSON(w, order)
}

// HandleCancelOrder handles DELETE /api/orders/{id} requests.
func (h *APIHandler) HandleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.orchestrator.CancelOrder(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, types.ErrOrderNotFound) {
			status = http.StatusNotFound
		}
		h.writeError(w, err.Error(), status)
		return
	}

	h.writeJSON(w, map[string]string{"status": "cancelled", "order_id": id})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}
