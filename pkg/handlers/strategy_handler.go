package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/repositories"
)

// StrategyHandler serves the configured compression strategies.
type StrategyHandler struct {
	strategies repositories.StrategyRepository
	logger     *zap.Logger
}

// NewStrategyHandler creates a new StrategyHandler.
func NewStrategyHandler(strategies repositories.StrategyRepository, logger *zap.Logger) *StrategyHandler {
	return &StrategyHandler{
		strategies: strategies,
		logger:     logger,
	}
}

// RegisterRoutes registers the strategy handler's routes on the given mux.
func (h *StrategyHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/strategies", h.List)
	mux.HandleFunc("GET /api/strategies/{id}", h.Get)
}

// List handles GET /api/strategies
func (h *StrategyHandler) List(w http.ResponseWriter, r *http.Request) {
	strategies, err := h.strategies.ListActive(r.Context())
	if err != nil {
		h.logger.Error("Failed to list strategies", zap.Error(err))
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, strategies); err != nil {
		h.logger.Error("Failed to write strategies response", zap.Error(err))
	}
}

// Get handles GET /api/strategies/{id}
func (h *StrategyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "Invalid strategy ID")
		return
	}

	strategy, err := h.strategies.GetByID(r.Context(), id)
	if err != nil {
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, strategy); err != nil {
		h.logger.Error("Failed to write strategy response", zap.Error(err))
	}
}
