package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/repositories"
)

// StatsHandler serves read-only aggregates for dashboards and reporting.
type StatsHandler struct {
	executions repositories.ExecutionRepository
	recs       repositories.RecommendationRepository
	logger     *zap.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(executions repositories.ExecutionRepository, recs repositories.RecommendationRepository, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		executions: executions,
		recs:       recs,
		logger:     logger,
	}
}

// RegisterRoutes registers the statistics routes on the given mux.
func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/statistics/compression", h.Compression)
	mux.HandleFunc("GET /api/statistics/savings-by-strategy", h.SavingsByStrategy)
}

// Compression handles GET /api/statistics/compression
func (h *StatsHandler) Compression(w http.ResponseWriter, r *http.Request) {
	stats, err := h.executions.Statistics(r.Context())
	if err != nil {
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, stats); err != nil {
		h.logger.Error("Failed to write statistics response", zap.Error(err))
	}
}

// SavingsByStrategy handles GET /api/statistics/savings-by-strategy
func (h *StatsHandler) SavingsByStrategy(w http.ResponseWriter, r *http.Request) {
	savings, err := h.recs.SavingsByStrategy(r.Context())
	if err != nil {
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, savings); err != nil {
		h.logger.Error("Failed to write savings response", zap.Error(err))
	}
}
