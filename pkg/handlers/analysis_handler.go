package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/repositories"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/services"
)

// AnalysisHandler handles analysis run requests.
type AnalysisHandler struct {
	analysis services.AnalysisService
	runs     repositories.RunRepository
	logger   *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysis services.AnalysisService, runs repositories.RunRepository, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysis: analysis,
		runs:     runs,
		logger:   logger,
	}
}

// RegisterRoutes registers the analysis handler's routes on the given mux.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/analysis", h.RunAnalysis)
	mux.HandleFunc("GET /api/analysis/latest", h.LatestRun)
	mux.HandleFunc("GET /api/analysis/{id}", h.GetRun)
}

type runAnalysisRequest struct {
	StrategyID uuid.UUID          `json:"strategy_id"`
	Scope      models.ScopeFilter `json:"scope"`
}

// RunAnalysis handles POST /api/analysis
func (h *AnalysisHandler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	var req runAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.StrategyID == uuid.Nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "strategy_id is required")
		return
	}

	run, err := h.analysis.RunAnalysis(r.Context(), req.Scope, req.StrategyID)
	if err != nil {
		h.logger.Error("Analysis run failed",
			zap.String("strategy_id", req.StrategyID.String()),
			zap.Error(err))
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, run); err != nil {
		h.logger.Error("Failed to write analysis response", zap.Error(err))
	}
}

// LatestRun handles GET /api/analysis/latest
func (h *AnalysisHandler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Latest(r.Context())
	if err != nil {
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, run); err != nil {
		h.logger.Error("Failed to write run response", zap.Error(err))
	}
}

// GetRun handles GET /api/analysis/{id}
func (h *AnalysisHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "Invalid run ID")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, run); err != nil {
		h.logger.Error("Failed to write run response", zap.Error(err))
	}
}
