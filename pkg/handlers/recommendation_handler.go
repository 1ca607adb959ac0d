package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/repositories"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/services"
)

// RecommendationHandler serves persisted recommendations and on-demand
// strategy comparisons.
type RecommendationHandler struct {
	recs     repositories.RecommendationRepository
	analysis services.AnalysisService
	logger   *zap.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(recs repositories.RecommendationRepository, analysis services.AnalysisService, logger *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recs:     recs,
		analysis: analysis,
		logger:   logger,
	}
}

// RegisterRoutes registers the recommendation handler's routes on the given mux.
func (h *RecommendationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/recommendations", h.List)
	mux.HandleFunc("GET /api/recommendations/compare", h.Compare)
}

// List handles GET /api/recommendations?run_id=&limit=&min_savings_pct=
// Without run_id it lists the history for one object (owner + name).
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if raw := q.Get("run_id"); raw != "" {
		runID, err := uuid.Parse(raw)
		if err != nil {
			ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "Invalid run_id")
			return
		}

		limit := 0
		if lv := q.Get("limit"); lv != "" {
			limit, err = strconv.Atoi(lv)
			if err != nil || limit < 0 {
				ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "limit must be a non-negative integer")
				return
			}
		}

		minSavings := 0.0
		if mv := q.Get("min_savings_pct"); mv != "" {
			minSavings, err = strconv.ParseFloat(mv, 64)
			if err != nil || minSavings < 0 {
				ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "min_savings_pct must be a non-negative number")
				return
			}
		}

		recs, err := h.recs.ListByRun(r.Context(), runID, limit, minSavings)
		if err != nil {
			h.logger.Error("Failed to list recommendations",
				zap.String("run_id", runID.String()),
				zap.Error(err))
			ServiceError(w, err)
			return
		}

		if err := WriteJSON(w, http.StatusOK, recs); err != nil {
			h.logger.Error("Failed to write recommendations response", zap.Error(err))
		}
		return
	}

	owner, name := q.Get("owner"), q.Get("name")
	if owner == "" || name == "" {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "run_id or owner+name is required")
		return
	}

	recs, err := h.recs.ListByObject(r.Context(), owner, name)
	if err != nil {
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, recs); err != nil {
		h.logger.Error("Failed to write recommendations response", zap.Error(err))
	}
}

// Compare handles GET /api/recommendations/compare?owner=&name=
// Each active strategy is matched independently against the same snapshot;
// nothing is persisted.
func (h *RecommendationHandler) Compare(w http.ResponseWriter, r *http.Request) {
	owner, name := r.URL.Query().Get("owner"), r.URL.Query().Get("name")
	if owner == "" || name == "" {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "owner and name are required")
		return
	}

	recs, err := h.analysis.CompareStrategies(r.Context(), owner, name)
	if err != nil {
		h.logger.Error("Strategy comparison failed",
			zap.String("owner", owner),
			zap.String("name", name),
			zap.Error(err))
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, recs); err != nil {
		h.logger.Error("Failed to write comparison response", zap.Error(err))
	}
}
