package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/repositories"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/services"
)

// ExecutionHandler handles compression execution requests.
type ExecutionHandler struct {
	execSvc    services.ExecutionService
	executions repositories.ExecutionRepository
	recs       repositories.RecommendationRepository
	logger     *zap.Logger
}

// NewExecutionHandler creates a new ExecutionHandler.
func NewExecutionHandler(execSvc services.ExecutionService, executions repositories.ExecutionRepository, recs repositories.RecommendationRepository, logger *zap.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		execSvc:    execSvc,
		executions: executions,
		recs:       recs,
		logger:     logger,
	}
}

// RegisterRoutes registers the execution handler's routes on the given mux.
func (h *ExecutionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/executions", h.Execute)
	mux.HandleFunc("POST /api/executions/batch", h.ExecuteBatch)
	mux.HandleFunc("GET /api/executions", h.List)
	mux.HandleFunc("GET /api/executions/{id}", h.Get)
}

type executeRequest struct {
	RecommendationID *uuid.UUID             `json:"recommendation_id,omitempty"`
	Ref              *models.ObjectRef      `json:"ref,omitempty"`
	RequestedType    models.CompressionType `json:"requested_type,omitempty"`
	Online           bool                   `json:"online"`
	Parallel         int                    `json:"parallel"`
	DryRun           bool                   `json:"dry_run"`
}

type batchExecuteRequest struct {
	RunID uuid.UUID `json:"run_id"`
	services.BatchOptions
}

// Execute handles POST /api/executions. The unit is named either by a
// recommendation ID or by an explicit object reference; dry_run returns the
// statements instead of applying them.
func (h *ExecutionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	unit, ok := h.resolveUnit(w, r, req)
	if !ok {
		return
	}

	if req.DryRun {
		plan, err := h.execSvc.DryRun(r.Context(), unit)
		if err != nil {
			ServiceError(w, err)
			return
		}
		if err := WriteJSON(w, http.StatusOK, plan); err != nil {
			h.logger.Error("Failed to write plan response", zap.Error(err))
		}
		return
	}

	rec, err := h.execSvc.Execute(r.Context(), unit)
	if err != nil && rec == nil {
		ServiceError(w, err)
		return
	}
	if err != nil {
		// The unit reached a terminal failure state; the record carries the
		// audit detail, so return it rather than a bare error.
		h.logger.Warn("Execution finished unsuccessfully",
			zap.String("object", unit.Ref.String()),
			zap.Error(err))
	}

	if err := WriteJSON(w, http.StatusCreated, rec); err != nil {
		h.logger.Error("Failed to write execution response", zap.Error(err))
	}
}

// ExecuteBatch handles POST /api/executions/batch, executing a run's
// recommendations as independent units.
func (h *ExecutionHandler) ExecuteBatch(w http.ResponseWriter, r *http.Request) {
	var req batchExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.RunID == uuid.Nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "run_id is required")
		return
	}

	result, err := h.execSvc.ExecuteRun(r.Context(), req.RunID, req.BatchOptions)
	if err != nil {
		h.logger.Error("Batch execution failed",
			zap.String("run_id", req.RunID.String()),
			zap.Error(err))
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write batch response", zap.Error(err))
	}
}

// List handles GET /api/executions?owner=&name=&limit= (or just limit for
// the most recent records).
func (h *ExecutionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 50
	if lv := q.Get("limit"); lv != "" {
		parsed, err := strconv.Atoi(lv)
		if err != nil || parsed < 1 {
			ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var (
		records []*models.ExecutionRecord
		err     error
	)
	if owner, name := q.Get("owner"), q.Get("name"); owner != "" && name != "" {
		records, err = h.executions.ListByObject(r.Context(), owner, name, limit)
	} else {
		records, err = h.executions.ListRecent(r.Context(), limit)
	}
	if err != nil {
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, records); err != nil {
		h.logger.Error("Failed to write executions response", zap.Error(err))
	}
}

// Get handles GET /api/executions/{id}
func (h *ExecutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "Invalid execution ID")
		return
	}

	rec, err := h.executions.GetByID(r.Context(), id)
	if err != nil {
		ServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, rec); err != nil {
		h.logger.Error("Failed to write execution response", zap.Error(err))
	}
}

// resolveUnit turns the request body into a concrete execution request,
// loading the recommendation when the unit is named by ID.
func (h *ExecutionHandler) resolveUnit(w http.ResponseWriter, r *http.Request, req executeRequest) (models.ExecutionRequest, bool) {
	unit := models.ExecutionRequest{
		RequestedType: req.RequestedType,
		Online:        req.Online,
		Parallel:      req.Parallel,
		DryRun:        req.DryRun,
	}

	switch {
	case req.RecommendationID != nil:
		rec, err := h.recs.GetByID(r.Context(), *req.RecommendationID)
		if err != nil {
			ServiceError(w, err)
			return unit, false
		}
		unit.Ref = rec.Ref
		if unit.RequestedType == "" {
			unit.RequestedType = rec.RecommendedType
		}
	case req.Ref != nil:
		unit.Ref = *req.Ref
	default:
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "recommendation_id or ref is required")
		return unit, false
	}

	if unit.Ref.Owner == "" || unit.Ref.Name == "" || unit.Ref.Kind == "" {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "ref requires owner, name and kind")
		return unit, false
	}
	if !unit.RequestedType.Valid() {
		ErrorResponse(w, http.StatusBadRequest, "invalid_parameters", "requested_type is not a known compression type")
		return unit, false
	}
	return unit, true
}
