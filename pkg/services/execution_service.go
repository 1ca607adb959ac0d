package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/adapters/target"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/repositories"
)

// BatchOptions selects and shapes a run-level batch execution. DryRun plans
// every selected unit without touching the target engine or the audit trail.
type BatchOptions struct {
	Limit         int     `json:"limit"`
	MinSavingsPct float64 `json:"min_savings_pct"`
	Online        bool    `json:"online"`
	Parallel      int     `json:"parallel"`
	DryRun        bool    `json:"dry_run"`
}

// ExecutionService is the trigger-facing entry point for executions. It
// expands batch selectors into independent units and hands them to the
// coordinator.
type ExecutionService interface {
	// Execute runs a single unit.
	Execute(ctx context.Context, req models.ExecutionRequest) (*models.ExecutionRecord, error)

	// DryRun produces the unit's statements without touching the target
	// engine or the audit trail.
	DryRun(ctx context.Context, req models.ExecutionRequest) (*Plan, error)

	// ExecuteRun executes a run's recommendations as a batch. Partitioned
	// tables expand to one independent unit per partition, each
	// preserving its own tablespace.
	ExecuteRun(ctx context.Context, runID uuid.UUID, opts BatchOptions) (*BatchResult, error)
}

type executionService struct {
	coordinator *Coordinator
	catalog     target.CatalogReader
	recs        repositories.RecommendationRepository
	logger      *zap.Logger
}

// NewExecutionService creates an ExecutionService.
func NewExecutionService(coordinator *Coordinator, catalog target.CatalogReader, recs repositories.RecommendationRepository, logger *zap.Logger) ExecutionService {
	return &executionService{
		coordinator: coordinator,
		catalog:     catalog,
		recs:        recs,
		logger:      logger.Named("execution"),
	}
}

var _ ExecutionService = (*executionService)(nil)

func (s *executionService) Execute(ctx context.Context, req models.ExecutionRequest) (*models.ExecutionRecord, error) {
	return s.coordinator.ExecuteUnit(ctx, req)
}

func (s *executionService) DryRun(ctx context.Context, req models.ExecutionRequest) (*Plan, error) {
	return s.coordinator.PlanUnit(ctx, req)
}

func (s *executionService) ExecuteRun(ctx context.Context, runID uuid.UUID, opts BatchOptions) (*BatchResult, error) {
	recs, err := s.recs.ListByRun(ctx, runID, opts.Limit, opts.MinSavingsPct)
	if err != nil {
		return nil, err
	}

	var reqs []models.ExecutionRequest
	for _, rec := range recs {
		if rec.RecommendedType == models.CompressionNone {
			continue
		}
		expanded, err := s.expand(ctx, rec, opts)
		if err != nil {
			// The object may have vanished since the run; its units are
			// simply not part of the batch.
			s.logger.Warn("Skipping recommendation, expansion failed",
				zap.String("object", rec.Ref.String()),
				zap.Error(err))
			continue
		}
		reqs = append(reqs, expanded...)
	}

	if len(reqs) == 0 {
		return &BatchResult{}, nil
	}

	if opts.DryRun {
		return s.planBatch(ctx, reqs), nil
	}

	s.logger.Info("Batch execution starting",
		zap.String("run_id", runID.String()),
		zap.Int("units", len(reqs)))
	return s.coordinator.ExecuteBatch(ctx, reqs), nil
}

// planBatch builds the plan for every unit without executing anything. Units
// that cannot be planned count as skipped, mirroring batch execution's
// failure isolation.
func (s *executionService) planBatch(ctx context.Context, reqs []models.ExecutionRequest) *BatchResult {
	result := &BatchResult{}
	for _, req := range reqs {
		plan, err := s.coordinator.PlanUnit(ctx, req)
		if err != nil {
			s.logger.Warn("Skipping unit, planning failed",
				zap.String("object", req.Ref.String()),
				zap.Error(err))
			result.Skipped++
			continue
		}
		result.Plans = append(result.Plans, plan)
	}
	return result
}

// expand turns one recommendation into its independent units of work. A
// partitioned table becomes one unit per partition so each partition is a
// separately executed, separately rolled-back, tablespace-preserving unit.
func (s *executionService) expand(ctx context.Context, rec *models.Recommendation, opts BatchOptions) ([]models.ExecutionRequest, error) {
	base := models.ExecutionRequest{
		Ref:           rec.Ref,
		RequestedType: rec.RecommendedType,
		Online:        opts.Online,
		Parallel:      opts.Parallel,
	}

	if rec.Ref.Kind != models.KindTable {
		return []models.ExecutionRequest{base}, nil
	}

	partitions, err := s.catalog.ListPartitions(ctx, rec.Ref.Owner, rec.Ref.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to expand partitions: %w", err)
	}
	if len(partitions) == 0 {
		return []models.ExecutionRequest{base}, nil
	}

	reqs := make([]models.ExecutionRequest, 0, len(partitions))
	for _, p := range partitions {
		req := base
		req.Ref = p.Ref
		reqs = append(reqs, req)
	}
	return reqs, nil
}
