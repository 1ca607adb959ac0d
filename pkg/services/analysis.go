package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/adapters/target"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/repositories"
)

// AnalysisService runs analysis passes over the scoped catalog objects and
// records one recommendation per object per run.
type AnalysisService interface {
	// RunAnalysis snapshots the objects in scope, scores and matches each
	// one against the strategy, and persists the recommendations. Catalog
	// read failures for single objects are skipped, never fatal to the
	// run.
	RunAnalysis(ctx context.Context, scope models.ScopeFilter, strategyID uuid.UUID) (*models.AnalysisRun, error)

	// CompareStrategies evaluates every active strategy independently
	// against one object's current snapshot. Results are never merged,
	// ranked across strategies, or persisted; callers compare them
	// client-side.
	CompareStrategies(ctx context.Context, owner, name string) ([]*models.Recommendation, error)
}

type analysisService struct {
	catalog    target.CatalogReader
	scorer     *Scorer
	matcher    *Matcher
	resolver   *PlatformResolver
	strategies repositories.StrategyRepository
	runs       repositories.RunRepository
	recs       repositories.RecommendationRepository
	logger     *zap.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(
	catalog target.CatalogReader,
	scorer *Scorer,
	matcher *Matcher,
	resolver *PlatformResolver,
	strategies repositories.StrategyRepository,
	runs repositories.RunRepository,
	recs repositories.RecommendationRepository,
	logger *zap.Logger,
) AnalysisService {
	return &analysisService{
		catalog:    catalog,
		scorer:     scorer,
		matcher:    matcher,
		resolver:   resolver,
		strategies: strategies,
		runs:       runs,
		recs:       recs,
		logger:     logger.Named("analysis"),
	}
}

var _ AnalysisService = (*analysisService)(nil)

// snapshotTime quantizes a run's start time to the UTC day. Recency decay
// has day granularity, and quantizing makes repeated runs over unchanged
// data reproduce the same scores instead of drifting with the wall clock.
func snapshotTime(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

func (s *analysisService) RunAnalysis(ctx context.Context, scope models.ScopeFilter, strategyID uuid.UUID) (*models.AnalysisRun, error) {
	strategy, err := s.strategies.GetByID(ctx, strategyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategy: %w", err)
	}

	caps := s.resolver.Resolve(ctx)

	run := &models.AnalysisRun{StrategyID: strategy.ID, Scope: scope}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	objects, err := s.catalog.ListObjects(ctx, scope)
	if err != nil {
		run.Status = models.RunFailed
		if ferr := s.runs.Finish(ctx, run); ferr != nil {
			s.logger.Error("Failed to finish run", zap.Error(ferr))
		}
		return run, fmt.Errorf("failed to snapshot catalog: %w", err)
	}

	s.logger.Info("Analysis started",
		zap.String("run_id", run.ID.String()),
		zap.String("strategy", strategy.Name),
		zap.Int("objects", len(objects)))

	snapshot := snapshotTime(run.StartedAt)

	for i := range objects {
		obj := &objects[i]

		stats, err := s.catalog.GetActivity(ctx, obj.Ref)
		if err != nil {
			// Metrics unavailable for this object: skip it, keep the
			// run going.
			s.logger.Warn("Skipping object, activity read failed",
				zap.String("object", obj.Ref.String()),
				zap.Error(err))
			continue
		}

		run.ObjectsAnalyzed++
		run.TotalSizeBytes += obj.SizeBytes

		score := s.scorer.Score(obj, stats, snapshot)
		rec := s.matcher.Match(obj, score, strategy, caps)
		if rec == nil {
			continue
		}
		rec.RunID = run.ID

		if err := s.recs.Upsert(ctx, rec); err != nil {
			s.logger.Error("Failed to persist recommendation",
				zap.String("object", obj.Ref.String()),
				zap.Error(err))
			continue
		}

		run.CandidatesFound++
		run.EstimatedSavingsBytes += rec.EstimatedSavingsBytes
	}

	run.Status = models.RunCompleted
	if err := s.runs.Finish(ctx, run); err != nil {
		return run, err
	}

	s.logger.Info("Analysis completed",
		zap.String("run_id", run.ID.String()),
		zap.Int("objects_analyzed", run.ObjectsAnalyzed),
		zap.Int("candidates_found", run.CandidatesFound),
		zap.Int64("estimated_savings_bytes", run.EstimatedSavingsBytes))
	return run, nil
}

func (s *analysisService) CompareStrategies(ctx context.Context, owner, name string) ([]*models.Recommendation, error) {
	ref := models.ObjectRef{Owner: owner, Name: name, Kind: models.KindTable}
	obj, err := s.catalog.GetObject(ctx, ref)
	if err != nil {
		return nil, err
	}

	stats, err := s.catalog.GetActivity(ctx, ref)
	if err != nil {
		// Compare with what we have; the score is flagged low-confidence.
		s.logger.Warn("Activity read failed for comparison",
			zap.String("object", ref.String()),
			zap.Error(err))
		stats = nil
	}

	strategies, err := s.strategies.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	caps := s.resolver.Resolve(ctx)
	score := s.scorer.Score(obj, stats, snapshotTime(time.Now()))

	var results []*models.Recommendation
	for _, strategy := range strategies {
		if rec := s.matcher.Match(obj, score, strategy, caps); rec != nil {
			results = append(results, rec)
		}
	}
	return results, nil
}
