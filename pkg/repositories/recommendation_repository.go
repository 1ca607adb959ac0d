package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/apperrors"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/database"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

// RecommendationRepository provides data access for persisted
// recommendations. Reporting layers read these rows as-is and never
// re-derive scores.
type RecommendationRepository interface {
	// Upsert writes one recommendation keyed by (object identity, run).
	// Concurrent writers for the same key resolve last-write-wins.
	Upsert(ctx context.Context, rec *models.Recommendation) error

	// GetByID returns one recommendation or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recommendation, error)

	// ListByRun returns a run's recommendations ordered by score
	// descending, ties broken by object identity. minSavingsPct filters
	// out candidates saving less than that share of their size.
	ListByRun(ctx context.Context, runID uuid.UUID, limit int, minSavingsPct float64) ([]*models.Recommendation, error)

	// ListByObject returns all historical recommendations for one object,
	// newest runs first.
	ListByObject(ctx context.Context, owner, name string) ([]*models.Recommendation, error)

	// SavingsByStrategy aggregates each strategy's most recent completed
	// run into comparable candidate counts and estimated savings.
	SavingsByStrategy(ctx context.Context) ([]*models.StrategySavings, error)
}

type recommendationRepository struct {
	db *database.DB
}

// NewRecommendationRepository creates a new RecommendationRepository.
func NewRecommendationRepository(db *database.DB) RecommendationRepository {
	return &recommendationRepository{db: db}
}

var _ RecommendationRepository = (*recommendationRepository)(nil)

func (r *recommendationRepository) Upsert(ctx context.Context, rec *models.Recommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO comp_recommendations (
			id, owner, object_name, object_kind, partition_name,
			strategy_id, run_id, score, low_confidence, matched_rule_id,
			recommended_type, rationale, estimated_ratio, estimated_savings_bytes,
			size_bytes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (owner, object_name, object_kind, partition_name, run_id) DO UPDATE
		SET score = EXCLUDED.score,
		    low_confidence = EXCLUDED.low_confidence,
		    matched_rule_id = EXCLUDED.matched_rule_id,
		    recommended_type = EXCLUDED.recommended_type,
		    rationale = EXCLUDED.rationale,
		    estimated_ratio = EXCLUDED.estimated_ratio,
		    estimated_savings_bytes = EXCLUDED.estimated_savings_bytes,
		    size_bytes = EXCLUDED.size_bytes,
		    created_at = EXCLUDED.created_at`,
		rec.ID, rec.Ref.Owner, rec.Ref.Name, string(rec.Ref.Kind), rec.Ref.PartitionName,
		rec.StrategyID, rec.RunID, rec.Score, rec.LowConfidence, rec.MatchedRuleID,
		string(rec.RecommendedType), rec.Rationale, rec.EstimatedRatio, rec.EstimatedSavingsBytes,
		rec.SizeBytes, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert recommendation: %w", err)
	}

	return nil
}

func (r *recommendationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recommendation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+recommendationColumns+`
		FROM comp_recommendations
		WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecommendations(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("recommendation %s: %w", id, apperrors.ErrNotFound)
	}
	return recs[0], nil
}

const recommendationColumns = `
	id, owner, object_name, object_kind, partition_name,
	strategy_id, run_id, score, low_confidence, matched_rule_id,
	recommended_type, rationale, estimated_ratio, estimated_savings_bytes,
	size_bytes, created_at`

func (r *recommendationRepository) ListByRun(ctx context.Context, runID uuid.UUID, limit int, minSavingsPct float64) ([]*models.Recommendation, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+recommendationColumns+`
		FROM comp_recommendations
		WHERE run_id = $1
		  AND size_bytes > 0
		  AND estimated_savings_bytes::float / size_bytes * 100 >= $2
		ORDER BY score DESC, owner, object_name, partition_name
		LIMIT $3`, runID, minSavingsPct, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	defer rows.Close()

	return scanRecommendations(rows)
}

func (r *recommendationRepository) ListByObject(ctx context.Context, owner, name string) ([]*models.Recommendation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+recommendationColumns+`
		FROM comp_recommendations
		WHERE owner = $1 AND object_name = $2
		ORDER BY created_at DESC`, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list object recommendations: %w", err)
	}
	defer rows.Close()

	return scanRecommendations(rows)
}

func (r *recommendationRepository) SavingsByStrategy(ctx context.Context) ([]*models.StrategySavings, error) {
	// Repeated runs of one strategy would double-count, so each strategy
	// contributes only its newest completed run.
	rows, err := r.db.Query(ctx, `
		WITH latest_run AS (
			SELECT DISTINCT ON (strategy_id) strategy_id, id
			FROM comp_analysis_runs
			WHERE status = 'COMPLETED'
			ORDER BY strategy_id, started_at DESC
		)
		SELECT s.id, s.name, lr.id, COUNT(rec.id),
		       COALESCE(SUM(rec.size_bytes), 0),
		       COALESCE(SUM(rec.estimated_savings_bytes), 0)
		FROM latest_run lr
		JOIN comp_strategies s ON s.id = lr.strategy_id
		JOIN comp_recommendations rec ON rec.run_id = lr.id
		WHERE rec.recommended_type != 'NONE'
		GROUP BY s.id, s.name, lr.id
		ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate savings by strategy: %w", err)
	}
	defer rows.Close()

	var savings []*models.StrategySavings
	for rows.Next() {
		sv := &models.StrategySavings{}
		if err := rows.Scan(&sv.StrategyID, &sv.StrategyName, &sv.RunID,
			&sv.Candidates, &sv.SizeBytes, &sv.EstimatedSavingsBytes); err != nil {
			return nil, fmt.Errorf("failed to scan savings row: %w", err)
		}
		if sv.SizeBytes > 0 {
			sv.AvgSavingsPct = float64(sv.EstimatedSavingsBytes) / float64(sv.SizeBytes) * 100
		}
		savings = append(savings, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate savings rows: %w", err)
	}
	return savings, nil
}

func scanRecommendations(rows pgx.Rows) ([]*models.Recommendation, error) {
	var recs []*models.Recommendation
	for rows.Next() {
		rec := &models.Recommendation{}
		var kind, recommendedType string
		if err := rows.Scan(
			&rec.ID, &rec.Ref.Owner, &rec.Ref.Name, &kind, &rec.Ref.PartitionName,
			&rec.StrategyID, &rec.RunID, &rec.Score, &rec.LowConfidence, &rec.MatchedRuleID,
			&recommendedType, &rec.Rationale, &rec.EstimatedRatio, &rec.EstimatedSavingsBytes,
			&rec.SizeBytes, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		rec.Ref.Kind = models.ObjectKind(kind)
		rec.RecommendedType = models.CompressionType(recommendedType)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recommendation rows: %w", err)
	}
	return recs, nil
}
