package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/apperrors"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/database"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

// RunRepository provides data access for analysis runs.
type RunRepository interface {
	// Create inserts a new RUNNING analysis run.
	Create(ctx context.Context, run *models.AnalysisRun) error

	// Finish writes the run's terminal status and summary counters.
	Finish(ctx context.Context, run *models.AnalysisRun) error

	// GetByID returns one run.
	GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error)

	// Latest returns the most recently started run.
	Latest(ctx context.Context) (*models.AnalysisRun, error)
}

type runRepository struct {
	db *database.DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *database.DB) RunRepository {
	return &runRepository{db: db}
}

var _ RunRepository = (*runRepository)(nil)

func (r *runRepository) Create(ctx context.Context, run *models.AnalysisRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = models.RunRunning

	scopeJSON, err := json.Marshal(run.Scope)
	if err != nil {
		return fmt.Errorf("failed to marshal run scope: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO comp_analysis_runs (id, strategy_id, status, scope, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.StrategyID, string(run.Status), scopeJSON, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create analysis run: %w", err)
	}

	return nil
}

func (r *runRepository) Finish(ctx context.Context, run *models.AnalysisRun) error {
	now := time.Now()
	run.CompletedAt = &now

	tag, err := r.db.Exec(ctx, `
		UPDATE comp_analysis_runs
		SET status = $2, completed_at = $3, objects_analyzed = $4,
		    candidates_found = $5, total_size_bytes = $6, estimated_savings_bytes = $7
		WHERE id = $1 AND status = $8`,
		run.ID, string(run.Status), run.CompletedAt, run.ObjectsAnalyzed,
		run.CandidatesFound, run.TotalSizeBytes, run.EstimatedSavingsBytes,
		string(models.RunRunning))
	if err != nil {
		return fmt.Errorf("failed to finish analysis run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: run %s is not running", apperrors.ErrConflict, run.ID)
	}

	return nil
}

func (r *runRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *runRepository) Latest(ctx context.Context) (*models.AnalysisRun, error) {
	return r.get(ctx, `ORDER BY started_at DESC LIMIT 1`)
}

func (r *runRepository) get(ctx context.Context, tail string, args ...any) (*models.AnalysisRun, error) {
	run := &models.AnalysisRun{}
	var status string
	var scopeJSON []byte

	err := r.db.QueryRow(ctx, `
		SELECT id, strategy_id, status, scope, started_at, completed_at,
		       objects_analyzed, candidates_found, total_size_bytes, estimated_savings_bytes
		FROM comp_analysis_runs `+tail, args...).Scan(
		&run.ID, &run.StrategyID, &status, &scopeJSON, &run.StartedAt, &run.CompletedAt,
		&run.ObjectsAnalyzed, &run.CandidatesFound, &run.TotalSizeBytes, &run.EstimatedSavingsBytes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis run: %w", err)
	}

	run.Status = models.RunStatus(status)
	if err := json.Unmarshal(scopeJSON, &run.Scope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run scope: %w", err)
	}

	return run, nil
}
