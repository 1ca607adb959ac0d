package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/apperrors"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/database"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

// ExecutionRepository provides data access for the append-only execution
// audit trail. Audit writes go through the advisor store's own connection
// pool and commit independently of anything happening on the target engine.
type ExecutionRepository interface {
	// CreatePending inserts a new PENDING record. Returns
	// apperrors.ErrExecutionInFlight when the object already has a
	// PENDING record.
	CreatePending(ctx context.Context, rec *models.ExecutionRecord) error

	// Finish transitions a PENDING record to a terminal state. Returns
	// apperrors.ErrConflict when the record is not PENDING; terminal
	// records are immutable.
	Finish(ctx context.Context, rec *models.ExecutionRecord) error

	// GetByID returns one execution record.
	GetByID(ctx context.Context, id uuid.UUID) (*models.ExecutionRecord, error)

	// ListByObject returns an object's execution history, newest first.
	ListByObject(ctx context.Context, owner, name string, limit int) ([]*models.ExecutionRecord, error)

	// ListRecent returns the most recent execution records across all
	// objects.
	ListRecent(ctx context.Context, limit int) ([]*models.ExecutionRecord, error)

	// Statistics aggregates the whole audit trail into realized
	// compression totals.
	Statistics(ctx context.Context) (*models.CompressionStatistics, error)
}

type executionRepository struct {
	db *database.DB
}

// NewExecutionRepository creates a new ExecutionRepository.
func NewExecutionRepository(db *database.DB) ExecutionRepository {
	return &executionRepository{db: db}
}

var _ ExecutionRepository = (*executionRepository)(nil)

const pgUniqueViolation = "23505"

func (r *executionRepository) CreatePending(ctx context.Context, rec *models.ExecutionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	rec.Status = models.ExecutionPending

	_, err := r.db.Exec(ctx, `
		INSERT INTO comp_executions (
			id, owner, object_name, object_kind, partition_name,
			requested_type, ddl_text, original_tablespace, status,
			size_before, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.Ref.Owner, rec.Ref.Name, string(rec.Ref.Kind), rec.Ref.PartitionName,
		string(rec.RequestedType), rec.DDLText, rec.OriginalTablespace, string(rec.Status),
		rec.SizeBefore, rec.StartedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", apperrors.ErrExecutionInFlight, rec.Ref)
		}
		return fmt.Errorf("failed to create execution record: %w", err)
	}

	return nil
}

func (r *executionRepository) Finish(ctx context.Context, rec *models.ExecutionRecord) error {
	if !rec.Status.Terminal() {
		return fmt.Errorf("%w: %q is not a terminal status", apperrors.ErrConflict, rec.Status)
	}
	if rec.EndedAt == nil {
		now := time.Now()
		rec.EndedAt = &now
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE comp_executions
		SET status = $2, partial_state = $3, size_after = $4,
		    realized_ratio = $5, error_detail = $6, ended_at = $7
		WHERE id = $1 AND status = $8`,
		rec.ID, string(rec.Status), rec.PartialState, rec.SizeAfter,
		rec.RealizedRatio, rec.ErrorDetail, rec.EndedAt,
		string(models.ExecutionPending))
	if err != nil {
		return fmt.Errorf("failed to finish execution record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: execution %s is not pending", apperrors.ErrConflict, rec.ID)
	}

	return nil
}

const executionColumns = `
	id, owner, object_name, object_kind, partition_name,
	requested_type, ddl_text, original_tablespace, status, partial_state,
	size_before, size_after, realized_ratio, error_detail, started_at, ended_at`

func (r *executionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ExecutionRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+executionColumns+` FROM comp_executions WHERE id = $1`, id)

	rec, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read execution record: %w", err)
	}
	return rec, nil
}

func (r *executionRepository) ListByObject(ctx context.Context, owner, name string, limit int) ([]*models.ExecutionRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+executionColumns+`
		FROM comp_executions
		WHERE owner = $1 AND object_name = $2
		ORDER BY started_at DESC
		LIMIT $3`, owner, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

func (r *executionRepository) ListRecent(ctx context.Context, limit int) ([]*models.ExecutionRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+executionColumns+`
		FROM comp_executions
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent executions: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

func (r *executionRepository) Statistics(ctx context.Context) (*models.CompressionStatistics, error) {
	stats := &models.CompressionStatistics{}
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'SUCCESS'),
		       COUNT(*) FILTER (WHERE status = 'FAILED'),
		       COUNT(*) FILTER (WHERE status = 'ROLLED_BACK'),
		       COALESCE(SUM(size_before) FILTER (WHERE status = 'SUCCESS'), 0),
		       COALESCE(SUM(size_after) FILTER (WHERE status = 'SUCCESS'), 0)
		FROM comp_executions`).Scan(
		&stats.TotalExecutions, &stats.Succeeded, &stats.Failed, &stats.RolledBack,
		&stats.SizeBeforeBytes, &stats.SizeAfterBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate execution statistics: %w", err)
	}

	stats.SavedBytes = stats.SizeBeforeBytes - stats.SizeAfterBytes
	if stats.SizeBeforeBytes > 0 {
		stats.SavingsPct = float64(stats.SavedBytes) / float64(stats.SizeBeforeBytes) * 100
	}
	return stats, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanExecution(row scannable) (*models.ExecutionRecord, error) {
	rec := &models.ExecutionRecord{}
	var kind, requestedType, status string
	if err := row.Scan(
		&rec.ID, &rec.Ref.Owner, &rec.Ref.Name, &kind, &rec.Ref.PartitionName,
		&requestedType, &rec.DDLText, &rec.OriginalTablespace, &status, &rec.PartialState,
		&rec.SizeBefore, &rec.SizeAfter, &rec.RealizedRatio, &rec.ErrorDetail,
		&rec.StartedAt, &rec.EndedAt); err != nil {
		return nil, err
	}
	rec.Ref.Kind = models.ObjectKind(kind)
	rec.RequestedType = models.CompressionType(requestedType)
	rec.Status = models.ExecutionStatus(status)
	return rec, nil
}

func scanExecutions(rows pgx.Rows) ([]*models.ExecutionRecord, error) {
	var recs []*models.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate execution rows: %w", err)
	}
	return recs, nil
}
