package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/adapters/target"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/apperrors"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/config"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/metrics"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/repositories"
)

// Coordinator validates, executes and audits compression units of work. It
// is stateless between units apart from the in-flight marker set; the
// durable state lives in the execution repository.
//
// Audit writes go to the advisor store, a commit boundary independent of the
// target engine: a FAILED unit still leaves a durable audit entry even
// though the DDL itself rolled back on the target side.
type Coordinator struct {
	cfg        config.CoordinatorConfig
	catalog    target.CatalogReader
	executor   target.DDLExecutor
	builder    *DDLBuilder
	executions repositories.ExecutionRepository
	metrics    *metrics.ExecutionMetrics
	logger     *zap.Logger

	// inflight enforces at most one in-flight execution per object
	// identity within this process; the store's partial unique index
	// covers multi-process deployments.
	inflight sync.Map
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(
	cfg config.CoordinatorConfig,
	catalog target.CatalogReader,
	executor target.DDLExecutor,
	builder *DDLBuilder,
	executions repositories.ExecutionRepository,
	m *metrics.ExecutionMetrics,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		catalog:    catalog,
		executor:   executor,
		builder:    builder,
		executions: executions,
		metrics:    m,
		logger:     logger.Named("coordinator"),
	}
}

// PlanUnit renders the statements for a unit without touching the target
// engine. This is the dry-run path: it produces the same artifacts as a real
// execution but issues no DDL and records nothing to the audit trail.
func (c *Coordinator) PlanUnit(ctx context.Context, req models.ExecutionRequest) (*Plan, error) {
	return c.builder.Build(ctx, req)
}

// ExecuteUnit runs one unit of work through the full state machine:
// PENDING, then exactly one of SUCCESS, FAILED or ROLLED_BACK. A non-nil
// record is always terminal; when the audit record could not be opened at
// all the record is nil and only the error is returned. Errors are
// classified with the apperrors sentinels.
func (c *Coordinator) ExecuteUnit(ctx context.Context, req models.ExecutionRequest) (*models.ExecutionRecord, error) {
	key := req.Ref.String()
	if _, loaded := c.inflight.LoadOrStore(key, struct{}{}); loaded {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrExecutionInFlight, req.Ref)
	}
	defer c.inflight.Delete(key)

	c.metrics.InFlight.Inc()
	defer c.metrics.InFlight.Dec()
	start := time.Now()
	defer func() { c.metrics.UnitDuration.Observe(time.Since(start).Seconds()) }()

	rec := &models.ExecutionRecord{
		Ref:           req.Ref,
		RequestedType: req.RequestedType,
	}

	obj, plan, err := c.preconditions(ctx, req)
	if err != nil {
		if !c.failEarly(ctx, rec, err) {
			return nil, err
		}
		return rec, err
	}

	rec.OriginalTablespace = obj.Tablespace
	rec.SizeBefore = obj.SizeBytes
	rec.DDLText = plan.DDLText()

	if err := c.executions.CreatePending(ctx, rec); err != nil {
		if errors.Is(err, apperrors.ErrExecutionInFlight) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open audit record: %w", err)
	}

	if applied, execErr := c.applyStatements(ctx, plan); execErr != nil {
		return rec, c.reverse(ctx, rec, plan, applied, execErr)
	}

	return rec, c.verifyAndFinish(ctx, rec)
}

// preconditions checks existence, the non-blocking lock probe and transient
// free space, then builds the plan. The probe never waits: a held lock is an
// immediate, caller-retryable failure.
func (c *Coordinator) preconditions(ctx context.Context, req models.ExecutionRequest) (*models.TargetObject, *Plan, error) {
	obj, err := c.catalog.GetObject(ctx, req.Ref)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrPreconditionFailed, err)
	}

	locked, err := c.catalog.ProbeLock(ctx, req.Ref)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrPreconditionFailed, err)
	}
	if locked {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrLockHeld, req.Ref)
	}

	free, err := c.catalog.TablespaceFreeBytes(ctx, obj.Tablespace)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrPreconditionFailed, err)
	}
	required := obj.SizeBytes * int64(c.cfg.FreeSpaceHeadroomPct) / 100
	if free < required {
		return nil, nil, fmt.Errorf("%w: tablespace %s has %d free bytes, need %d",
			apperrors.ErrPreconditionFailed, obj.Tablespace, free, required)
	}

	plan, err := c.builder.Build(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	return obj, plan, nil
}

// failEarly records a unit that never issued a statement. The audit entry is
// written even though nothing happened on the target engine. It reports
// whether the record was actually persisted; on false the caller must not
// hand the record out.
func (c *Coordinator) failEarly(ctx context.Context, rec *models.ExecutionRecord, cause error) bool {
	if err := c.executions.CreatePending(ctx, rec); err != nil {
		c.logger.Error("Failed to open audit record for failed unit",
			zap.String("object", rec.Ref.String()), zap.Error(err))
		return false
	}
	c.finish(ctx, rec, models.ExecutionFailed, false, cause.Error())
	return true
}

// applyStatements issues the plan's statements in order, stopping at the
// first failure. It returns how many statements were fully applied. An
// issued statement is never interrupted: execution uses a context detached
// from the caller's cancellation.
func (c *Coordinator) applyStatements(ctx context.Context, plan *Plan) (int, error) {
	execCtx := context.WithoutCancel(ctx)
	for i, stmt := range plan.Statements {
		c.logger.Info("Applying statement",
			zap.String("object", plan.Ref.String()),
			zap.Int("statement", i+1),
			zap.Int("of", len(plan.Statements)),
			zap.String("description", stmt.Description))
		if err := c.executor.Exec(execCtx, stmt.SQL); err != nil {
			return i, fmt.Errorf("statement %d/%d failed: %w", i+1, len(plan.Statements), err)
		}
	}
	return len(plan.Statements), nil
}

// reverse attempts best-effort rollback of the applied statements, newest
// first. The unit ends ROLLED_BACK only when every reversal succeeds;
// otherwise it ends FAILED with the partial-state flag, which requires
// manual remediation and is never auto-retried.
func (c *Coordinator) reverse(ctx context.Context, rec *models.ExecutionRecord, plan *Plan, applied int, cause error) error {
	execCtx := context.WithoutCancel(ctx)
	reversalFailed := false
	for i := applied - 1; i >= 0; i-- {
		stmt := plan.Statements[i]
		if stmt.Rollback == "" {
			reversalFailed = true
			continue
		}
		c.logger.Warn("Reversing statement",
			zap.String("object", plan.Ref.String()),
			zap.Int("statement", i+1),
			zap.String("description", stmt.Description))
		if err := c.executor.Exec(execCtx, stmt.Rollback); err != nil {
			c.logger.Error("Reversal failed",
				zap.String("object", plan.Ref.String()),
				zap.Int("statement", i+1),
				zap.Error(err))
			reversalFailed = true
		}
	}

	if reversalFailed {
		detail := fmt.Sprintf("%v; partial state: %d of %d statements applied, reversal incomplete",
			cause, applied, len(plan.Statements))
		c.finish(ctx, rec, models.ExecutionFailed, true, detail)
		return fmt.Errorf("%w: %v", apperrors.ErrPartialApply, cause)
	}

	c.finish(ctx, rec, models.ExecutionRolledBack, false, cause.Error())
	return cause
}

// verifyAndFinish re-reads the object, enforces the tablespace invariant and
// closes the record as SUCCESS.
func (c *Coordinator) verifyAndFinish(ctx context.Context, rec *models.ExecutionRecord) error {
	after, err := c.catalog.GetObject(ctx, rec.Ref)
	if err != nil {
		c.finish(ctx, rec, models.ExecutionFailed, false,
			fmt.Sprintf("post-execution metadata read failed: %v", err))
		return fmt.Errorf("%w: %v", apperrors.ErrMetadataUnavailable, err)
	}

	if after.Tablespace != rec.OriginalTablespace {
		// Never silently reconciled: the whole point of the design is
		// that compression preserves placement.
		detail := fmt.Sprintf("tablespace drift: was %s, now %s", rec.OriginalTablespace, after.Tablespace)
		c.finish(ctx, rec, models.ExecutionFailed, false, detail)
		return fmt.Errorf("%w: %s: %s", apperrors.ErrIntegrityViolation, rec.Ref, detail)
	}

	rec.SizeAfter = &after.SizeBytes
	if after.SizeBytes > 0 {
		ratio := float64(rec.SizeBefore) / float64(after.SizeBytes)
		rec.RealizedRatio = &ratio
	}
	c.finish(ctx, rec, models.ExecutionSuccess, false, "")

	if saved := rec.SizeBefore - after.SizeBytes; saved > 0 {
		c.metrics.BytesSaved.Add(float64(saved))
	}
	c.logger.Info("Unit succeeded",
		zap.String("object", rec.Ref.String()),
		zap.Int64("size_before", rec.SizeBefore),
		zap.Int64("size_after", after.SizeBytes))
	return nil
}

// finish writes the terminal transition. The write happens on the advisor
// store regardless of the DDL outcome; a failure to audit is logged loudly
// but does not change the unit's result.
func (c *Coordinator) finish(ctx context.Context, rec *models.ExecutionRecord, status models.ExecutionStatus, partial bool, detail string) {
	rec.Status = status
	rec.PartialState = partial
	if detail != "" {
		rec.ErrorDetail = &detail
	}

	// The audit write must survive caller cancellation too.
	if err := c.executions.Finish(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.Error("Failed to write terminal audit state",
			zap.String("object", rec.Ref.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
	c.metrics.UnitsTotal.WithLabelValues(string(status)).Inc()
}

// BatchResult is the outcome of one batch execution. Plans is populated only
// on a dry run, Records only on a real one.
type BatchResult struct {
	Records []*models.ExecutionRecord `json:"records"`
	Plans   []*Plan                   `json:"plans,omitempty"`
	Skipped int                       `json:"skipped"`
}

// ExecuteBatch runs independent units with bounded parallelism and failure
// isolation: one unit's failure never aborts its siblings. Cancellation is
// cooperative and checked before each unit starts; units already past that
// point run to their terminal state.
func (c *Coordinator) ExecuteBatch(ctx context.Context, reqs []models.ExecutionRequest) *BatchResult {
	sem := make(chan struct{}, c.cfg.MaxParallel)
	records := make([]*models.ExecutionRecord, len(reqs))
	var wg sync.WaitGroup
	skipped := 0

	for i, req := range reqs {
		if ctx.Err() != nil {
			skipped = len(reqs) - i
			c.logger.Warn("Batch cancelled",
				zap.Int("started", i),
				zap.Int("skipped", skipped))
			break
		}

		wg.Add(1)
		go func(i int, req models.ExecutionRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				records[i] = nil
				return
			}

			rec, err := c.ExecuteUnit(ctx, req)
			if err != nil {
				c.logger.Warn("Unit failed",
					zap.String("object", req.Ref.String()),
					zap.Error(err))
			}
			records[i] = rec
		}(i, req)
	}

	wg.Wait()

	// Slots left nil were cancelled after dispatch; they count as skipped.
	result := &BatchResult{}
	for _, rec := range records {
		if rec != nil {
			result.Records = append(result.Records, rec)
		}
	}
	result.Skipped = len(reqs) - len(result.Records)
	return result
}
