package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/apperrors"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/services"
)

// ============================================================================
// Mock Implementations for Handler Tests
// ============================================================================

type mockAnalysisService struct {
	run        *models.AnalysisRun
	runErr     error
	compared   []*models.Recommendation
	compareErr error
}

func (m *mockAnalysisService) RunAnalysis(ctx context.Context, scope models.ScopeFilter, strategyID uuid.UUID) (*models.AnalysisRun, error) {
	if m.runErr != nil {
		return nil, m.runErr
	}
	return m.run, nil
}

func (m *mockAnalysisService) CompareStrategies(ctx context.Context, owner, name string) ([]*models.Recommendation, error) {
	if m.compareErr != nil {
		return nil, m.compareErr
	}
	return m.compared, nil
}

type mockExecutionService struct {
	record     *models.ExecutionRecord
	executeErr error
	plan       *services.Plan
	planErr    error
	batch      *services.BatchResult
	batchErr   error

	lastRequest models.ExecutionRequest
}

func (m *mockExecutionService) Execute(ctx context.Context, req models.ExecutionRequest) (*models.ExecutionRecord, error) {
	m.lastRequest = req
	if m.executeErr != nil && m.record == nil {
		return nil, m.executeErr
	}
	return m.record, m.executeErr
}

func (m *mockExecutionService) DryRun(ctx context.Context, req models.ExecutionRequest) (*services.Plan, error) {
	m.lastRequest = req
	if m.planErr != nil {
		return nil, m.planErr
	}
	return m.plan, nil
}

func (m *mockExecutionService) ExecuteRun(ctx context.Context, runID uuid.UUID, opts services.BatchOptions) (*services.BatchResult, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	return m.batch, nil
}

type mockRunRepo struct {
	runs map[uuid.UUID]*models.AnalysisRun
}

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{runs: make(map[uuid.UUID]*models.AnalysisRun)}
}

func (m *mockRunRepo) Create(ctx context.Context, run *models.AnalysisRun) error { return nil }
func (m *mockRunRepo) Finish(ctx context.Context, run *models.AnalysisRun) error { return nil }

func (m *mockRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return run, nil
}

func (m *mockRunRepo) Latest(ctx context.Context) (*models.AnalysisRun, error) {
	var latest *models.AnalysisRun
	for _, run := range m.runs {
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	return latest, nil
}

type mockRecommendationRepo struct {
	recs    []*models.Recommendation
	listErr error
	savings []*models.StrategySavings
}

func (m *mockRecommendationRepo) Upsert(ctx context.Context, rec *models.Recommendation) error {
	m.recs = append(m.recs, rec)
	return nil
}

func (m *mockRecommendationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Recommendation, error) {
	for _, rec := range m.recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockRecommendationRepo) ListByRun(ctx context.Context, runID uuid.UUID, limit int, minSavingsPct float64) ([]*models.Recommendation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.recs, nil
}

func (m *mockRecommendationRepo) ListByObject(ctx context.Context, owner, name string) ([]*models.Recommendation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.recs, nil
}

func (m *mockRecommendationRepo) SavingsByStrategy(ctx context.Context) ([]*models.StrategySavings, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.savings, nil
}

type mockStrategyRepo struct {
	strategies map[uuid.UUID]*models.Strategy
}

func newMockStrategyRepo() *mockStrategyRepo {
	return &mockStrategyRepo{strategies: make(map[uuid.UUID]*models.Strategy)}
}

func (m *mockStrategyRepo) Save(ctx context.Context, s *models.Strategy) error {
	m.strategies[s.ID] = s
	return nil
}

func (m *mockStrategyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Strategy, error) {
	s, ok := m.strategies[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return s, nil
}

func (m *mockStrategyRepo) GetByName(ctx context.Context, name string) (*models.Strategy, error) {
	for _, s := range m.strategies {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockStrategyRepo) ListActive(ctx context.Context) ([]*models.Strategy, error) {
	var out []*models.Strategy
	for _, s := range m.strategies {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockExecutionRepo struct {
	records map[uuid.UUID]*models.ExecutionRecord
}

func newMockExecutionRepo() *mockExecutionRepo {
	return &mockExecutionRepo{records: make(map[uuid.UUID]*models.ExecutionRecord)}
}

func (m *mockExecutionRepo) CreatePending(ctx context.Context, rec *models.ExecutionRecord) error {
	return nil
}

func (m *mockExecutionRepo) Finish(ctx context.Context, rec *models.ExecutionRecord) error {
	return nil
}

func (m *mockExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ExecutionRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return rec, nil
}

func (m *mockExecutionRepo) ListByObject(ctx context.Context, owner, name string, limit int) ([]*models.ExecutionRecord, error) {
	var out []*models.ExecutionRecord
	for _, rec := range m.records {
		if rec.Ref.Owner == owner && rec.Ref.Name == name {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockExecutionRepo) ListRecent(ctx context.Context, limit int) ([]*models.ExecutionRecord, error) {
	var out []*models.ExecutionRecord
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockExecutionRepo) Statistics(ctx context.Context) (*models.CompressionStatistics, error) {
	stats := &models.CompressionStatistics{}
	for _, rec := range m.records {
		stats.TotalExecutions++
		switch rec.Status {
		case models.ExecutionSuccess:
			stats.Succeeded++
			stats.SizeBeforeBytes += rec.SizeBefore
			if rec.SizeAfter != nil {
				stats.SizeAfterBytes += *rec.SizeAfter
			}
		case models.ExecutionFailed:
			stats.Failed++
		case models.ExecutionRolledBack:
			stats.RolledBack++
		}
	}
	stats.SavedBytes = stats.SizeBeforeBytes - stats.SizeAfterBytes
	if stats.SizeBeforeBytes > 0 {
		stats.SavingsPct = float64(stats.SavedBytes) / float64(stats.SizeBeforeBytes) * 100
	}
	return stats, nil
}
