package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/apperrors"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

// ============================================================================
// Mock Implementations shared across the service tests
// ============================================================================

// timeNowFixed pins run snapshot times so scoring inputs are reproducible.
var timeNowFixed = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

type mockCatalog struct {
	objects    map[string]*models.TargetObject
	activity   map[string]*models.ActivityStats
	partitions map[string][]models.TargetObject
	indexes    map[string][]models.TargetObject
	freeBytes  map[string]int64
	locked     map[string]bool

	listErr     error
	getErr      error
	activityErr error
	probeErr    error

	mu       sync.Mutex
	getCalls int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		objects:    make(map[string]*models.TargetObject),
		activity:   make(map[string]*models.ActivityStats),
		partitions: make(map[string][]models.TargetObject),
		indexes:    make(map[string][]models.TargetObject),
		freeBytes:  make(map[string]int64),
		locked:     make(map[string]bool),
	}
}

func (m *mockCatalog) addObject(obj models.TargetObject) {
	m.objects[obj.Ref.String()] = &obj
}

func (m *mockCatalog) ListObjects(ctx context.Context, scope models.ScopeFilter) ([]models.TargetObject, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.TargetObject
	for _, obj := range m.objects {
		if obj.Ref.Kind == models.KindTable {
			out = append(out, *obj)
		}
	}
	return out, nil
}

func (m *mockCatalog) GetObject(ctx context.Context, ref models.ObjectRef) (*models.TargetObject, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	obj, ok := m.objects[ref.String()]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", ref, apperrors.ErrNotFound)
	}
	cp := *obj
	return &cp, nil
}

func (m *mockCatalog) GetActivity(ctx context.Context, ref models.ObjectRef) (*models.ActivityStats, error) {
	if m.activityErr != nil {
		return nil, m.activityErr
	}
	return m.activity[ref.String()], nil
}

func (m *mockCatalog) ListPartitions(ctx context.Context, owner, table string) ([]models.TargetObject, error) {
	return m.partitions[owner+"."+table], nil
}

func (m *mockCatalog) ListIndexes(ctx context.Context, owner, table string) ([]models.TargetObject, error) {
	return m.indexes[owner+"."+table], nil
}

func (m *mockCatalog) TablespaceFreeBytes(ctx context.Context, tablespace string) (int64, error) {
	if free, ok := m.freeBytes[tablespace]; ok {
		return free, nil
	}
	return 1 << 50, nil
}

func (m *mockCatalog) ProbeLock(ctx context.Context, ref models.ObjectRef) (bool, error) {
	if m.probeErr != nil {
		return false, m.probeErr
	}
	return m.locked[ref.String()], nil
}

func (m *mockCatalog) Close() error { return nil }

type mockExecutor struct {
	mu       sync.Mutex
	executed []string
	failOn   map[string]error // substring match against the statement
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{failOn: make(map[string]error)}
}

func (m *mockExecutor) Exec(ctx context.Context, stmt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for needle, err := range m.failOn {
		if strings.Contains(stmt, needle) {
			return err
		}
	}
	m.executed = append(m.executed, stmt)
	return nil
}

func (m *mockExecutor) Close() error { return nil }

func (m *mockExecutor) statements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.executed...)
}

type mockExecutionRepo struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*models.ExecutionRecord
	createErr error
	finishErr error
}

func newMockExecutionRepo() *mockExecutionRepo {
	return &mockExecutionRepo{records: make(map[uuid.UUID]*models.ExecutionRecord)}
}

func (m *mockExecutionRepo) CreatePending(ctx context.Context, rec *models.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.records {
		if existing.Ref == rec.Ref && existing.Status == models.ExecutionPending {
			return apperrors.ErrExecutionInFlight
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	rec.Status = models.ExecutionPending
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockExecutionRepo) Finish(ctx context.Context, rec *models.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finishErr != nil {
		return m.finishErr
	}
	existing, ok := m.records[rec.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if existing.Status != models.ExecutionPending {
		return apperrors.ErrConflict
	}
	if rec.EndedAt == nil {
		now := time.Now()
		rec.EndedAt = &now
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return rec, nil
}

func (m *mockExecutionRepo) ListByObject(ctx context.Context, owner, name string, limit int) ([]*models.ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ExecutionRecord
	for _, rec := range m.records {
		if rec.Ref.Owner == owner && rec.Ref.Name == name {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockExecutionRepo) ListRecent(ctx context.Context, limit int) ([]*models.ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ExecutionRecord
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockExecutionRepo) Statistics(ctx context.Context) (*models.CompressionStatistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.CompressionStatistics{TotalExecutions: len(m.records)}
	for _, rec := range m.records {
		switch rec.Status {
		case models.ExecutionSuccess:
			stats.Succeeded++
		case models.ExecutionFailed:
			stats.Failed++
		case models.ExecutionRolledBack:
			stats.RolledBack++
		}
	}
	return stats, nil
}

type mockStrategyRepo struct {
	strategies map[uuid.UUID]*models.Strategy
	saveErr    error
	saved      []*models.Strategy
}

func newMockStrategyRepo() *mockStrategyRepo {
	return &mockStrategyRepo{strategies: make(map[uuid.UUID]*models.Strategy)}
}

func (m *mockStrategyRepo) add(s *models.Strategy) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.strategies[s.ID] = s
}

func (m *mockStrategyRepo) Save(ctx context.Context, strategy *models.Strategy) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.add(strategy)
	m.saved = append(m.saved, strategy)
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

type mockRunRepo struct {
	runs      map[uuid.UUID]*models.AnalysisRun
	createErr error
	finishErr error
}

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{runs: make(map[uuid.UUID]*models.AnalysisRun)}
}

func (m *mockRunRepo) Create(ctx context.Context, run *models.AnalysisRun) error {
	if m.createErr != nil {
		return m.createErr
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.Status = models.RunRunning
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	m.runs[run.ID] = run
	return nil
}

func (m *mockRunRepo) Finish(ctx context.Context, run *models.AnalysisRun) error {
	if m.finishErr != nil {
		return m.finishErr
	}
	m.runs[run.ID] = run
	return nil
}

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
	mu        sync.Mutex
	recs      []*models.Recommendation
	upsertErr error
}

func newMockRecommendationRepo() *mockRecommendationRepo {
	return &mockRecommendationRepo{}
}

func (m *mockRecommendationRepo) Upsert(ctx context.Context, rec *models.Recommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	for i, existing := range m.recs {
		if existing.Ref == rec.Ref && existing.RunID == rec.RunID {
			m.recs[i] = rec
			return nil
		}
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *mockRecommendationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockRecommendationRepo) ListByRun(ctx context.Context, runID uuid.UUID, limit int, minSavingsPct float64) ([]*models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Recommendation
	for _, rec := range m.recs {
		if rec.RunID != runID {
			continue
		}
		if rec.SizeBytes > 0 && float64(rec.EstimatedSavingsBytes)/float64(rec.SizeBytes)*100 < minSavingsPct {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockRecommendationRepo) ListByObject(ctx context.Context, owner, name string) ([]*models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Recommendation
	for _, rec := range m.recs {
		if rec.Ref.Owner == owner && rec.Ref.Name == name {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockRecommendationRepo) SavingsByStrategy(ctx context.Context) ([]*models.StrategySavings, error) {
	return nil, nil
}

type mockProber struct {
	vendor     string
	vendorErr  error
	banner     string
	bannerErr  error
	option     bool
	optionErr  error
}

func (m *mockProber) StorageVendor(ctx context.Context) (string, error) {
	return m.vendor, m.vendorErr
}

func (m *mockProber) EditionBanner(ctx context.Context) (string, error) {
	return m.banner, m.bannerErr
}

func (m *mockProber) CompressionOption(ctx context.Context) (bool, error) {
	return m.option, m.optionErr
}
