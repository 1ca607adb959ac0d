package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/services"
)

func newExecutionMux(svc *mockExecutionService, execs *mockExecutionRepo, recs *mockRecommendationRepo) *http.ServeMux {
	mux := http.NewServeMux()
	NewExecutionHandler(svc, execs, recs, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestExecutionHandler_Execute(t *testing.T) {
	ref := models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindTable}
	svc := &mockExecutionService{record: &models.ExecutionRecord{
		ID:     uuid.New(),
		Ref:    ref,
		Status: models.ExecutionSuccess,
	}}
	mux := newExecutionMux(svc, newMockExecutionRepo(), &mockRecommendationRepo{})

	body, _ := json.Marshal(map[string]any{
		"ref":            ref,
		"requested_type": "QUERY HIGH",
		"online":         true,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/executions", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, models.CompressionQueryHigh, svc.lastRequest.RequestedType)
	assert.True(t, svc.lastRequest.Online)

	var got models.ExecutionRecord
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, models.ExecutionSuccess, got.Status)
}

func TestExecutionHandler_ExecuteByRecommendationID(t *testing.T) {
	ref := models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindPartition, PartitionName: "P1"}
	recs := &mockRecommendationRepo{}
	rec := &models.Recommendation{
		ID:              uuid.New(),
		Ref:             ref,
		RecommendedType: models.CompressionArchiveLow,
	}
	recs.recs = append(recs.recs, rec)
	svc := &mockExecutionService{record: &models.ExecutionRecord{Ref: ref, Status: models.ExecutionSuccess}}
	mux := newExecutionMux(svc, newMockExecutionRepo(), recs)

	body, _ := json.Marshal(map[string]any{"recommendation_id": rec.ID})
	req := httptest.NewRequest(http.MethodPost, "/api/executions", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, ref, svc.lastRequest.Ref)
	assert.Equal(t, models.CompressionArchiveLow, svc.lastRequest.RequestedType,
		"the recommendation's type is used when the request does not override it")
}

func TestExecutionHandler_ExecuteValidation(t *testing.T) {
	mux := newExecutionMux(&mockExecutionService{}, newMockExecutionRepo(), &mockRecommendationRepo{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{oops", http.StatusBadRequest},
		{"no unit named", "{}", http.StatusBadRequest},
		{"incomplete ref", `{"ref":{"owner":"SALES"},"requested_type":"OLTP"}`, http.StatusBadRequest},
		{"unknown type", `{"ref":{"owner":"SALES","name":"T","kind":"TABLE"},"requested_type":"LZ4"}`, http.StatusBadRequest},
		{"unknown recommendation", `{"recommendation_id":"4fa0ecf2-1173-44bf-8a28-61d0f8b356f8"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/executions", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestExecutionHandler_DryRun(t *testing.T) {
	svc := &mockExecutionService{plan: &services.Plan{
		Ref:        models.ObjectRef{Owner: "SALES", Name: "ORDERS", Kind: models.KindTable},
		Tablespace: "SALES_DATA",
		Statements: []services.Statement{{SQL: "ALTER TABLE SALES.ORDERS MOVE TABLESPACE SALES_DATA COMPRESS FOR QUERY HIGH"}},
	}}
	mux := newExecutionMux(svc, newMockExecutionRepo(), &mockRecommendationRepo{})

	body := `{"ref":{"owner":"SALES","name":"ORDERS","kind":"TABLE"},"requested_type":"QUERY HIGH","dry_run":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/executions", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got services.Plan
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Len(t, got.Statements, 1)
	assert.Contains(t, got.Statements[0].SQL, "COMPRESS FOR QUERY HIGH")
}

func TestExecutionHandler_Batch(t *testing.T) {
	svc := &mockExecutionService{batch: &services.BatchResult{
		Records: []*models.ExecutionRecord{
			{Status: models.ExecutionSuccess},
			{Status: models.ExecutionFailed},
		},
	}}
	mux := newExecutionMux(svc, newMockExecutionRepo(), &mockRecommendationRepo{})

	body, _ := json.Marshal(map[string]any{"run_id": uuid.New(), "min_savings_pct": 20})
	req := httptest.NewRequest(http.MethodPost, "/api/executions/batch", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got services.BatchResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Len(t, got.Records, 2)
}

func TestExecutionHandler_BatchRequiresRunID(t *testing.T) {
	mux := newExecutionMux(&mockExecutionService{}, newMockExecutionRepo(), &mockRecommendationRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/executions/batch", bytes.NewBufferString("{}"))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExecutionHandler_Get(t *testing.T) {
	execs := newMockExecutionRepo()
	rec := &models.ExecutionRecord{ID: uuid.New(), Status: models.ExecutionRolledBack}
	execs.records[rec.ID] = rec
	mux := newExecutionMux(&mockExecutionService{}, execs, &mockRecommendationRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/executions/"+rec.ID.String(), nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.ExecutionRecord
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, models.ExecutionRolledBack, got.Status)
}
