package models

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation is the outcome of matching one object against one strategy
// in one analysis run. Exactly one row exists per (object, run); historical
// runs are retained and never overwritten.
type Recommendation struct {
	ID              uuid.UUID       `json:"id"`
	Ref             ObjectRef       `json:"ref"`
	StrategyID      uuid.UUID       `json:"strategy_id"`
	RunID           uuid.UUID       `json:"run_id"`
	Score           float64         `json:"score"`
	LowConfidence   bool            `json:"low_confidence"`
	MatchedRuleID   *uuid.UUID      `json:"matched_rule_id,omitempty"`
	RecommendedType CompressionType `json:"recommended_type"`
	Rationale       string          `json:"rationale"`

	// Planning-time estimates derived from the matched type.
	EstimatedRatio        float64 `json:"estimated_ratio"`
	EstimatedSavingsBytes int64   `json:"estimated_savings_bytes"`
	SizeBytes             int64   `json:"size_bytes"`

	CreatedAt time.Time `json:"created_at"`
}

// AnalysisRun summarizes one full analysis pass over the scoped objects.
type AnalysisRun struct {
	ID          uuid.UUID  `json:"id"`
	StrategyID  uuid.UUID  `json:"strategy_id"`
	Status      RunStatus  `json:"status"`
	Scope       ScopeFilter `json:"scope"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ObjectsAnalyzed       int   `json:"objects_analyzed"`
	CandidatesFound       int   `json:"candidates_found"`
	TotalSizeBytes        int64 `json:"total_size_bytes"`
	EstimatedSavingsBytes int64 `json:"estimated_savings_bytes"`
}

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// ScopeFilter restricts which catalog objects an analysis run considers.
type ScopeFilter struct {
	Owners       []string `json:"owners,omitempty"`
	NameLike     string   `json:"name_like,omitempty"`
	MinSizeBytes int64    `json:"min_size_bytes,omitempty"`
}
