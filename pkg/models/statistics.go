package models

import "github.com/google/uuid"

// CompressionStatistics summarizes realized outcomes across the execution
// audit trail. The size sums cover successful units only, so SavedBytes is
// space actually reclaimed rather than an estimate.
type CompressionStatistics struct {
	TotalExecutions int `json:"total_executions"`
	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	RolledBack      int `json:"rolled_back"`

	SizeBeforeBytes int64   `json:"size_before_bytes"`
	SizeAfterBytes  int64   `json:"size_after_bytes"`
	SavedBytes      int64   `json:"saved_bytes"`
	SavingsPct      float64 `json:"savings_pct"`
}

// StrategySavings aggregates one strategy's most recent completed run into
// totals comparable across strategies.
type StrategySavings struct {
	StrategyID            uuid.UUID `json:"strategy_id"`
	StrategyName          string    `json:"strategy_name"`
	RunID                 uuid.UUID `json:"run_id"`
	Candidates            int       `json:"candidates"`
	SizeBytes             int64     `json:"size_bytes"`
	EstimatedSavingsBytes int64     `json:"estimated_savings_bytes"`
	AvgSavingsPct         float64   `json:"avg_savings_pct"`
}
