package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the state of one unit of work. A record transitions
// exactly once from PENDING to a terminal state. ROLLED_BACK is reachable
// only when a partially-applied composite operation's completed statements
// were themselves successfully reversed.
type ExecutionStatus string

const (
	ExecutionPending    ExecutionStatus = "PENDING"
	ExecutionSuccess    ExecutionStatus = "SUCCESS"
	ExecutionFailed     ExecutionStatus = "FAILED"
	ExecutionRolledBack ExecutionStatus = "ROLLED_BACK"
)

// Terminal reports whether s is a terminal execution state.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionSuccess || s == ExecutionFailed || s == ExecutionRolledBack
}

// ExecutionRecord is the append-only audit row for one unit of work. Once a
// terminal status is written the record is immutable.
type ExecutionRecord struct {
	ID            uuid.UUID       `json:"id"`
	Ref           ObjectRef       `json:"ref"`
	RequestedType CompressionType `json:"requested_type"`
	DDLText       string          `json:"ddl_text"`

	// OriginalTablespace is captured before execution and must equal the
	// object's tablespace read back after execution.
	OriginalTablespace string `json:"original_tablespace"`

	Status       ExecutionStatus `json:"status"`
	PartialState bool            `json:"partial_state"`
	SizeBefore   int64           `json:"size_before"`
	SizeAfter    *int64          `json:"size_after,omitempty"`
	RealizedRatio *float64       `json:"realized_ratio,omitempty"`
	ErrorDetail  *string         `json:"error_detail,omitempty"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// ExecutionRequest describes one requested unit of work.
type ExecutionRequest struct {
	Ref           ObjectRef       `json:"ref"`
	RequestedType CompressionType `json:"requested_type"`
	Online        bool            `json:"online"`
	Parallel      int             `json:"parallel"`
	DryRun        bool            `json:"dry_run"`
}
