package models

import (
	"fmt"
	"time"
)

// ObjectKind identifies the kind of database object subject to compression.
type ObjectKind string

const (
	KindTable     ObjectKind = "TABLE"
	KindIndex     ObjectKind = "INDEX"
	KindPartition ObjectKind = "PARTITION"
	KindLOB       ObjectKind = "LOB"
)

// ObjectRef is the identity of a target object. PartitionName names the
// sub-object when present: the partition for PARTITION refs, the LOB column
// for LOB refs. It is empty otherwise.
type ObjectRef struct {
	Owner         string     `json:"owner"`
	Name          string     `json:"name"`
	Kind          ObjectKind `json:"kind"`
	PartitionName string     `json:"partition_name,omitempty"`
}

// String renders the reference in OWNER.NAME[:PARTITION] form for logs and
// single-flight keys.
func (r ObjectRef) String() string {
	if r.PartitionName != "" {
		return fmt.Sprintf("%s.%s:%s(%s)", r.Owner, r.Name, r.PartitionName, r.Kind)
	}
	return fmt.Sprintf("%s.%s(%s)", r.Owner, r.Name, r.Kind)
}

// TargetObject is a read-only snapshot of one object's catalog metadata,
// taken at the start of an analysis run.
type TargetObject struct {
	Ref                ObjectRef       `json:"ref"`
	SizeBytes          int64           `json:"size_bytes"`
	Tablespace         string          `json:"tablespace"`
	PartitionKey       string          `json:"partition_key,omitempty"`
	CurrentCompression CompressionType `json:"current_compression"`
	NumRows            int64           `json:"num_rows"`
}

// ActivityStats holds write-activity counters for one object, derived per
// analysis run. Stats may be missing for an object; absence means zero
// confidence, never an error.
type ActivityStats struct {
	Ref          ObjectRef `json:"ref"`
	Inserts      int64     `json:"inserts"`
	Updates      int64     `json:"updates"`
	Deletes      int64     `json:"deletes"`
	LastModified time.Time `json:"last_modified"`
}

// WriteRatio is the fraction of destructive writes among all writes. The
// denominator is guarded so objects with no recorded activity compute 0.
func (s *ActivityStats) WriteRatio() float64 {
	return float64(s.Updates+s.Deletes) / float64(s.Inserts+s.Updates+s.Deletes+1)
}
