package models

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// Strategy is a named, ordered rule set mapping object characteristics to a
// recommended compression type. Rule sets are configuration data: they are
// loaded once per run and never mutated during matching.
type Strategy struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	Rules       []Rule    `json:"rules"`
}

// Rule is one entry of a strategy's ordered rule table. Matching is
// first-match-wins in ascending Order.
type Rule struct {
	ID              uuid.UUID       `json:"id"`
	Order           int             `json:"order"`
	Predicate       Predicate       `json:"predicate"`
	CompressionType CompressionType `json:"compression_type"`
	Priority        int             `json:"priority"`
}

// Predicate is a conjunction of optional conditions. A zero field means the
// condition is not part of the conjunction. All present conditions must hold
// for the predicate to match.
type Predicate struct {
	MinSizeBytes  int64        `json:"min_size_bytes,omitempty" yaml:"min_size_bytes"`
	MaxSizeBytes  int64        `json:"max_size_bytes,omitempty" yaml:"max_size_bytes"`
	MaxWriteRatio float64      `json:"max_write_ratio,omitempty" yaml:"max_write_ratio"`
	MinWriteRatio float64      `json:"min_write_ratio,omitempty" yaml:"min_write_ratio"`
	MinScore      float64      `json:"min_score,omitempty" yaml:"min_score"`
	ObjectKinds   []ObjectKind `json:"object_kinds,omitempty" yaml:"object_kinds"`
	NamePattern   string       `json:"name_pattern,omitempty" yaml:"name_pattern"`
}

// Matches evaluates the conjunction against one scored object.
func (p Predicate) Matches(obj *TargetObject, writeRatio, score float64) bool {
	if p.MinSizeBytes > 0 && obj.SizeBytes < p.MinSizeBytes {
		return false
	}
	if p.MaxSizeBytes > 0 && obj.SizeBytes > p.MaxSizeBytes {
		return false
	}
	if p.MaxWriteRatio > 0 && writeRatio > p.MaxWriteRatio {
		return false
	}
	if p.MinWriteRatio > 0 && writeRatio < p.MinWriteRatio {
		return false
	}
	if p.MinScore > 0 && score < p.MinScore {
		return false
	}
	if len(p.ObjectKinds) > 0 {
		found := false
		for _, k := range p.ObjectKinds {
			if k == obj.Ref.Kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if p.NamePattern != "" {
		matched, err := path.Match(strings.ToUpper(p.NamePattern), strings.ToUpper(obj.Ref.Name))
		if err != nil || !matched {
			return false
		}
	}
	return true
}
