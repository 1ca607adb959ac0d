package services

import (
	"math"
	"time"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/config"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

// neutralWriteRatio substitutes for objects with no recorded activity.
const neutralWriteRatio = 0.5

// ScoreResult is the outcome of scoring one object. Score is the normalized
// 0-100 hotness measure; higher means a better compression candidate.
// LowConfidence marks objects scored without activity stats.
type ScoreResult struct {
	Score         float64 `json:"score"`
	WriteRatio    float64 `json:"write_ratio"`
	LowConfidence bool    `json:"low_confidence"`
}

// Scorer computes hotness scores. The blend weights come from configuration
// and are validated to sum to 1 at load time. Scoring is pure: identical
// inputs always produce identical output. The snapshot time is an input, not
// a clock read, so re-scoring a snapshot reproduces the original result.
type Scorer struct {
	cfg config.ScoringConfig
}

// NewScorer creates a Scorer with the given weights.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score blends a logarithmic size term, an inverse-write-ratio term and a
// recency-decay term. stats may be nil; the object is then scored with a
// neutral midpoint write ratio and flagged low-confidence.
func (s *Scorer) Score(obj *models.TargetObject, stats *models.ActivityStats, snapshotAt time.Time) ScoreResult {
	result := ScoreResult{}

	if stats == nil {
		result.WriteRatio = neutralWriteRatio
		result.LowConfidence = true
	} else {
		result.WriteRatio = stats.WriteRatio()
	}

	sizeTerm := s.sizeTerm(obj.SizeBytes)
	stabilityTerm := 1 - result.WriteRatio
	recencyTerm := s.recencyTerm(stats, snapshotAt)

	score := 100 * (s.cfg.SizeWeight*sizeTerm +
		s.cfg.StabilityWeight*stabilityTerm +
		s.cfg.RecencyWeight*recencyTerm)

	result.Score = clamp(score, 0, 100)
	return result
}

// sizeTerm grows logarithmically with object size and saturates at the
// configured reference size.
func (s *Scorer) sizeTerm(sizeBytes int64) float64 {
	if sizeBytes <= 1 {
		return 0
	}
	term := math.Log10(float64(sizeBytes)) / math.Log10(float64(s.cfg.ReferenceSizeBytes))
	return clamp(term, 0, 1)
}

// recencyTerm measures staleness with half-life decay: an object unmodified
// for one half-life earns 0.5, older objects approach 1. Missing stats earn
// the neutral midpoint.
func (s *Scorer) recencyTerm(stats *models.ActivityStats, snapshotAt time.Time) float64 {
	if stats == nil || stats.LastModified.IsZero() {
		return neutralWriteRatio
	}
	ageDays := snapshotAt.Sub(stats.LastModified).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return 1 - math.Pow(0.5, ageDays/s.cfg.HalfLifeDays)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
