package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

// Matcher evaluates strategies against scored objects. Rule sets are plain
// data loaded from the store; matching is a pure function over that data and
// never mutates it.
type Matcher struct {
	logger *zap.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(logger *zap.Logger) *Matcher {
	return &Matcher{logger: logger.Named("matcher")}
}

// Match walks the strategy's rules in ascending order and fires the first
// one whose predicate holds. First-match-wins: later rules are never
// consulted once a rule fires, regardless of priority or specificity.
//
// When the fired rule selects a type the platform does not allow, the
// matcher falls back through the fixed compatibility chain and emits the
// first allowed weaker type. The result is nil only when no rule matches;
// a fired rule always yields a recommendation, even if the chain degrades it
// all the way to NONE.
func (m *Matcher) Match(obj *models.TargetObject, score ScoreResult, strategy *models.Strategy, caps models.Capabilities) *models.Recommendation {
	for i := range strategy.Rules {
		rule := &strategy.Rules[i]
		if !rule.Predicate.Matches(obj, score.WriteRatio, score.Score) {
			continue
		}

		recommended, degraded := fallback(rule.CompressionType, caps)
		rationale := fmt.Sprintf("rule %d matched", rule.Order)
		if degraded {
			rationale = fmt.Sprintf("rule %d matched; %s not available on %s platform, fell back to %s",
				rule.Order, rule.CompressionType, caps.Platform, recommended)
			m.logger.Debug("Compression type degraded by platform capabilities",
				zap.String("object", obj.Ref.String()),
				zap.String("matched_type", string(rule.CompressionType)),
				zap.String("recommended_type", string(recommended)))
		}

		ratio := recommended.EstimatedRatio()
		ruleID := rule.ID
		return &models.Recommendation{
			Ref:                   obj.Ref,
			StrategyID:            strategy.ID,
			Score:                 score.Score,
			LowConfidence:         score.LowConfidence,
			MatchedRuleID:         &ruleID,
			RecommendedType:       recommended,
			Rationale:             rationale,
			EstimatedRatio:        ratio,
			EstimatedSavingsBytes: estimatedSavings(obj.SizeBytes, ratio),
			SizeBytes:             obj.SizeBytes,
		}
	}

	m.logger.Debug("No matching rule",
		zap.String("object", obj.Ref.String()),
		zap.String("strategy", strategy.Name))
	return nil
}

// fallback returns the strongest allowed type at or below want in the fixed
// compatibility chain. The second return reports whether a downgrade
// happened.
func fallback(want models.CompressionType, caps models.Capabilities) (models.CompressionType, bool) {
	if caps.Allows(want) {
		return want, false
	}

	start := 0
	for i, t := range models.FallbackChain {
		if t == want {
			start = i
			break
		}
	}
	for _, t := range models.FallbackChain[start:] {
		if caps.Allows(t) {
			return t, true
		}
	}

	// Chain exhausted; NONE is the floor.
	return models.CompressionNone, true
}

func estimatedSavings(sizeBytes int64, ratio float64) int64 {
	if ratio <= 1 {
		return 0
	}
	return int64(float64(sizeBytes) * (1 - 1/ratio))
}
