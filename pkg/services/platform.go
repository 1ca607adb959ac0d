package services

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/adapters/target"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

// Signal is one independent environment probe contributing a weighted vote
// to platform resolution. A probe that fails or cannot decide contributes
// weight 0 and never aborts resolution.
type Signal struct {
	Name   string
	Weight float64
	Probe  func(ctx context.Context) (models.PlatformKind, error)
}

// PlatformResolver determines which compression types are usable in the
// current deployment. The result is computed once per process lifetime and
// cached; callers needing freshness use Refresh.
type PlatformResolver struct {
	signals []Signal
	logger  *zap.Logger

	mu     sync.Mutex
	cached *models.Capabilities
}

// NewPlatformResolver creates a resolver over the given signals.
func NewPlatformResolver(signals []Signal, logger *zap.Logger) *PlatformResolver {
	return &PlatformResolver{signals: signals, logger: logger.Named("platform")}
}

// Resolve returns the cached capability set, resolving it on first use.
func (r *PlatformResolver) Resolve(ctx context.Context) models.Capabilities {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached == nil {
		caps := r.resolve(ctx)
		r.cached = &caps
	}
	return *r.cached
}

// Refresh discards the cached result and re-resolves.
func (r *PlatformResolver) Refresh(ctx context.Context) models.Capabilities {
	r.mu.Lock()
	defer r.mu.Unlock()

	caps := r.resolve(ctx)
	r.cached = &caps
	return caps
}

func (r *PlatformResolver) resolve(ctx context.Context) models.Capabilities {
	var advancedWeight, standardWeight float64

	for _, sig := range r.signals {
		vote, err := sig.Probe(ctx)
		if err != nil {
			// Inconclusive, weight 0.
			r.logger.Warn("Platform signal probe failed",
				zap.String("signal", sig.Name),
				zap.Error(err))
			continue
		}
		switch vote {
		case models.PlatformAdvanced:
			advancedWeight += sig.Weight
		case models.PlatformStandard:
			standardWeight += sig.Weight
		}
		r.logger.Debug("Platform signal voted",
			zap.String("signal", sig.Name),
			zap.String("vote", string(vote)),
			zap.Float64("weight", sig.Weight))
	}

	total := advancedWeight + standardWeight
	if total == 0 {
		// Every probe inconclusive: assume the conservative platform so
		// we never recommend unavailable types.
		r.logger.Warn("All platform signals inconclusive, assuming STANDARD")
		return models.Capabilities{
			Platform:     models.PlatformStandard,
			Confidence:   0,
			AllowedTypes: models.StandardTypes,
		}
	}

	caps := models.Capabilities{}
	if advancedWeight > standardWeight {
		caps.Platform = models.PlatformAdvanced
		caps.Confidence = advancedWeight / total * 100
		caps.AllowedTypes = models.AdvancedTypes
	} else {
		caps.Platform = models.PlatformStandard
		caps.Confidence = standardWeight / total * 100
		caps.AllowedTypes = models.StandardTypes
	}

	r.logger.Info("Platform resolved",
		zap.String("platform", string(caps.Platform)),
		zap.Float64("confidence", caps.Confidence))
	return caps
}

// OracleSignals builds the standard signal set over an Oracle prober:
// storage vendor, edition banner and the advanced compression option, each
// equally weighted.
func OracleSignals(prober target.PlatformProber) []Signal {
	return []Signal{
		{
			Name:   "storage_vendor",
			Weight: 1,
			Probe: func(ctx context.Context) (models.PlatformKind, error) {
				vendor, err := prober.StorageVendor(ctx)
				if err != nil {
					return "", err
				}
				if vendor == "EXADATA" || vendor == "ZFSSA" {
					return models.PlatformAdvanced, nil
				}
				return models.PlatformStandard, nil
			},
		},
		{
			Name:   "edition_banner",
			Weight: 1,
			Probe: func(ctx context.Context) (models.PlatformKind, error) {
				banner, err := prober.EditionBanner(ctx)
				if err != nil {
					return "", err
				}
				if strings.Contains(banner, "Enterprise Edition") {
					return models.PlatformAdvanced, nil
				}
				return models.PlatformStandard, nil
			},
		},
		{
			Name:   "compression_option",
			Weight: 1,
			Probe: func(ctx context.Context) (models.PlatformKind, error) {
				enabled, err := prober.CompressionOption(ctx)
				if err != nil {
					return "", err
				}
				if enabled {
					return models.PlatformAdvanced, nil
				}
				return models.PlatformStandard, nil
			},
		},
	}
}
