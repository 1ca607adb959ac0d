package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

func TestPlatformResolver_AllSignalsAdvanced(t *testing.T) {
	prober := &mockProber{vendor: "EXADATA", banner: "Enterprise Edition Release 19.0", option: true}
	resolver := NewPlatformResolver(OracleSignals(prober), zap.NewNop())

	caps := resolver.Resolve(context.Background())

	assert.Equal(t, models.PlatformAdvanced, caps.Platform)
	assert.InDelta(t, 100.0, caps.Confidence, 1e-9)
	assert.True(t, caps.Allows(models.CompressionArchiveHigh))
}

func TestPlatformResolver_MajorityVote(t *testing.T) {
	// Two advanced votes against one standard vote.
	prober := &mockProber{vendor: "OTHER", banner: "Enterprise Edition Release 19.0", option: true}
	resolver := NewPlatformResolver(OracleSignals(prober), zap.NewNop())

	caps := resolver.Resolve(context.Background())

	assert.Equal(t, models.PlatformAdvanced, caps.Platform)
	assert.InDelta(t, 100.0*2/3, caps.Confidence, 1e-9,
		"confidence reflects the winning side's weight share")
}

func TestPlatformResolver_FailedSignalIsInconclusive(t *testing.T) {
	// One probe errors out; the remaining two agree on advanced. The
	// failure contributes weight 0 and never aborts resolution.
	prober := &mockProber{
		vendorErr: errors.New("v$cell: insufficient privileges"),
		banner:    "Enterprise Edition Release 19.0",
		option:    true,
	}
	resolver := NewPlatformResolver(OracleSignals(prober), zap.NewNop())

	caps := resolver.Resolve(context.Background())

	assert.Equal(t, models.PlatformAdvanced, caps.Platform)
	assert.InDelta(t, 100.0, caps.Confidence, 1e-9)
}

func TestPlatformResolver_AllInconclusiveAssumesStandard(t *testing.T) {
	probeErr := errors.New("connection reset")
	prober := &mockProber{vendorErr: probeErr, bannerErr: probeErr, optionErr: probeErr}
	resolver := NewPlatformResolver(OracleSignals(prober), zap.NewNop())

	caps := resolver.Resolve(context.Background())

	assert.Equal(t, models.PlatformStandard, caps.Platform)
	assert.Zero(t, caps.Confidence)
	assert.False(t, caps.Allows(models.CompressionQueryLow),
		"an unknown platform must never enable HCC tiers")
	assert.True(t, caps.Allows(models.CompressionOLTP))
}

func TestPlatformResolver_CachesUntilRefresh(t *testing.T) {
	calls := 0
	signals := []Signal{{
		Name:   "counted",
		Weight: 1,
		Probe: func(ctx context.Context) (models.PlatformKind, error) {
			calls++
			if calls == 1 {
				return models.PlatformStandard, nil
			}
			return models.PlatformAdvanced, nil
		},
	}}
	resolver := NewPlatformResolver(signals, zap.NewNop())
	ctx := context.Background()

	first := resolver.Resolve(ctx)
	second := resolver.Resolve(ctx)
	require.Equal(t, 1, calls, "Resolve must not re-probe once cached")
	assert.Equal(t, first, second)
	assert.Equal(t, models.PlatformStandard, first.Platform)

	refreshed := resolver.Refresh(ctx)
	assert.Equal(t, 2, calls)
	assert.Equal(t, models.PlatformAdvanced, refreshed.Platform)

	assert.Equal(t, refreshed, resolver.Resolve(ctx), "Refresh replaces the cached result")
	assert.Equal(t, 2, calls)
}

func TestPlatformResolver_WeightedSignals(t *testing.T) {
	// A single heavyweight standard signal outvotes two advanced ones.
	signals := []Signal{
		{Name: "heavy", Weight: 5, Probe: func(ctx context.Context) (models.PlatformKind, error) {
			return models.PlatformStandard, nil
		}},
		{Name: "a", Weight: 1, Probe: func(ctx context.Context) (models.PlatformKind, error) {
			return models.PlatformAdvanced, nil
		}},
		{Name: "b", Weight: 1, Probe: func(ctx context.Context) (models.PlatformKind, error) {
			return models.PlatformAdvanced, nil
		}},
	}
	resolver := NewPlatformResolver(signals, zap.NewNop())

	caps := resolver.Resolve(context.Background())

	assert.Equal(t, models.PlatformStandard, caps.Platform)
	assert.InDelta(t, 100.0*5/7, caps.Confidence, 1e-9)
}
