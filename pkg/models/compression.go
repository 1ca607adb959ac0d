package models

// CompressionType identifies a compression setting supported by the managed
// database engine. The HCC tiers (QUERY/ARCHIVE) require ADVANCED platform
// support; OLTP row compression and NONE are always available.
type CompressionType string

const (
	CompressionNone        CompressionType = "NONE"
	CompressionOLTP        CompressionType = "OLTP"
	CompressionQueryLow    CompressionType = "QUERY LOW"
	CompressionQueryHigh   CompressionType = "QUERY HIGH"
	CompressionArchiveLow  CompressionType = "ARCHIVE LOW"
	CompressionArchiveHigh CompressionType = "ARCHIVE HIGH"
)

// FallbackChain is the fixed compatibility chain, strongest first. When a
// matched type is not allowed on the current platform, the matcher walks this
// chain from the matched type toward weaker types and emits the first allowed
// entry.
var FallbackChain = []CompressionType{
	CompressionArchiveHigh,
	CompressionArchiveLow,
	CompressionQueryHigh,
	CompressionQueryLow,
	CompressionOLTP,
	CompressionNone,
}

// estimatedRatios holds the planning-time compression ratio estimates per
// type. Realized ratios are measured after execution and recorded separately.
var estimatedRatios = map[CompressionType]float64{
	CompressionNone:        1.0,
	CompressionOLTP:        1.6,
	CompressionQueryLow:    2.5,
	CompressionQueryHigh:   4.0,
	CompressionArchiveLow:  6.0,
	CompressionArchiveHigh: 8.0,
}

// EstimatedRatio returns the planning-time compression ratio for t.
// Unknown types estimate 1.0 (no savings).
func (t CompressionType) EstimatedRatio() float64 {
	if r, ok := estimatedRatios[t]; ok {
		return r
	}
	return 1.0
}

// IsArchival reports whether t belongs to the archival HCC class.
func (t CompressionType) IsArchival() bool {
	return t == CompressionArchiveLow || t == CompressionArchiveHigh
}

// Valid reports whether t is a known compression type.
func (t CompressionType) Valid() bool {
	_, ok := estimatedRatios[t]
	return ok
}
