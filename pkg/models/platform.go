package models

// PlatformKind classifies the deployment's compression capabilities.
// ADVANCED means HCC tiers are usable (Exadata or compatible storage);
// STANDARD restricts to row-level compression.
type PlatformKind string

const (
	PlatformAdvanced PlatformKind = "ADVANCED"
	PlatformStandard PlatformKind = "STANDARD"
)

// Capabilities is the resolved platform capability set. Confidence is the
// weighted agreement fraction of the contributing signals, scaled to 0..100.
type Capabilities struct {
	Platform     PlatformKind      `json:"platform"`
	Confidence   float64           `json:"confidence"`
	AllowedTypes []CompressionType `json:"allowed_types"`
}

// Allows reports whether t is usable on the resolved platform.
func (c Capabilities) Allows(t CompressionType) bool {
	for _, a := range c.AllowedTypes {
		if a == t {
			return true
		}
	}
	return false
}

// AdvancedTypes is the full compression type set, usable on ADVANCED
// platforms.
var AdvancedTypes = []CompressionType{
	CompressionNone,
	CompressionOLTP,
	CompressionQueryLow,
	CompressionQueryHigh,
	CompressionArchiveLow,
	CompressionArchiveHigh,
}

// StandardTypes is the conservative type set for STANDARD platforms.
var StandardTypes = []CompressionType{
	CompressionNone,
	CompressionOLTP,
}
