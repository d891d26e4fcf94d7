package inflection

import "math"

type Tier string

const (
	TierVariable   Tier = "variable"
	TierSmallNode  Tier = "small_node"
	TierMediumNode Tier = "medium_node"
	TierLargeNode  Tier = "large_node"
	TierInflection Tier = "inflection"
)

// StrengthRule names the condition under which an offset is flagged strong.
type StrengthRule string

const (
	StrengthNone                StrengthRule = ""
	StrengthCloudBullish        StrengthRule = "cloud_bullish"
	StrengthChangeAndPenetrated StrengthRule = "change_and_penetrated"
	StrengthCloudAndPenetrated  StrengthRule = "cloud_and_penetrated"
)

// OffsetRule is one row of the offset table. Offsets are counted in bars.
type OffsetRule struct {
	Offset       int          `yaml:"offset" json:"offset" validate:"required,gt=0"`
	Tier         Tier         `yaml:"tier" json:"tier" validate:"required,oneof=variable small_node medium_node large_node inflection"`
	Note         string       `yaml:"note" json:"note"`
	Warning      string       `yaml:"warning" json:"warning,omitempty"`
	Irresistible bool         `yaml:"irresistible" json:"irresistible"`
	Major        bool         `yaml:"major" json:"major"`
	Pillar       bool         `yaml:"pillar" json:"pillar"`
	Strength     StrengthRule `yaml:"strength" json:"strength,omitempty" validate:"omitempty,oneof=cloud_bullish change_and_penetrated cloud_and_penetrated"`
	MinChangePct float64      `yaml:"min_change_pct" json:"min_change_pct,omitempty"`
}

// DefaultOffsets is the built-in table. Pillar marks the offsets whose
// strength flag counts toward the trinity gate.
func DefaultOffsets() []OffsetRule {
	return []OffsetRule{
		{Offset: 9, Tier: TierVariable, Note: "conversion-line turn, first sign of a rise"},
		{Offset: 13, Tier: TierVariable, Note: "end of short correction, golden cross most likely"},
		{Offset: 26, Tier: TierSmallNode, Note: "base-line turn, entry into upward alignment", Major: true, Strength: StrengthCloudBullish},
		{Offset: 33, Tier: TierVariable, Note: "leading-span divergence, trend confirmation zone"},
		{Offset: 42, Tier: TierVariable, Note: "reversion risk, deceptive zone", Warning: "no new 60-bar high risks a return to the starting level"},
		{Offset: 51, Tier: TierMediumNode, Note: "irresistible turn, trend cannot be fought", Irresistible: true, Major: true, Pillar: true, Strength: StrengthChangeAndPenetrated, MinChangePct: 10},
		{Offset: 65, Tier: TierInflection, Note: "highest probability of a top, watch exhaustion gaps", Major: true, Warning: "heavy volume with a doji between 51 and 65 bars is a sell"},
		{Offset: 77, Tier: TierLargeNode, Note: "final large node, the trend changes character", Irresistible: true, Major: true, Pillar: true, Strength: StrengthCloudAndPenetrated, Warning: "volatility expands from here"},
		{Offset: 88, Tier: TierInflection, Note: "cloud turn is settled", Irresistible: true, Warning: "a cloud turn between 77 and 88 bars decides the direction"},
		{Offset: 100, Tier: TierInflection, Note: "long-term trend is settled"},
	}
}

func (r OffsetRule) strong(changePct float64, cloudBullish, penetrated bool) bool {
	switch r.Strength {
	case StrengthCloudBullish:
		return cloudBullish
	case StrengthChangeAndPenetrated:
		return math.Abs(changePct) > r.MinChangePct && penetrated
	case StrengthCloudAndPenetrated:
		return cloudBullish && penetrated
	default:
		return false
	}
}
