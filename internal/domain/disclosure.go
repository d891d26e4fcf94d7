package domain

import "time"

type DisclosureCategory string

const (
	DisclosureEarnings       DisclosureCategory = "earnings"
	DisclosureRightsOffering DisclosureCategory = "rights_offering"
	DisclosureMerger         DisclosureCategory = "merger"
	DisclosureEmbezzlement   DisclosureCategory = "embezzlement"
	DisclosureDividend       DisclosureCategory = "dividend"
	DisclosureOther          DisclosureCategory = "other"
)

// Disclosure is one regulatory filing for an instrument after classification.
type Disclosure struct {
	Code      string             `json:"code"`
	Title     string             `json:"title"`
	Link      string             `json:"link,omitempty"`
	Published time.Time          `json:"published"`
	Category  DisclosureCategory `json:"category"`
}
