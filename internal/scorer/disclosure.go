package scorer

import "signalfuse/internal/domain"

// DisclosureScores maps each filing category to its score contribution.
var DisclosureScores = map[domain.DisclosureCategory]int{
	domain.DisclosureEarnings:       5,
	domain.DisclosureRightsOffering: -10,
	domain.DisclosureMerger:         8,
	domain.DisclosureEmbezzlement:   -15,
	domain.DisclosureDividend:       3,
}

type DisclosureResult struct {
	Result
	Events      []domain.Disclosure `json:"events"`
	HasPositive bool                `json:"has_positive"`
	HasNegative bool                `json:"has_negative"`
}

// Disclosure sums category scores for the classified filings. With no
// filings it is neutral.
func Disclosure(events []domain.Disclosure) DisclosureResult {
	res := DisclosureResult{Result: newResult(NameDisclosure), Events: events}
	if len(events) == 0 {
		res.Signal, res.Label = "NO_DISCLOSURE", "none"
		res.note("no recent disclosures")
		res.Events = []domain.Disclosure{}
		return res
	}
	for _, ev := range events {
		pts, ok := DisclosureScores[ev.Category]
		if !ok {
			continue
		}
		res.add(pts, "%s: %s", ev.Category, ev.Title)
		if pts > 0 {
			res.HasPositive = true
		} else {
			res.HasNegative = true
		}
	}
	switch {
	case res.Score > 0:
		res.Signal, res.Label = "POSITIVE_DISCLOSURE", "positive"
	case res.Score < 0:
		res.Signal, res.Label = "NEGATIVE_DISCLOSURE", "negative"
	default:
		res.Signal, res.Label = "NEUTRAL_DISCLOSURE", "neutral"
	}
	return res
}
