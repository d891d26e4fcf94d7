// Package disclosure turns raw filing headlines into categorized disclosures
// for the disclosure scorer.
package disclosure

import (
	"context"
	"strings"

	"signalfuse/internal/domain"
	"signalfuse/internal/provider"
)

// Classifier assigns a category to one headline.
type Classifier interface {
	Classify(ctx context.Context, item provider.FeedItem) (domain.DisclosureCategory, error)
}

// keywordRules are checked in order. Negative categories come first so a
// headline naming both a dividend and embezzlement scores as embezzlement.
var keywordRules = []struct {
	category domain.DisclosureCategory
	words    []string
}{
	{domain.DisclosureEmbezzlement, []string{"횡령", "배임", "embezzle", "breach of trust"}},
	{domain.DisclosureRightsOffering, []string{"유상증자", "rights offering", "rights issue", "capital increase"}},
	{domain.DisclosureMerger, []string{"합병", "인수", "merger", "acquisition", "acquire"}},
	{domain.DisclosureEarnings, []string{"실적", "영업이익", "잠정", "earnings", "quarterly results", "operating profit"}},
	{domain.DisclosureDividend, []string{"배당", "dividend"}},
}

// Keyword classifies by substring match on the title and summary.
type Keyword struct{}

func (Keyword) Classify(_ context.Context, item provider.FeedItem) (domain.DisclosureCategory, error) {
	return MatchKeywords(item.Title + " " + item.Summary), nil
}

func MatchKeywords(text string) domain.DisclosureCategory {
	text = strings.ToLower(text)
	for _, rule := range keywordRules {
		for _, w := range rule.words {
			if strings.Contains(text, w) {
				return rule.category
			}
		}
	}
	return domain.DisclosureOther
}

// ParseCategory maps a free-form label onto a known category.
func ParseCategory(label string) (domain.DisclosureCategory, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.Trim(label, ".\"'` ")
	label = strings.ReplaceAll(label, " ", "_")
	switch c := domain.DisclosureCategory(label); c {
	case domain.DisclosureEarnings, domain.DisclosureRightsOffering, domain.DisclosureMerger,
		domain.DisclosureEmbezzlement, domain.DisclosureDividend, domain.DisclosureOther:
		return c, true
	}
	return "", false
}
