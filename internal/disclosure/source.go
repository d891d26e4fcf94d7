package disclosure

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
	"signalfuse/internal/provider"
)

// DefaultWindow is how far back filings still count toward the score.
const DefaultWindow = 7 * 24 * time.Hour

type Feed interface {
	Enabled() bool
	Fetch(ctx context.Context, code string, window time.Duration) ([]provider.FeedItem, error)
}

// Source fetches and classifies the recent filings of one instrument.
type Source struct {
	tracer     trace.Tracer
	feed       Feed
	classifier Classifier
	window     time.Duration
	logger     zerolog.Logger
}

func NewSource(tracer trace.Tracer, feed Feed, classifier Classifier, logger zerolog.Logger) *Source {
	if classifier == nil {
		classifier = Keyword{}
	}
	return &Source{
		tracer:     tracer,
		feed:       feed,
		classifier: classifier,
		window:     DefaultWindow,
		logger:     logger.With().Str("component", "disclosure").Logger(),
	}
}

// Recent returns nothing, without error, when no feed is configured.
func (s *Source) Recent(ctx context.Context, code string) ([]domain.Disclosure, error) {
	if s == nil || s.feed == nil || !s.feed.Enabled() {
		return nil, nil
	}
	ctx, span := s.tracer.Start(ctx, "disclosure.recent")
	defer span.End()

	items, err := s.feed.Fetch(ctx, code, s.window)
	if err != nil {
		return nil, fmt.Errorf("fetch disclosures for %s: %w", code, err)
	}
	out := make([]domain.Disclosure, 0, len(items))
	for _, it := range items {
		cat, err := s.classifier.Classify(ctx, it)
		if err != nil {
			s.logger.Warn().Err(err).Str("code", code).Str("title", it.Title).Msg("classify disclosure")
			cat = domain.DisclosureOther
		}
		out = append(out, domain.Disclosure{
			Code:      code,
			Title:     it.Title,
			Link:      it.Link,
			Published: it.Published,
			Category:  cat,
		})
	}
	return out, nil
}
