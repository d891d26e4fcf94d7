package disclosure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
	"signalfuse/internal/provider"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubLLMClient struct {
	reply string
	err   error
	calls int
}

func (s *stubLLMClient) CreateChatCompletion(context.Context, openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Content: s.reply}},
	}}, nil
}

type stubFeed struct {
	items   []provider.FeedItem
	err     error
	enabled bool
}

func (f stubFeed) Enabled() bool { return f.enabled }

func (f stubFeed) Fetch(context.Context, string, time.Duration) ([]provider.FeedItem, error) {
	return f.items, f.err
}

func TestMatchKeywords(t *testing.T) {
	tests := []struct {
		text string
		want domain.DisclosureCategory
	}{
		{"2024년 3분기 잠정실적 공시", domain.DisclosureEarnings},
		{"주주배정 유상증자 결정", domain.DisclosureRightsOffering},
		{"Board approves merger with Acme", domain.DisclosureMerger},
		{"횡령 배임 혐의 발생 및 현금배당", domain.DisclosureEmbezzlement},
		{"Quarterly DIVIDEND declared", domain.DisclosureDividend},
		{"Change of auditor", domain.DisclosureOther},
	}
	for _, tt := range tests {
		if got := MatchKeywords(tt.text); got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.text, tt.want, got)
		}
	}
}

func TestParseCategory(t *testing.T) {
	if c, ok := ParseCategory(" Rights Offering.\n"); !ok || c != domain.DisclosureRightsOffering {
		t.Fatalf("expected rights_offering, got %q %v", c, ok)
	}
	if _, ok := ParseCategory("bullish"); ok {
		t.Fatal("unexpected label accepted")
	}
}

func TestLLMClassify(t *testing.T) {
	item := provider.FeedItem{Code: "005930", Title: "현금배당 결정"}

	llm := &stubLLMClient{reply: "merger"}
	c := NewLLM(testTracer, llm, "gpt-4o-mini", zerolog.Nop())
	if got, _ := c.Classify(context.Background(), item); got != domain.DisclosureMerger {
		t.Fatalf("expected the model label, got %s", got)
	}

	llm = &stubLLMClient{err: errors.New("api down")}
	c = NewLLM(testTracer, llm, "gpt-4o-mini", zerolog.Nop())
	if got, err := c.Classify(context.Background(), item); err != nil || got != domain.DisclosureDividend {
		t.Fatalf("expected keyword fallback, got %s %v", got, err)
	}

	llm = &stubLLMClient{reply: "very positive"}
	c = NewLLM(testTracer, llm, "gpt-4o-mini", zerolog.Nop())
	if got, _ := c.Classify(context.Background(), item); got != domain.DisclosureDividend {
		t.Fatalf("expected keyword fallback on unknown label, got %s", got)
	}
}

func TestSourceRecent(t *testing.T) {
	feed := stubFeed{enabled: true, items: []provider.FeedItem{
		{Code: "005930", Title: "유상증자 결정", Link: "https://filings.example/1"},
		{Code: "005930", Title: "Annual meeting notice"},
	}}
	s := NewSource(testTracer, feed, nil, zerolog.Nop())

	got, err := s.Recent(context.Background(), "005930")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Category != domain.DisclosureRightsOffering || got[1].Category != domain.DisclosureOther {
		t.Fatalf("unexpected disclosures %+v", got)
	}
	if got[0].Code != "005930" || got[0].Link == "" {
		t.Fatalf("fields not carried over: %+v", got[0])
	}

	if got, err := NewSource(testTracer, stubFeed{}, nil, zerolog.Nop()).Recent(context.Background(), "005930"); err != nil || got != nil {
		t.Fatalf("disabled feed should yield nothing, got %v %v", got, err)
	}
	failing := NewSource(testTracer, stubFeed{enabled: true, err: errors.New("timeout")}, nil, zerolog.Nop())
	if _, err := failing.Recent(context.Background(), "005930"); err == nil {
		t.Fatal("expected feed error")
	}
}
