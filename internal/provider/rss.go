// Package provider fetches regulatory disclosure headlines from an RSS feed.
package provider

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxItems = 40
	// CodePlaceholder is replaced by the instrument code in a feed URL template.
	CodePlaceholder = "{code}"
)

// FeedItem is one unclassified disclosure headline.
type FeedItem struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Link      string    `json:"link,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Published time.Time `json:"published"`
}

// DisclosureFeed reads an RSS feed per instrument. The URL template carries
// {code} where the instrument code belongs.
type DisclosureFeed struct {
	client   *http.Client
	tracer   trace.Tracer
	limiter  *RateLimiter
	template string
	maxItems int
	now      func() time.Time
}

func NewDisclosureFeed(tracer trace.Tracer, template string, limiter *RateLimiter) *DisclosureFeed {
	return &DisclosureFeed{
		client:   &http.Client{Timeout: 20 * time.Second},
		tracer:   tracer,
		limiter:  limiter,
		template: strings.TrimSpace(template),
		maxItems: defaultMaxItems,
		now:      time.Now,
	}
}

func (p *DisclosureFeed) Enabled() bool { return p != nil && p.template != "" }

// Fetch returns the feed items for code published within the last window.
// A zero window keeps every item.
func (p *DisclosureFeed) Fetch(ctx context.Context, code string, window time.Duration) ([]FeedItem, error) {
	ctx, span := p.tracer.Start(ctx, "disclosure-feed.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("code", code))

	if !p.Enabled() {
		return nil, fmt.Errorf("disclosure feed url is required")
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	feedURL := strings.ReplaceAll(p.template, CodePlaceholder, url.QueryEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := p.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rss fetch error %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var rss struct {
		Channel struct {
			Items []struct {
				Title       string `xml:"title"`
				Link        string `xml:"link"`
				Description string `xml:"description"`
				GUID        string `xml:"guid"`
				PubDate     string `xml:"pubDate"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	if err := xml.Unmarshal(body, &rss); err != nil {
		return nil, fmt.Errorf("decode rss payload: %w", err)
	}

	now := p.now().UTC()
	items := make([]FeedItem, 0, min(p.maxItems, len(rss.Channel.Items)))
	for _, row := range rss.Channel.Items {
		if len(items) >= p.maxItems {
			break
		}
		title := sanitizeText(row.Title, 300)
		if title == "" {
			continue
		}
		published := parseRSSDate(row.PubDate)
		if published.IsZero() {
			published = now
		}
		if window > 0 && now.Sub(published) > window {
			continue
		}
		id := sanitizeText(row.GUID, 250)
		if id == "" {
			id = sanitizeText(row.Link, 250)
		}
		if id == "" {
			h := sha1.Sum([]byte(title + "|" + published.Format(time.RFC3339Nano)))
			id = hex.EncodeToString(h[:])
		}
		items = append(items, FeedItem{
			ID:        id,
			Code:      code,
			Title:     title,
			Link:      sanitizeText(row.Link, 500),
			Summary:   sanitizeText(htmlStrip(row.Description), 420),
			Published: published,
		})
	}
	span.SetAttributes(attribute.Int("items", len(items)))
	return items, nil
}

func parseRSSDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func htmlStrip(in string) string {
	if strings.TrimSpace(in) == "" {
		return ""
	}
	var b strings.Builder
	inside := false
	for _, r := range in {
		switch r {
		case '<':
			inside = true
			continue
		case '>':
			inside = false
			continue
		}
		if !inside {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sanitizeText(in string, maxLen int) string {
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && len(in) > maxLen {
		in = in[:maxLen]
	}
	return in
}
