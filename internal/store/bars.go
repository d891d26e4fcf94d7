package store

import (
	"context"
	"sort"
	"sync"

	"signalfuse/internal/domain"
)

// Bars is the in-process bar store used when no database is configured.
// Bars for a date already held are replaced.
type Bars struct {
	mu   sync.RWMutex
	bars map[string][]domain.Bar
}

func NewBars() *Bars {
	return &Bars{bars: map[string][]domain.Bar{}}
}

func (b *Bars) UpsertBars(_ context.Context, code string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	byDate := make(map[int64]domain.Bar, len(b.bars[code])+len(bars))
	for _, bar := range b.bars[code] {
		byDate[bar.Date.Unix()] = bar
	}
	for _, bar := range bars {
		byDate[bar.Date.Unix()] = bar
	}
	merged := make([]domain.Bar, 0, len(byDate))
	for _, bar := range byDate {
		merged = append(merged, bar)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	b.bars[code] = merged
	return nil
}

func (b *Bars) GetSeries(_ context.Context, code string, lookback int) (domain.Series, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	held := b.bars[code]
	if lookback > 0 && len(held) > lookback {
		held = held[len(held)-lookback:]
	}
	out := make([]domain.Bar, len(held))
	copy(out, held)
	return domain.Series{Code: code, Bars: out}, nil
}

func (b *Bars) Codes(context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	codes := make([]string, 0, len(b.bars))
	for code := range b.bars {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}
