// Package store persists open positions, the trade ledger and the learned
// statistics. Every implementation serializes its own read-modify-write
// cycles.
package store

import (
	"context"
	"sort"
	"sync"

	"signalfuse/internal/domain"
)

type PositionStore interface {
	Get(ctx context.Context, code string) (domain.Position, bool, error)
	Save(ctx context.Context, p domain.Position) error
	Delete(ctx context.Context, code string) error
	List(ctx context.Context) ([]domain.Position, error)
}

type TradeStore interface {
	Append(ctx context.Context, t domain.TradeRecord) error
	List(ctx context.Context) ([]domain.TradeRecord, error)
	ListByCode(ctx context.Context, code string) ([]domain.TradeRecord, error)
}

// StatsStore holds pattern statistics and instrument profiles. The update
// funcs run inside the store's critical section and may mutate their
// argument in place.
type StatsStore interface {
	Patterns(ctx context.Context) (map[string]domain.PatternStat, error)
	UpdatePatterns(ctx context.Context, fn func(map[string]domain.PatternStat)) error
	Profile(ctx context.Context, code string) (*domain.InstrumentProfile, error)
	UpdateProfile(ctx context.Context, code string, fn func(*domain.InstrumentProfile)) error
}

// Memory keeps everything in process. It is the test double for the other
// stores and the backend when no state directory is configured.
type Memory struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	trades    []domain.TradeRecord
	patterns  map[string]domain.PatternStat
	profiles  map[string]domain.InstrumentProfile
}

func NewMemory() *Memory {
	return &Memory{
		positions: map[string]domain.Position{},
		patterns:  map[string]domain.PatternStat{},
		profiles:  map[string]domain.InstrumentProfile{},
	}
}

func (m *Memory) Get(_ context.Context, code string) (domain.Position, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[code]
	return p, ok, nil
}

func (m *Memory) Save(_ context.Context, p domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.Code] = p
	return nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, code)
	return nil
}

func (m *Memory) List(_ context.Context) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedPositions(m.positions), nil
}

// Trades adapts the ledger half of m to TradeStore, whose List collides
// with PositionStore.List.
func (m *Memory) Trades() TradeStore { return memoryTrades{m} }

type memoryTrades struct{ m *Memory }

func (t memoryTrades) Append(_ context.Context, rec domain.TradeRecord) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.trades = append(t.m.trades, rec)
	return nil
}

func (t memoryTrades) List(_ context.Context) ([]domain.TradeRecord, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	out := make([]domain.TradeRecord, len(t.m.trades))
	copy(out, t.m.trades)
	return out, nil
}

func (t memoryTrades) ListByCode(_ context.Context, code string) ([]domain.TradeRecord, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return filterTrades(t.m.trades, code), nil
}

func (m *Memory) Patterns(_ context.Context) (map[string]domain.PatternStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clonePatterns(m.patterns), nil
}

func (m *Memory) UpdatePatterns(_ context.Context, fn func(map[string]domain.PatternStat)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.patterns)
	return nil
}

func (m *Memory) Profile(_ context.Context, code string) (*domain.InstrumentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[code]
	if !ok {
		return nil, nil
	}
	cp := cloneProfile(p)
	return &cp, nil
}

func (m *Memory) UpdateProfile(_ context.Context, code string, fn func(*domain.InstrumentProfile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[code]
	if !ok {
		p = domain.NewInstrumentProfile(code)
	}
	fn(&p)
	m.profiles[code] = p
	return nil
}

func sortedPositions(in map[string]domain.Position) []domain.Position {
	out := make([]domain.Position, 0, len(in))
	for _, p := range in {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func filterTrades(in []domain.TradeRecord, code string) []domain.TradeRecord {
	out := []domain.TradeRecord{}
	for _, t := range in {
		if t.Code == code {
			out = append(out, t)
		}
	}
	return out
}

func clonePatterns(in map[string]domain.PatternStat) map[string]domain.PatternStat {
	out := make(map[string]domain.PatternStat, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneProfile(p domain.InstrumentProfile) domain.InstrumentProfile {
	styles := make(map[domain.Style]domain.StyleStat, len(p.Styles))
	for k, v := range p.Styles {
		styles[k] = v
	}
	p.Styles = styles
	return p
}
