package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"signalfuse/internal/domain"
)

const (
	positionsFile = "positions.json"
	tradesFile    = "trading_history.json"
	patternsFile  = "pattern_stats.json"
	profilesFile  = "instrument_profiles.json"
)

// File persists each collection as one JSON document under dir. Writes go
// to a temp file that is renamed over the target. A missing or unreadable
// document loads as empty.
type File struct {
	dir    string
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewFile(dir string, logger zerolog.Logger) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", dir, err)
	}
	return &File{dir: dir, logger: logger.With().Str("component", "file-store").Logger()}, nil
}

// load decodes name into v. It reports false when the document exists but
// could not be decoded, in which case v must be discarded.
func (f *File) load(name string, v any) bool {
	path := filepath.Join(f.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	if err == nil {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		f.logger.Warn().Err(err).Str("file", path).Msg("state unreadable, starting empty")
		return false
	}
	return true
}

func (f *File) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(f.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (f *File) positions() map[string]domain.Position {
	out := map[string]domain.Position{}
	if !f.load(positionsFile, &out) || out == nil {
		out = map[string]domain.Position{}
	}
	return out
}

func (f *File) Get(_ context.Context, code string) (domain.Position, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.positions()[code]
	return p, ok, nil
}

func (f *File) Save(_ context.Context, p domain.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.positions()
	all[p.Code] = p
	return f.write(positionsFile, all)
}

func (f *File) Delete(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.positions()
	if _, ok := all[code]; !ok {
		return nil
	}
	delete(all, code)
	return f.write(positionsFile, all)
}

func (f *File) List(_ context.Context) ([]domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedPositions(f.positions()), nil
}

// Trades adapts the ledger half of f to TradeStore.
func (f *File) Trades() TradeStore { return fileTrades{f} }

type fileTrades struct{ f *File }

func (t fileTrades) all() []domain.TradeRecord {
	var out []domain.TradeRecord
	if !t.f.load(tradesFile, &out) {
		return nil
	}
	return out
}

func (t fileTrades) Append(_ context.Context, rec domain.TradeRecord) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	return t.f.write(tradesFile, append(t.all(), rec))
}

func (t fileTrades) List(_ context.Context) ([]domain.TradeRecord, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	out := t.all()
	if out == nil {
		out = []domain.TradeRecord{}
	}
	return out, nil
}

func (t fileTrades) ListByCode(_ context.Context, code string) ([]domain.TradeRecord, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	return filterTrades(t.all(), code), nil
}

func (f *File) patterns() map[string]domain.PatternStat {
	out := map[string]domain.PatternStat{}
	if !f.load(patternsFile, &out) || out == nil {
		out = map[string]domain.PatternStat{}
	}
	return out
}

func (f *File) profiles() map[string]domain.InstrumentProfile {
	out := map[string]domain.InstrumentProfile{}
	if !f.load(profilesFile, &out) || out == nil {
		out = map[string]domain.InstrumentProfile{}
	}
	return out
}

func (f *File) Patterns(_ context.Context) (map[string]domain.PatternStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.patterns(), nil
}

func (f *File) UpdatePatterns(_ context.Context, fn func(map[string]domain.PatternStat)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.patterns()
	fn(all)
	return f.write(patternsFile, all)
}

func (f *File) Profile(_ context.Context, code string) (*domain.InstrumentProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles()[code]
	if !ok {
		return nil, nil
	}
	if p.Styles == nil {
		p.Styles = map[domain.Style]domain.StyleStat{}
	}
	return &p, nil
}

func (f *File) UpdateProfile(_ context.Context, code string, fn func(*domain.InstrumentProfile)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.profiles()
	p, ok := all[code]
	if !ok {
		p = domain.NewInstrumentProfile(code)
	}
	if p.Styles == nil {
		p.Styles = map[domain.Style]domain.StyleStat{}
	}
	fn(&p)
	all[code] = p
	return f.write(profilesFile, all)
}
