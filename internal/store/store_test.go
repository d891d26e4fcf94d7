package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"signalfuse/internal/domain"
)

type backend interface {
	PositionStore
	StatsStore
	Trades() TradeStore
}

func backends(t *testing.T) map[string]backend {
	t.Helper()
	f, err := NewFile(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return map[string]backend{"memory": NewMemory(), "file": f}
}

func TestPositionRoundTrip(t *testing.T) {
	ctx := context.Background()
	t2 := 110.0
	pos := domain.Position{
		Code:       "005930",
		EntryPrice: 100,
		EntryTime:  time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		Style:      domain.StyleSwing,
		StopLoss:   95,
		Target1:    105,
		Target2:    &t2,
		Quantity:   100,
		Score:      42.5,
		Patterns:   []string{"trinity_complete"},
		Status:     domain.PositionOpen,
	}
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, _ := b.Get(ctx, pos.Code); ok {
				t.Fatal("expected empty store")
			}
			if err := b.Save(ctx, pos); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, ok, err := b.Get(ctx, pos.Code)
			if err != nil || !ok {
				t.Fatalf("get: ok=%v err=%v", ok, err)
			}
			if got.EntryPrice != 100 || got.Target2 == nil || *got.Target2 != 110 || !got.EntryTime.Equal(pos.EntryTime) {
				t.Fatalf("unexpected position %+v", got)
			}
			list, _ := b.List(ctx)
			if len(list) != 1 {
				t.Fatalf("expected one position, got %d", len(list))
			}
			if err := b.Delete(ctx, pos.Code); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok, _ := b.Get(ctx, pos.Code); ok {
				t.Fatal("position should be gone")
			}
		})
	}
}

func TestTradeLedger(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			trades := b.Trades()
			for _, rec := range []domain.TradeRecord{
				{ID: "a", Code: "005930", ReturnPct: 5},
				{ID: "b", Code: "000660", ReturnPct: -2},
				{ID: "c", Code: "005930", ReturnPct: 1},
			} {
				if err := trades.Append(ctx, rec); err != nil {
					t.Fatalf("append: %v", err)
				}
			}
			all, _ := trades.List(ctx)
			if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
				t.Fatalf("ledger should keep append order, got %+v", all)
			}
			byCode, _ := trades.ListByCode(ctx, "005930")
			if len(byCode) != 2 {
				t.Fatalf("expected two trades for 005930, got %d", len(byCode))
			}
		})
	}
}

func TestStatsUpdates(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := b.UpdatePatterns(ctx, func(m map[string]domain.PatternStat) {
				m["double_bottom"] = domain.PatternStat{Name: "double_bottom", Count: 1, Wins: 1, TotalReturn: 4}
			})
			if err != nil {
				t.Fatalf("update patterns: %v", err)
			}
			stats, _ := b.Patterns(ctx)
			if stats["double_bottom"].Count != 1 {
				t.Fatalf("unexpected stats %+v", stats)
			}

			if p, _ := b.Profile(ctx, "005930"); p != nil {
				t.Fatal("expected no profile before the first trade")
			}
			err = b.UpdateProfile(ctx, "005930", func(p *domain.InstrumentProfile) {
				p.Count++
				p.Styles[domain.StyleSwing] = domain.StyleStat{Count: 1, Wins: 1, AvgReturn: 4}
			})
			if err != nil {
				t.Fatalf("update profile: %v", err)
			}
			p, _ := b.Profile(ctx, "005930")
			if p == nil || p.Count != 1 || p.AvgVolatility != domain.DefaultAvgVolatility {
				t.Fatalf("unexpected profile %+v", p)
			}
			if p.Styles[domain.StyleSwing].AvgReturn != 4 {
				t.Fatalf("style stats not persisted: %+v", p.Styles)
			}
		})
	}
}

func TestFileCorruptStateLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, positionsFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := NewFile(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	list, err := f.List(context.Background())
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty cold start, got %v %v", list, err)
	}
	if err := f.Save(context.Background(), domain.Position{Code: "005930"}); err != nil {
		t.Fatalf("save over corrupt state: %v", err)
	}
	if _, ok, _ := f.Get(context.Background(), "005930"); !ok {
		t.Fatal("save should replace the corrupt document")
	}
}

func TestFileSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	f, _ := NewFile(dir, zerolog.Nop())
	_ = f.Trades().Append(ctx, domain.TradeRecord{ID: "x", Code: "005930"})

	reopened, _ := NewFile(dir, zerolog.Nop())
	all, _ := reopened.Trades().List(ctx)
	if len(all) != 1 || all[0].ID != "x" {
		t.Fatalf("expected persisted trade, got %+v", all)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
