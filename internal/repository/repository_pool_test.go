package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
)

var tracer = trace.NewNoopTracerProvider().Tracer("test")

func date(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

func TestBarRepositoryUpsertBatches(t *testing.T) {
	pool := &fakePool{}
	repo := NewBarRepository(pool, tracer)

	if err := repo.UpsertBars(context.Background(), "005930", nil); err != nil || pool.batched != 0 {
		t.Fatalf("empty upsert should not touch the pool: %v", err)
	}
	bars := []domain.Bar{{Date: date(3), Close: 1}, {Date: date(4), Close: 2}}
	if err := repo.UpsertBars(context.Background(), "005930", bars); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if pool.batched != 2 {
		t.Fatalf("expected 2 queued statements, got %d", pool.batched)
	}

	pool.execErr = errors.New("constraint")
	if err := repo.UpsertBars(context.Background(), "005930", bars); err == nil || !strings.Contains(err.Error(), "2025-03-03") {
		t.Fatalf("expected the failing bar date in the error, got %v", err)
	}
}

func TestBarRepositoryGetSeriesAscending(t *testing.T) {
	flow := 12.5
	pool := &fakePool{rows: [][]any{
		{date(5), 10.0, 11.0, 9.0, 10.5, 100.0, flow, nil},
		{date(4), 9.0, 10.0, 8.0, 9.5, 90.0, nil, nil},
	}}
	s, err := NewBarRepository(pool, tracer).GetSeries(context.Background(), "005930", 2)
	if err != nil {
		t.Fatalf("get series: %v", err)
	}
	if s.Code != "005930" || s.Len() != 2 || !s.Bars[0].Date.Equal(date(4)) {
		t.Fatalf("expected ascending bars, got %+v", s.Bars)
	}
	if s.Last().ForeignNet == nil || *s.Last().ForeignNet != flow || s.Bars[0].ForeignNet != nil {
		t.Fatalf("unexpected flows %+v", s.Bars)
	}
	if args := pool.queries[0].args; args[0] != "005930" || args[1] != 2 {
		t.Fatalf("unexpected query args %v", args)
	}
}

func TestBarRepositoryCodes(t *testing.T) {
	pool := &fakePool{rows: [][]any{{"000660"}, {"005930"}}}
	codes, err := NewBarRepository(pool, tracer).Codes(context.Background())
	if err != nil || len(codes) != 2 || codes[1] != "005930" {
		t.Fatalf("unexpected codes %v %v", codes, err)
	}
}

func TestPositionRepositoryGet(t *testing.T) {
	pool := &fakePool{}
	repo := NewPositionRepository(pool, tracer)

	if _, ok, err := repo.Get(context.Background(), "005930"); ok || err != nil {
		t.Fatalf("missing row should be a clean miss, got %v %v", ok, err)
	}

	pool.row = []any{"005930", 100.0, date(1), "swing", 95.0, 110.0, nil, int64(10), 42.0, []string{"trinity_complete"}, "OPEN"}
	p, ok, err := repo.Get(context.Background(), "005930")
	if err != nil || !ok {
		t.Fatalf("get: %v %v", ok, err)
	}
	if p.Style != domain.StyleSwing || p.Target2 != nil || p.Quantity != 10 {
		t.Fatalf("unexpected position %+v", p)
	}
}

func TestPositionRepositorySaveNormalizesPatterns(t *testing.T) {
	pool := &fakePool{}
	if err := NewPositionRepository(pool, tracer).Save(context.Background(), domain.Position{Code: "005930"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	args := pool.execs[0].args
	if patterns, ok := args[9].([]string); !ok || patterns == nil {
		t.Fatalf("patterns should be a non-nil array, got %#v", args[9])
	}
}

func TestTradeRepository(t *testing.T) {
	pool := &fakePool{rows: [][]any{
		{"t1", "005930", 100.0, date(1), 106.0, date(5), 6.0, "swing", "TAKE_PROFIT", 40.0, int64(3), []string{"fibo_support"}},
	}}
	repo := NewTradeRepository(pool, tracer)

	if err := repo.Append(context.Background(), domain.TradeRecord{ID: "t1", Code: "005930"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if !strings.Contains(pool.execs[0].sql, "INSERT INTO trades") {
		t.Fatalf("unexpected sql %q", pool.execs[0].sql)
	}

	trades, err := repo.ListByCode(context.Background(), "005930")
	if err != nil || len(trades) != 1 {
		t.Fatalf("list: %v %v", trades, err)
	}
	if trades[0].Style != domain.StyleSwing || trades[0].Reason != domain.CloseReason("TAKE_PROFIT") {
		t.Fatalf("unexpected trade %+v", trades[0])
	}

	pool.queryErr = errors.New("down")
	if _, err := repo.List(context.Background()); err == nil {
		t.Fatal("expected a query error")
	}
}
