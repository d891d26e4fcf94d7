package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
	"signalfuse/internal/job"
	"signalfuse/internal/learning"
	"signalfuse/internal/position"
	"signalfuse/internal/service"
	"signalfuse/internal/store"
)

type stubAnalyzer struct {
	err      error
	lookback int
}

func (s *stubAnalyzer) Analyze(_ context.Context, code string, lookback int) (service.Report, error) {
	s.lookback = lookback
	if s.err != nil {
		return service.Report{}, s.err
	}
	return service.Report{Code: code, Price: 100, Bars: lookback}, nil
}

type stubReports map[string]service.Report

func (s stubReports) Get(_ context.Context, code string, dst any) (bool, error) {
	rep, ok := s[code]
	if !ok {
		return false, nil
	}
	*(dst.(*service.Report)) = rep
	return true, nil
}

type stubTrader struct{ err error }

func (s stubTrader) Trade(_ context.Context, code string) (service.TradeResult, error) {
	if s.err != nil {
		return service.TradeResult{}, s.err
	}
	return service.TradeResult{Outcome: position.Outcome{Status: position.StatusBought, Code: code}}, nil
}

type stubScanner struct {
	err  error
	last time.Time
}

func (s stubScanner) RunOnce(context.Context) (service.CycleReport, error) {
	return service.CycleReport{Scanned: 3}, s.err
}

func (s stubScanner) LastRun() time.Time { return s.last }

type stubLearning struct{ asked int }

func (s *stubLearning) Analyze(context.Context) (learning.Performance, error) {
	return learning.Performance{}, nil
}

func (s *stubLearning) BestPatterns(_ context.Context, n int) ([]learning.PatternScore, error) {
	s.asked = n
	return nil, nil
}

func newRouter(deps Deps, apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(trace.NewNoopTracerProvider().Tracer("test"), deps, apiKey).RegisterRoutes(r)
	return r
}

func do(r *gin.Engine, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	r := newRouter(Deps{}, "")
	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body := decode(t, w); body["status"] != "healthy" || body["last_scan"] != nil {
		t.Fatalf("unexpected body: %v", body)
	}

	last := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	r = newRouter(Deps{Scanner: stubScanner{last: last}}, "")
	if body := decode(t, do(r, http.MethodGet, "/health", "")); body["last_scan"] != "2026-03-02T09:00:00Z" {
		t.Fatalf("expected last scan, got %v", body)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		headers []string
		want    int
	}{
		{"disabled", "", nil, http.StatusOK},
		{"missing", "secret", nil, http.StatusUnauthorized},
		{"wrong", "secret", []string{"X-API-Key", "nope"}, http.StatusForbidden},
		{"header", "secret", []string{"X-API-Key", "secret"}, http.StatusOK},
		{"bearer", "secret", []string{"Authorization", "Bearer secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(Deps{Scanner: stubScanner{}}, tt.key)
			w := do(r, http.MethodPost, "/scan", "", tt.headers...)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestIngestAndReadBars(t *testing.T) {
	bars := store.NewBars()
	r := newRouter(Deps{Bars: bars}, "")

	body := `{"bars":[
		{"date":"2025-01-02","open":100,"high":105,"low":99,"close":104,"volume":1000,"foreign_net":50},
		{"date":"2025-01-03","open":104,"high":108,"low":103,"close":107,"volume":1200}
	]}`
	w := do(r, http.MethodPost, "/bars/005930", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if got := decode(t, w)["upserted"]; got != float64(2) {
		t.Fatalf("expected 2 upserted, got %v", got)
	}

	s, _ := bars.GetSeries(context.Background(), "005930", 10)
	if s.Len() != 2 || s.Bars[0].ForeignNet == nil || *s.Bars[0].ForeignNet != 50 {
		t.Fatalf("unexpected stored bars %+v", s.Bars)
	}

	w = do(r, http.MethodGet, "/bars/005930?lookback=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got domain.Series
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if got.Code != "005930" || got.Len() != 1 || got.Last().Close != 107 {
		t.Fatalf("unexpected series %+v", got)
	}
}

func TestIngestBarsRejects(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"bad code", "/bars/00-59", `{"bars":[{"date":"2025-01-02","open":1,"high":1,"low":1,"close":1,"volume":1}]}`},
		{"broken json", "/bars/005930", `{"bars":`},
		{"empty", "/bars/005930", `{"bars":[]}`},
		{"zero price", "/bars/005930", `{"bars":[{"date":"2025-01-02","open":0,"high":1,"low":1,"close":1,"volume":1}]}`},
		{"bad date", "/bars/005930", `{"bars":[{"date":"02/01/2025","open":1,"high":1,"low":1,"close":1,"volume":1}]}`},
		{"high below low", "/bars/005930", `{"bars":[{"date":"2025-01-02","open":5,"high":4,"low":6,"close":5,"volume":1}]}`},
		{"unordered", "/bars/005930", `{"bars":[
			{"date":"2025-01-03","open":1,"high":1,"low":1,"close":1,"volume":1},
			{"date":"2025-01-02","open":1,"high":1,"low":1,"close":1,"volume":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars := store.NewBars()
			r := newRouter(Deps{Bars: bars}, "")
			w := do(r, http.MethodPost, tt.path, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
			}
			if codes, _ := bars.Codes(context.Background()); len(codes) != 0 {
				t.Fatalf("nothing should be stored, got %v", codes)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	an := &stubAnalyzer{}
	r := newRouter(Deps{Analyzer: an}, "")

	w := do(r, http.MethodGet, "/analyze/005930", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if an.lookback != service.DefaultLookback {
		t.Fatalf("expected default lookback, got %d", an.lookback)
	}
	if body := decode(t, w); body["code"] != "005930" {
		t.Fatalf("unexpected body %v", body)
	}

	do(r, http.MethodGet, "/analyze/005930?lookback=120", "")
	if an.lookback != 120 {
		t.Fatalf("expected lookback 120, got %d", an.lookback)
	}
	do(r, http.MethodGet, "/analyze/005930?lookback=99999", "")
	if an.lookback != service.DefaultLookback {
		t.Fatalf("out-of-range lookback should fall back, got %d", an.lookback)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"short history", fmt.Errorf("005930: %w", service.ErrInsufficientHistory), http.StatusUnprocessableEntity},
		{"invalid bar", fmt.Errorf("bar 3: %w", domain.ErrInvalidBar), http.StatusBadRequest},
		{"provider", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(Deps{Analyzer: &stubAnalyzer{err: tt.err}}, "")
			if w := do(r, http.MethodGet, "/analyze/005930", ""); w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAnalyzeCached(t *testing.T) {
	reports := stubReports{"005930": {Code: "005930", Price: 71000}}
	r := newRouter(Deps{Analyzer: &stubAnalyzer{}, Reports: reports}, "")

	w := do(r, http.MethodGet, "/analyze/005930?cached=true", "")
	if w.Code != http.StatusOK || decode(t, w)["price"] != float64(71000) {
		t.Fatalf("expected cached report, got %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/analyze/000660?cached=true", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on a miss, got %d", w.Code)
	}
}

func TestTrade(t *testing.T) {
	r := newRouter(Deps{Trader: stubTrader{}}, "secret")
	w := do(r, http.MethodPost, "/trade/005930", "", "X-API-Key", "secret")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	outcome := decode(t, w)["outcome"].(map[string]any)
	if outcome["status"] != string(position.StatusBought) {
		t.Fatalf("unexpected outcome %v", outcome)
	}

	r = newRouter(Deps{Trader: stubTrader{err: position.ErrPositionExists}}, "")
	if w := do(r, http.MethodPost, "/trade/005930", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestScan(t *testing.T) {
	r := newRouter(Deps{Scanner: stubScanner{}}, "")
	w := do(r, http.MethodPost, "/scan", "")
	if w.Code != http.StatusOK || decode(t, w)["scanned"] != float64(3) {
		t.Fatalf("unexpected scan response %d %s", w.Code, w.Body.String())
	}

	r = newRouter(Deps{Scanner: stubScanner{err: job.ErrCycleRunning}}, "")
	if w := do(r, http.MethodPost, "/scan", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while a cycle runs, got %d", w.Code)
	}
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_ = mem.Save(ctx, domain.Position{Code: "005930", EntryPrice: 100, Quantity: 1})
	trades := mem.Trades()
	_ = trades.Append(ctx, domain.TradeRecord{ID: "a", Code: "005930", ReturnPct: 5})
	_ = trades.Append(ctx, domain.TradeRecord{ID: "b", Code: "000660", ReturnPct: -2})

	lrn := &stubLearning{}
	r := newRouter(Deps{Positions: positionList{mem}, Trades: trades, Learning: lrn}, "")

	if got := decode(t, do(r, http.MethodGet, "/positions", ""))["positions"].([]any); len(got) != 1 {
		t.Fatalf("expected one position, got %v", got)
	}
	if got := decode(t, do(r, http.MethodGet, "/trades", ""))["trades"].([]any); len(got) != 2 {
		t.Fatalf("expected two trades, got %v", got)
	}
	if got := decode(t, do(r, http.MethodGet, "/trades?code=000660", ""))["trades"].([]any); len(got) != 1 {
		t.Fatalf("expected one filtered trade, got %v", got)
	}
	if w := do(r, http.MethodGet, "/performance", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w := do(r, http.MethodGet, "/patterns/best?n=3", "")
	if got := decode(t, w)["patterns"].([]any); len(got) != 0 || lrn.asked != 3 {
		t.Fatalf("unexpected patterns %v (asked %d)", got, lrn.asked)
	}
	do(r, http.MethodGet, "/patterns/best?n=500", "")
	if lrn.asked != learning.DefaultTopN {
		t.Fatalf("expected default n, got %d", lrn.asked)
	}
}

type positionList struct{ s store.PositionStore }

func (p positionList) Positions(ctx context.Context) ([]domain.Position, error) { return p.s.List(ctx) }

func TestMissingDependencies(t *testing.T) {
	r := newRouter(Deps{}, "")
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/analyze/005930"},
		{http.MethodPost, "/trade/005930"},
		{http.MethodPost, "/scan"},
		{http.MethodGet, "/bars/005930"},
		{http.MethodGet, "/positions"},
		{http.MethodGet, "/trades"},
		{http.MethodGet, "/performance"},
		{http.MethodGet, "/patterns/best"},
	} {
		if w := do(r, route.method, route.path, ""); w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s %s: expected 503, got %d", route.method, route.path, w.Code)
		}
	}
	if w := do(r, http.MethodGet, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Fatalf("metrics should not be routed without a handler, got %d", w.Code)
	}
}
