package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/domain"
	"signalfuse/internal/learning"
	"signalfuse/internal/position"
)

const DefaultMaxBuys = 5

// Universe lists the instruments a scan covers.
type Universe interface {
	Codes(ctx context.Context) ([]string, error)
}

// StaticUniverse is a fixed list of codes.
type StaticUniverse []string

func (u StaticUniverse) Codes(context.Context) ([]string, error) { return u, nil }

type Executor interface {
	Execute(ctx context.Context, sig position.Signal) (position.Outcome, error)
	Positions(ctx context.Context) ([]domain.Position, error)
}

type PerformanceSource interface {
	Analyze(ctx context.Context) (learning.Performance, error)
}

// Candidate is a buy-ranked scan result.
type Candidate struct {
	Code   string        `json:"code"`
	Action domain.Action `json:"action"`
	Score  float64       `json:"score"`
	report Report
}

type CycleReport struct {
	Checked     []position.Outcome   `json:"checked"`
	Scanned     int                  `json:"scanned"`
	Failed      []string             `json:"failed"`
	Candidates  []Candidate          `json:"candidates"`
	Executed    []position.Outcome   `json:"executed"`
	Performance learning.Performance `json:"performance"`
}

type TradeResult struct {
	Report  Report           `json:"report"`
	Outcome position.Outcome `json:"outcome"`
}

// Trader analyzes instruments and feeds the decisions to the position
// manager.
type Trader struct {
	tracer      trace.Tracer
	analyzer    *Analyzer
	executor    Executor
	performance PerformanceSource
	universe    Universe
	lookback    int
	maxBuys     int
	logger      zerolog.Logger
}

func NewTrader(tracer trace.Tracer, analyzer *Analyzer, executor Executor, performance PerformanceSource, universe Universe, lookback, maxBuys int, logger zerolog.Logger) *Trader {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if maxBuys <= 0 {
		maxBuys = DefaultMaxBuys
	}
	return &Trader{
		tracer:      tracer,
		analyzer:    analyzer,
		executor:    executor,
		performance: performance,
		universe:    universe,
		lookback:    lookback,
		maxBuys:     maxBuys,
		logger:      logger.With().Str("component", "trader").Logger(),
	}
}

// Trade analyzes code and applies the decision to its position.
func (t *Trader) Trade(ctx context.Context, code string) (TradeResult, error) {
	ctx, span := t.tracer.Start(ctx, "trader.trade")
	defer span.End()
	span.SetAttributes(attribute.String("code", code))

	rep, err := t.analyzer.Analyze(ctx, code, t.lookback)
	if err != nil {
		return TradeResult{}, err
	}
	out, err := t.executor.Execute(ctx, SignalFrom(rep))
	if err != nil {
		return TradeResult{}, fmt.Errorf("execute %s: %w", code, err)
	}
	return TradeResult{Report: rep, Outcome: out}, nil
}

// Cycle checks every open position, scans the universe and buys the best
// candidates.
func (t *Trader) Cycle(ctx context.Context) (CycleReport, error) {
	ctx, span := t.tracer.Start(ctx, "trader.cycle")
	defer span.End()

	report := CycleReport{Checked: []position.Outcome{}, Failed: []string{}, Candidates: []Candidate{}, Executed: []position.Outcome{}}

	held, err := t.executor.Positions(ctx)
	if err != nil {
		return report, fmt.Errorf("list positions: %w", err)
	}
	for _, p := range held {
		res, err := t.Trade(ctx, p.Code)
		if err != nil {
			t.logger.Warn().Err(err).Str("code", p.Code).Msg("position check failed")
			continue
		}
		report.Checked = append(report.Checked, res.Outcome)
	}

	codes, err := t.universe.Codes(ctx)
	if err != nil {
		return report, fmt.Errorf("load universe: %w", err)
	}
	report.Candidates, report.Failed = t.scan(ctx, codes)
	report.Scanned = len(codes)

	for i, c := range report.Candidates {
		if i >= t.maxBuys {
			break
		}
		out, err := t.executor.Execute(ctx, SignalFrom(c.report))
		if err != nil {
			t.logger.Warn().Err(err).Str("code", c.Code).Msg("buy failed")
			continue
		}
		report.Executed = append(report.Executed, out)
	}

	if t.performance != nil {
		perf, err := t.performance.Analyze(ctx)
		if err != nil {
			t.logger.Warn().Err(err).Msg("performance summary unavailable")
		}
		report.Performance = perf
	}
	t.logger.Info().
		Int("checked", len(report.Checked)).
		Int("scanned", report.Scanned).
		Int("failed", len(report.Failed)).
		Int("candidates", len(report.Candidates)).
		Int("executed", len(report.Executed)).
		Int("total_trades", report.Performance.TotalTrades).
		Float64("win_rate", report.Performance.WinRate).
		Float64("avg_return", report.Performance.AvgReturn).
		Msg("trading cycle complete")
	span.SetAttributes(attribute.Int("candidates", len(report.Candidates)))
	return report, nil
}

// Scan analyzes codes sequentially and returns the buy candidates by score.
func (t *Trader) Scan(ctx context.Context) ([]Candidate, error) {
	codes, err := t.universe.Codes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	candidates, _ := t.scan(ctx, codes)
	return candidates, nil
}

func (t *Trader) scan(ctx context.Context, codes []string) ([]Candidate, []string) {
	candidates := []Candidate{}
	failed := []string{}
	for _, code := range codes {
		if strings.HasPrefix(code, "U") {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		rep, err := t.analyzer.Analyze(ctx, code, t.lookback)
		if err != nil {
			if !errors.Is(err, ErrInsufficientHistory) {
				t.logger.Warn().Err(err).Str("code", code).Msg("analysis failed")
			}
			failed = append(failed, code)
			continue
		}
		switch rep.Decision.Action {
		case domain.ActionStrongBuy, domain.ActionBuy:
			candidates = append(candidates, Candidate{Code: code, Action: rep.Decision.Action, Score: rep.Decision.Score, report: rep})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	return candidates, failed
}

// SignalFrom turns a report into a position signal. Exits come from the
// volatility scorer when it ran. The long-horizon veto blocks buys.
func SignalFrom(rep Report) position.Signal {
	sig := position.Signal{
		Code:     rep.Code,
		Action:   rep.Decision.Action,
		Style:    rep.Decision.Style,
		Score:    rep.Decision.Score,
		Price:    rep.Price,
		Patterns: rep.Technical().EntryPatterns(),
	}
	if v := rep.Context.Volatility; v.OK() {
		sig.StopLoss = v.StopLoss
		sig.Target1 = v.Targets[0]
		sig.Target2 = v.Targets[1]
	}
	if rep.Technical().Vetoed() && sig.Action.IsBuy() {
		sig.Action = domain.ActionAbsoluteNoBuy
	}
	return sig
}
