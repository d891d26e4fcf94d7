// Package service runs the analysis pipeline and the trading cycle on top of
// the engines, the scorers and the stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"signalfuse/internal/adaptive"
	"signalfuse/internal/domain"
	"signalfuse/internal/engine"
	"signalfuse/internal/engine/fibonacci"
	"signalfuse/internal/engine/inflection"
	"signalfuse/internal/engine/levels"
	"signalfuse/internal/engine/pattern"
	"signalfuse/internal/fusion"
	"signalfuse/internal/metrics"
	"signalfuse/internal/notify"
	"signalfuse/internal/scorer"
	"signalfuse/internal/store"
)

const (
	// MinAnalysisBars is the shortest history worth analyzing at all.
	MinAnalysisBars = 60
	DefaultLookback = 300
)

var ErrInsufficientHistory = errors.New("insufficient history")

type SeriesProvider interface {
	GetSeries(ctx context.Context, code string, lookback int) (domain.Series, error)
}

type DisclosureSource interface {
	Recent(ctx context.Context, code string) ([]domain.Disclosure, error)
}

type ReportCache interface {
	Put(ctx context.Context, code string, report any) error
}

// Engines holds the four technical engines configured from tuning.
type Engines struct {
	Inflection *inflection.Engine
	Pattern    *pattern.Engine
	Levels     *levels.Engine
	Fibonacci  *fibonacci.Engine
}

func NewEngines(offsets []inflection.OffsetRule, lv levels.Options) Engines {
	return Engines{
		Inflection: inflection.New(offsets),
		Pattern:    pattern.New(),
		Levels:     levels.New(lv),
		Fibonacci:  fibonacci.New(),
	}
}

// Report is the full analysis of one instrument.
type Report struct {
	Code       string            `json:"code"`
	AsOf       time.Time         `json:"as_of"`
	Price      float64           `json:"price"`
	Bars       int               `json:"bars"`
	Inflection inflection.Result `json:"inflection"`
	Pattern    pattern.Result    `json:"pattern"`
	Levels     levels.Result     `json:"levels"`
	Fibonacci  fibonacci.Result  `json:"fibonacci"`
	Context    scorer.Context    `json:"context"`
	Adaptive   adaptive.Result   `json:"adaptive"`
	Decision   fusion.Decision   `json:"decision"`
}

func (r Report) Technical() engine.Technical {
	return engine.Technical{Inflection: r.Inflection, Pattern: r.Pattern, Levels: r.Levels, Fibonacci: r.Fibonacci}
}

type Analyzer struct {
	tracer      trace.Tracer
	series      SeriesProvider
	disclosures DisclosureSource
	trades      store.TradeStore
	stats       store.StatsStore
	engines     Engines
	reports     ReportCache
	notifier    notify.Notifier
	metrics     *metrics.Recorder
	logger      zerolog.Logger
}

type AnalyzerDeps struct {
	Series      SeriesProvider
	Disclosures DisclosureSource
	Trades      store.TradeStore
	Stats       store.StatsStore
	Reports     ReportCache
	Notifier    notify.Notifier
	Metrics     *metrics.Recorder
}

func NewAnalyzer(tracer trace.Tracer, engines Engines, deps AnalyzerDeps, logger zerolog.Logger) *Analyzer {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	return &Analyzer{
		tracer:      tracer,
		series:      deps.Series,
		disclosures: deps.Disclosures,
		trades:      deps.Trades,
		stats:       deps.Stats,
		engines:     engines,
		reports:     deps.Reports,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		logger:      logger.With().Str("component", "analyzer").Logger(),
	}
}

// Analyze loads the series for code and runs the full pipeline.
func (a *Analyzer) Analyze(ctx context.Context, code string, lookback int) (Report, error) {
	ctx, span := a.tracer.Start(ctx, "analyzer.analyze")
	defer span.End()
	span.SetAttributes(attribute.String("code", code))
	start := time.Now()

	if lookback <= 0 {
		lookback = DefaultLookback
	}
	s, err := a.series.GetSeries(ctx, code, lookback)
	if err != nil {
		a.metrics.ObserveAnalysis("error", time.Since(start))
		span.SetStatus(codes.Error, err.Error())
		return Report{}, fmt.Errorf("load series %s: %w", code, err)
	}
	s.Code = code
	rep, err := a.AnalyzeSeries(ctx, s)
	if err != nil {
		a.metrics.ObserveAnalysis("rejected", time.Since(start))
		return Report{}, err
	}
	a.metrics.ObserveAnalysis("ok", time.Since(start))
	span.SetAttributes(attribute.String("action", string(rep.Decision.Action)), attribute.Float64("score", rep.Decision.Score))
	return rep, nil
}

// AnalyzeSeries runs the pipeline on an already loaded series.
func (a *Analyzer) AnalyzeSeries(ctx context.Context, s domain.Series) (Report, error) {
	if s.Len() < MinAnalysisBars {
		return Report{}, fmt.Errorf("%w: %s has %d bars, need %d", ErrInsufficientHistory, s.Code, s.Len(), MinAnalysisBars)
	}
	if err := s.Validate(); err != nil {
		return Report{}, fmt.Errorf("validate series %s: %w", s.Code, err)
	}

	last := s.Last()
	rep := Report{Code: s.Code, AsOf: last.Date, Price: last.Close, Bars: s.Len()}

	rep.Inflection = runEngine(a, "inflection", func() inflection.Result { return a.engines.Inflection.Analyze(s) },
		func(err error) inflection.Result { return inflection.Result{EngineResult: domain.Failed("inflection", err)} })
	rep.Pattern = runEngine(a, "pattern", func() pattern.Result { return a.engines.Pattern.Analyze(s) },
		func(err error) pattern.Result { return pattern.Result{EngineResult: domain.Failed("pattern", err)} })
	rep.Levels = runEngine(a, "levels", func() levels.Result { return a.engines.Levels.Analyze(s) },
		func(err error) levels.Result { return levels.Result{EngineResult: domain.Failed("levels", err)} })
	rep.Fibonacci = runEngine(a, "fibonacci", func() fibonacci.Result { return a.engines.Fibonacci.Analyze(s) },
		func(err error) fibonacci.Result { return fibonacci.Result{EngineResult: domain.Failed("fibonacci", err)} })

	rep.Context = a.context(ctx, s)
	tech := rep.Technical()
	rep.Adaptive = adaptive.Analyze(a.adaptiveInput(ctx, s.Code, tech, rep.Context))
	rep.Decision = fusion.Decide(tech, rep.Context, rep.Adaptive)
	a.metrics.Decision(string(rep.Decision.Action))

	if a.reports != nil {
		if err := a.reports.Put(ctx, s.Code, rep); err != nil {
			a.logger.Warn().Err(err).Str("code", s.Code).Msg("cache report")
		}
	}
	if err := a.notifier.Notify(ctx, notify.Event{
		Kind:   notify.KindDecision,
		Code:   s.Code,
		Action: string(rep.Decision.Action),
		Style:  string(rep.Decision.Style),
		Price:  rep.Price,
		Score:  rep.Decision.Score,
		Time:   last.Date,
	}); err != nil {
		a.metrics.NotifyFailed("decision")
		a.logger.Warn().Err(err).Str("code", s.Code).Msg("publish decision")
	}

	a.logger.Debug().
		Str("code", s.Code).
		Str("action", string(rep.Decision.Action)).
		Float64("score", rep.Decision.Score).
		Str("style", string(rep.Decision.Style)).
		Msg("analysis complete")
	return rep, nil
}

func (a *Analyzer) context(ctx context.Context, s domain.Series) scorer.Context {
	var c scorer.Context
	c.Trend = runEngine(a, scorer.NameTrend, func() scorer.TrendResult { return scorer.Trend(s) },
		func(err error) scorer.TrendResult { return scorer.TrendResult{Result: scorer.Failed(scorer.NameTrend, err)} })
	c.Psychology = runEngine(a, scorer.NamePsychology, func() scorer.PsychologyResult { return scorer.Psychology(s) },
		func(err error) scorer.PsychologyResult {
			return scorer.PsychologyResult{Result: scorer.Failed(scorer.NamePsychology, err)}
		})
	c.NetFlow = runEngine(a, scorer.NameNetFlow, func() scorer.NetFlowResult { return scorer.NetFlow(s) },
		func(err error) scorer.NetFlowResult { return scorer.NetFlowResult{Result: scorer.Failed(scorer.NameNetFlow, err)} })
	c.Volatility = runEngine(a, scorer.NameVolatility, func() scorer.VolatilityResult { return scorer.Volatility(s) },
		func(err error) scorer.VolatilityResult {
			return scorer.VolatilityResult{Result: scorer.Failed(scorer.NameVolatility, err)}
		})

	events, err := a.recentDisclosures(ctx, s.Code)
	if err != nil {
		a.logger.Warn().Err(err).Str("code", s.Code).Msg("disclosures unavailable")
		c.Disclosure = scorer.DisclosureResult{Result: scorer.Failed(scorer.NameDisclosure, err)}
	} else {
		c.Disclosure = scorer.Disclosure(events)
	}

	bench := a.benchmark(ctx, s.Code, s.Len())
	c.Index = runEngine(a, scorer.NameIndex, func() scorer.IndexResult { return scorer.Index(s, bench) },
		func(err error) scorer.IndexResult { return scorer.IndexResult{Result: scorer.Failed(scorer.NameIndex, err)} })
	return c
}

func (a *Analyzer) recentDisclosures(ctx context.Context, code string) ([]domain.Disclosure, error) {
	if a.disclosures == nil {
		return nil, nil
	}
	return a.disclosures.Recent(ctx, code)
}

// benchmark loads the peer index series. A missing index is scored as
// unavailable, not as a failure.
func (a *Analyzer) benchmark(ctx context.Context, code string, lookback int) *domain.Series {
	idx, ok := scorer.Benchmark(code)
	if !ok {
		return nil
	}
	s, err := a.series.GetSeries(ctx, idx, lookback)
	if err != nil {
		a.logger.Warn().Err(err).Str("index", idx).Msg("benchmark series unavailable")
		return nil
	}
	if s.Len() == 0 {
		return nil
	}
	s.Code = idx
	return &s
}

func (a *Analyzer) adaptiveInput(ctx context.Context, code string, tech engine.Technical, sc scorer.Context) adaptive.Input {
	in := adaptive.Input{Technical: tech, Context: sc}
	if a.trades != nil {
		trades, err := a.trades.ListByCode(ctx, code)
		if err != nil {
			a.logger.Warn().Err(err).Str("code", code).Msg("trade history unavailable")
		}
		in.Trades = trades
	}
	if a.stats != nil {
		stats, err := a.stats.Patterns(ctx)
		if err != nil {
			a.logger.Warn().Err(err).Msg("pattern stats unavailable")
		}
		in.Stats = stats
		profile, err := a.stats.Profile(ctx, code)
		if err != nil {
			a.logger.Warn().Err(err).Str("code", code).Msg("instrument profile unavailable")
		}
		in.Profile = profile
	}
	return in
}

// runEngine isolates one engine or scorer. A panic becomes an error-status
// result and leaves the siblings untouched.
func runEngine[T any](a *Analyzer, name string, run func() T, failed func(error) T) (res T) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s panicked: %v", name, r)
			a.metrics.EngineFailed(name)
			a.logger.Error().Err(err).Msg("engine failure")
			res = failed(err)
		}
	}()
	return run()
}
