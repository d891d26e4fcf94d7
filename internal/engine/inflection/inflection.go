// Package inflection implements the cloud and cycle analysis engine: five
// reference lines, lagging-span penetration, the 52-bar line slope, the
// 300-bar regime veto, the offset table and the trinity gate.
package inflection

import (
	"math"

	"signalfuse/internal/domain"
	"signalfuse/internal/ladder"
	"signalfuse/internal/ta"
)

const (
	Name    = "inflection"
	MinBars = 100

	convWindow    = 9
	baseWindow    = 26
	spanWindow    = 52
	laggingShift  = 26
	ma10Window    = 10
	slopeLookback = 77
	longHorizon   = 300
	nearExtreme   = 0.01
)

const (
	SignalUltimateBuy   = "ULTIMATE_BUY"
	SignalStrongBuy     = "STRONG_BUY"
	SignalBuy           = "BUY"
	SignalWatch         = "WATCH"
	SignalWait          = "WAIT"
	SignalAbsoluteNoBuy = "ABSOLUTE_NO_BUY"
)

// VetoConfidence is reported when the long-horizon veto overrides the gate.
const VetoConfidence = 99.0

var widthTiers = ladder.Below[string]{
	Rungs: []ladder.Rung[string]{
		{Bound: 1, Label: "very_narrow"},
		{Bound: 2, Label: "narrow"},
		{Bound: 4, Label: "normal"},
	},
	Fallback: "wide",
}

type Lines struct {
	Conversion      float64 `json:"conversion"`
	Base            float64 `json:"base"`
	Leading1        float64 `json:"leading_1"`
	Leading2        float64 `json:"leading_2"`
	Lagging         float64 `json:"lagging"`
	LaggingPosition float64 `json:"lagging_position"`
	CloudBullish    bool    `json:"cloud_bullish"`
}

type Width struct {
	Width         float64 `json:"width"`
	Pct           float64 `json:"pct"`
	Tier          string  `json:"tier"`
	ConvAboveBase bool    `json:"conv_above_base"`
}

type Lagging struct {
	Penetrated       bool    `json:"penetrated"`
	CandlePenetrated bool    `json:"candle_penetrated"`
	AboveMA10        bool    `json:"above_ma10"`
	MA10AtLagging    float64 `json:"ma10_at_lagging"`
	Signal           string  `json:"signal"`
}

type Slope struct {
	Available bool    `json:"available"`
	SpanThen  float64 `json:"span_then"`
	SpanNow   float64 `json:"span_now"`
	Slope     float64 `json:"slope"`
	SlopePct  float64 `json:"slope_pct"`
	New52High bool    `json:"new_52_high"`
	New52Low  bool    `json:"new_52_low"`
	Signal    string  `json:"signal"`
}

type LongHorizon struct {
	Available   bool    `json:"available"`
	MA300       float64 `json:"ma300"`
	Above       bool    `json:"above"`
	DistancePct float64 `json:"distance_pct"`
	Regime      string  `json:"regime"`
	Veto        bool    `json:"veto"`
}

type OffsetReading struct {
	Offset       int     `json:"offset"`
	PriceThen    float64 `json:"price_then"`
	ChangePct    float64 `json:"change_pct"`
	Tier         Tier    `json:"tier"`
	Irresistible bool    `json:"irresistible"`
	Major        bool    `json:"major"`
	Pillar       bool    `json:"pillar"`
	Strong       bool    `json:"strong"`
	Note         string  `json:"note"`
	Warning      string  `json:"warning,omitempty"`
}

type Trinity struct {
	Lagging     bool    `json:"lagging"`
	Cloud       bool    `json:"cloud"`
	MajorOffset bool    `json:"major_offset"`
	SlopeUp     bool    `json:"slope_up"`
	Count       int     `json:"count"`
	Signal      string  `json:"signal"`
	Confidence  float64 `json:"confidence"`
}

func (t Trinity) Complete() bool { return t.Count == 3 }

type Result struct {
	domain.EngineResult
	Price       float64         `json:"price"`
	Lines       Lines           `json:"lines"`
	Width       Width           `json:"width"`
	Lagging     Lagging         `json:"lagging"`
	Slope       Slope           `json:"slope"`
	LongHorizon LongHorizon     `json:"long_horizon"`
	Offsets     []OffsetReading `json:"offsets"`
	Trinity     Trinity         `json:"trinity"`
}

type Engine struct {
	offsets []OffsetRule
}

// New builds an engine over the given offset table, or the default table
// when offsets is empty.
func New(offsets []OffsetRule) *Engine {
	if len(offsets) == 0 {
		offsets = DefaultOffsets()
	}
	return &Engine{offsets: offsets}
}

func (e *Engine) Analyze(s domain.Series) Result {
	if s.Len() < MinBars {
		return Result{EngineResult: domain.Insufficient(Name, MinBars, s.Len())}
	}
	h, l, c := s.Highs(), s.Lows(), s.Closes()
	price := c[len(c)-1]

	lines := computeLines(h, l, c)
	width := computeWidth(lines, price)
	lag := checkLagging(h, c)
	slope := computeSlope(h, l)
	lh := checkLongHorizon(c, lines.CloudBullish)
	offsets := e.readOffsets(c, lag.Penetrated, lines.CloudBullish)
	trinity := evaluateTrinity(lag, lines.CloudBullish, offsets, slope)

	signal, confidence := trinity.Signal, trinity.Confidence
	if lh.Veto {
		signal, confidence = SignalAbsoluteNoBuy, VetoConfidence
	}

	return Result{
		EngineResult: domain.EngineResult{
			Engine:     Name,
			Status:     domain.StatusOK,
			Signal:     signal,
			Confidence: confidence,
		},
		Price:       price,
		Lines:       lines,
		Width:       width,
		Lagging:     lag,
		Slope:       slope,
		LongHorizon: lh,
		Offsets:     offsets,
		Trinity:     trinity,
	}
}

func computeLines(h, l, c []float64) Lines {
	n := len(c)
	conv := ta.Midpoint(h[n-convWindow:], l[n-convWindow:])
	base := ta.Midpoint(h[n-baseWindow:], l[n-baseWindow:])
	lead1 := (conv + base) / 2
	lead2 := ta.Midpoint(h[n-spanWindow:], l[n-spanWindow:])
	return Lines{
		Conversion:      conv,
		Base:            base,
		Leading1:        lead1,
		Leading2:        lead2,
		Lagging:         c[n-1],
		LaggingPosition: c[n-laggingShift],
		CloudBullish:    lead1 > lead2,
	}
}

func computeWidth(lines Lines, price float64) Width {
	w := math.Abs(lines.Conversion - lines.Base)
	pct := 0.0
	if price > 0 {
		pct = w / price * 100
	}
	return Width{
		Width:         w,
		Pct:           pct,
		Tier:          widthTiers.Eval(pct),
		ConvAboveBase: lines.Conversion > lines.Base,
	}
}

// checkLagging compares the current close against the highs of the 26-bar
// window that ended 26 bars ago.
func checkLagging(h, c []float64) Lagging {
	n := len(c)
	price := c[n-1]
	pastHigh := ta.Max(h[n-spanWindow : n-laggingShift])
	out := Lagging{
		Penetrated:       price > pastHigh,
		CandlePenetrated: price > h[n-laggingShift],
	}
	if n >= laggingShift+ma10Window {
		out.MA10AtLagging = ta.Mean(c[n-laggingShift-ma10Window : n-laggingShift])
		out.AboveMA10 = price > out.MA10AtLagging
	}
	switch {
	case out.Penetrated && out.AboveMA10:
		out.Signal = "perfect"
	case out.Penetrated:
		out.Signal = "penetrated"
	case out.AboveMA10:
		out.Signal = "above_ma10"
	default:
		out.Signal = "not_penetrated"
	}
	return out
}

func computeSlope(h, l []float64) Slope {
	n := len(h)
	if n < slopeLookback+spanWindow {
		return Slope{Signal: "insufficient"}
	}
	end := n - slopeLookback
	then := ta.Midpoint(h[end-spanWindow:end], l[end-spanWindow:end])
	high52 := ta.Max(h[n-spanWindow:])
	low52 := ta.Min(l[n-spanWindow:])
	now := (high52 + low52) / 2

	out := Slope{
		Available: true,
		SpanThen:  then,
		SpanNow:   now,
		Slope:     (now - then) / slopeLookback,
		New52High: h[n-1] >= high52*(1-nearExtreme),
		New52Low:  l[n-1] <= low52*(1+nearExtreme),
	}
	if then != 0 {
		out.SlopePct = out.Slope / then * 100 * slopeLookback
	}
	switch {
	case out.Slope > 0 && out.New52High:
		out.Signal = "rising_new_high"
	case out.Slope > 0:
		out.Signal = "rising"
	case out.Slope < 0 && out.New52Low:
		out.Signal = "falling_new_low"
	case out.Slope < 0:
		out.Signal = "falling"
	default:
		out.Signal = "flat"
	}
	return out
}

// checkLongHorizon applies the 300-bar rule. The veto fires only when the
// close is strictly below the average and the cloud is bearish.
func checkLongHorizon(c []float64, cloudBullish bool) LongHorizon {
	if len(c) < longHorizon {
		return LongHorizon{Regime: "unknown"}
	}
	ma := ta.SMA(c, longHorizon)
	price := c[len(c)-1]
	below := price < ma
	out := LongHorizon{
		Available: true,
		MA300:     ma,
		Above:     !below,
	}
	if ma != 0 {
		out.DistancePct = (price - ma) / ma * 100
	}
	switch {
	case below && !cloudBullish:
		out.Regime = "veto"
		out.Veto = true
	case below:
		out.Regime = "danger"
	case cloudBullish:
		out.Regime = "safe"
	default:
		out.Regime = "caution"
	}
	return out
}

func (e *Engine) readOffsets(c []float64, penetrated, cloudBullish bool) []OffsetReading {
	n := len(c)
	price := c[n-1]
	out := make([]OffsetReading, 0, len(e.offsets))
	for _, rule := range e.offsets {
		idx := n - 1 - rule.Offset
		if idx < 0 || c[idx] == 0 {
			continue
		}
		change := (price/c[idx] - 1) * 100
		out = append(out, OffsetReading{
			Offset:       rule.Offset,
			PriceThen:    c[idx],
			ChangePct:    change,
			Tier:         rule.Tier,
			Irresistible: rule.Irresistible,
			Major:        rule.Major,
			Pillar:       rule.Pillar,
			Strong:       rule.strong(change, cloudBullish, penetrated),
			Note:         rule.Note,
			Warning:      rule.Warning,
		})
	}
	return out
}

var trinityLadder = []struct {
	count      int
	slope      bool
	signal     string
	confidence float64
}{
	{3, true, SignalUltimateBuy, 99.9},
	{3, false, SignalStrongBuy, 95},
	{2, false, SignalBuy, 70},
	{1, false, SignalWatch, 40},
	{0, false, SignalWait, 20},
}

func evaluateTrinity(lag Lagging, cloudBullish bool, offsets []OffsetReading, slope Slope) Trinity {
	t := Trinity{
		Lagging: lag.Penetrated,
		Cloud:   cloudBullish,
		SlopeUp: slope.Slope > 0,
	}
	for _, o := range offsets {
		if o.Pillar && o.Strong {
			t.MajorOffset = true
			break
		}
	}
	for _, ok := range []bool{t.Lagging, t.Cloud, t.MajorOffset} {
		if ok {
			t.Count++
		}
	}
	for _, row := range trinityLadder {
		if t.Count == row.count && (!row.slope || t.SlopeUp) {
			t.Signal, t.Confidence = row.signal, row.confidence
			break
		}
	}
	return t
}
