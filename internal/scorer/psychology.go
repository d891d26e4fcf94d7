package scorer

import (
	"signalfuse/internal/domain"
	"signalfuse/internal/ladder"
	"signalfuse/internal/ta"
)

const (
	psychologyMinBars = 14
	rsiPeriod         = 14
	stochPeriod       = 14
	stochSmooth       = 3
	fgVolWindow       = 20
	fgVolCap          = 20
)

type sentiment struct {
	label string
	score int
	style domain.Style
}

// Bands are checked fear first, then greed, so the two ladders never overlap.
var (
	fearBands = ladder.Below[*sentiment]{Rungs: []ladder.Rung[*sentiment]{
		{Bound: 20, Label: &sentiment{"extreme_fear", 5, domain.StyleLongTerm}},
		{Bound: 40, Label: &sentiment{"fear", 3, domain.StyleSwing}},
	}}
	greedBands = ladder.Above[*sentiment]{Rungs: []ladder.Rung[*sentiment]{
		{Bound: 80, Label: &sentiment{"extreme_greed", -5, domain.StyleScalp}},
		{Bound: 60, Label: &sentiment{"greed", -2, domain.StyleScalp}},
	}}
	neutralSentiment = sentiment{"neutral", 0, domain.StyleSwing}
)

type PsychologyResult struct {
	Result
	RSI        float64 `json:"rsi"`
	StochK     float64 `json:"stoch_k"`
	StochD     float64 `json:"stoch_d"`
	FearGreed  float64 `json:"fear_greed"`
	Volatility float64 `json:"volatility"`
}

// Psychology blends RSI, stochastic %K and recent return volatility into a
// fear-greed index and scores the extremes.
func Psychology(s domain.Series) PsychologyResult {
	if s.Len() < psychologyMinBars {
		r := insufficient(NamePsychology, psychologyMinBars, s.Len())
		r.Style = domain.StyleSwing
		return PsychologyResult{Result: r}
	}
	closes := s.Closes()
	res := PsychologyResult{Result: newResult(NamePsychology)}
	res.RSI = ta.Round(ta.RollingRSI(closes, rsiPeriod), 2)
	k, d := ta.Stochastic(s.Highs(), s.Lows(), closes, stochPeriod, stochSmooth)
	res.StochK, res.StochD = ta.Round(k, 2), ta.Round(d, 2)

	volTerm := 10.0
	if len(closes) >= fgVolWindow {
		rets := ta.PctChanges(closes)
		if len(rets) > fgVolWindow {
			rets = rets[len(rets)-fgVolWindow:]
		}
		res.Volatility = ta.Round(ta.SampleStd(rets)*100, 4)
		volTerm = ta.Clamp(res.Volatility*2, 0, fgVolCap)
	}
	res.FearGreed = ta.Round(res.RSI*0.5+res.StochK*0.3+volTerm*0.2, 2)

	band := bandFor(res.FearGreed)
	res.Label, res.Style = band.label, band.style
	res.add(band.score, "fear-greed %.1f %s", res.FearGreed, band.label)

	signal := ""
	switch rsi := res.RSI; {
	case rsi < 30:
		signal = "OVERSOLD"
		res.add(8, "RSI oversold %.1f", rsi)
	case rsi < 40:
		res.add(3, "RSI buy zone %.1f", rsi)
	case rsi > 70:
		signal = "OVERBOUGHT"
		res.add(-8, "RSI overbought %.1f", rsi)
	case rsi > 60:
		res.add(-3, "RSI sell zone %.1f", rsi)
	}

	switch {
	case k < 20 && d < 20:
		res.add(5, "stochastic oversold K %.1f D %.1f", k, d)
	case k > d && k < 50:
		res.add(3, "stochastic K crossing above D at %.1f", k)
	case k > 80 && d > 80:
		res.add(-5, "stochastic overbought K %.1f D %.1f", k, d)
	case k < d && k > 50:
		res.add(-3, "stochastic K crossing below D at %.1f", k)
	}

	if signal == "" {
		switch {
		case res.Score > 5:
			signal = "BUY"
		case res.Score < -5:
			signal = "SELL"
		default:
			signal = "NEUTRAL"
		}
	}
	res.Signal = signal
	return res
}

func bandFor(fg float64) sentiment {
	if b := fearBands.Eval(fg); b != nil {
		return *b
	}
	if b := greedBands.Eval(fg); b != nil {
		return *b
	}
	return neutralSentiment
}
