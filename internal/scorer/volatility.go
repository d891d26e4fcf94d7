package scorer

import (
	"math"

	"signalfuse/internal/domain"
	"signalfuse/internal/ladder"
	"signalfuse/internal/ta"
)

const (
	atrPeriod    = 14
	atrAvgWindow = 20
	stopATR      = 2.0
	expandFactor = 1.2
	shrinkFactor = 0.8
)

// TargetMultiples are the ATR multiples added to price for the three targets.
var TargetMultiples = [3]float64{1.5, 3, 5}

type volTier struct {
	level  string
	signal string
	score  int
	style  domain.Style
}

var volTiers = ladder.Above[volTier]{
	Rungs: []ladder.Rung[volTier]{
		{Bound: 5, Label: volTier{"very_high", "HIGH_VOLATILITY", 0, domain.StyleScalp}},
		{Bound: 3, Label: volTier{"high", "HIGH_VOLATILITY", 0, domain.StyleScalp}},
		{Bound: 1.5, Label: volTier{"normal", "OPTIMAL_VOLATILITY", 5, domain.StyleSwing}},
		{Bound: 0.8, Label: volTier{"low", "LOW_VOLATILITY", 3, domain.StyleSwing}},
	},
	Fallback: volTier{"very_low", "VERY_LOW_VOLATILITY", 2, domain.StyleLongTerm},
}

type VolatilityResult struct {
	Result
	ATR      float64    `json:"atr"`
	AvgATR   float64    `json:"avg_atr"`
	ATRPct   float64    `json:"atr_pct"`
	Trend    string     `json:"trend"`
	StopLoss float64    `json:"stop_loss"`
	Targets  [3]float64 `json:"targets"`
}

// Volatility tiers the ATR as a share of price, recommends a holding style and
// derives stop and target levels.
func Volatility(s domain.Series) VolatilityResult {
	if s.Len() < atrPeriod {
		r := insufficient(NameVolatility, atrPeriod, s.Len())
		r.Style = domain.StyleSwing
		return VolatilityResult{Result: r}
	}
	closes := s.Closes()
	price := closes[len(closes)-1]
	tr := ta.TrueRangeSeries(s.Highs(), s.Lows(), closes)
	atrSeries := ta.SMASeries(tr, atrPeriod)

	res := VolatilityResult{Result: newResult(NameVolatility)}
	res.ATR = atrSeries[len(atrSeries)-1]
	res.AvgATR = meanDefined(tail(atrSeries, atrAvgWindow))
	if price > 0 {
		res.ATRPct = ta.Round(res.ATR/price*100, 2)
	}

	tier := volTiers.Eval(res.ATRPct)
	res.Signal, res.Label, res.Style = tier.signal, tier.level, tier.style
	res.add(tier.score, "%s volatility, ATR %.2f%% of price", tier.level, res.ATRPct)

	switch {
	case res.ATR > res.AvgATR*expandFactor:
		res.Trend = "expanding"
		res.note("volatility expanding")
	case res.ATR < res.AvgATR*shrinkFactor:
		res.Trend = "contracting"
		res.note("volatility contracting")
	default:
		res.Trend = "stable"
		res.note("volatility stable")
	}

	res.StopLoss = price - stopATR*res.ATR
	for i, m := range TargetMultiples {
		res.Targets[i] = price + m*res.ATR
	}
	return res
}

func meanDefined(v []float64) float64 {
	var sum float64
	var n int
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
