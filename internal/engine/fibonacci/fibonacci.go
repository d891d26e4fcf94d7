// Package fibonacci anchors retracement and extension grids on the widest
// swing in the window and reports which grid lines price is sitting on.
package fibonacci

import (
	"math"

	"signalfuse/internal/domain"
	"signalfuse/internal/ta"
)

const (
	Name    = "fibonacci"
	MinBars = 60

	pivotRadius = 10
	nearPct     = 0.015
	trendFast   = 20
	trendSlow   = 50
)

const (
	SignalSupportStrong    = "FIBO_SUPPORT_STRONG"
	SignalSupport          = "FIBO_SUPPORT"
	SignalResistanceStrong = "FIBO_RESISTANCE_STRONG"
	SignalResistance       = "FIBO_RESISTANCE"
	SignalExtensionTarget  = "FIBO_EXTENSION_TARGET"
	SignalAboveSwingHigh   = "ABOVE_SWING_HIGH"
	SignalBelowSwingLow    = "BELOW_SWING_LOW"
	SignalHold             = "HOLD"
)

var (
	Retracements = []float64{0.236, 0.382, 0.5, 0.618, 0.786}
	Extensions   = []float64{1.0, 1.272, 1.414, 1.618, 2.0, 2.618}
)

type Level struct {
	Ratio float64 `json:"ratio"`
	Price float64 `json:"price"`
}

// Golden reports whether the level is one of the two retracements treated as
// strong.
func (l Level) Golden() bool { return l.Ratio == 0.5 || l.Ratio == 0.618 }

type Result struct {
	domain.EngineResult
	Price        float64 `json:"price"`
	Trend        string  `json:"trend"`
	SwingHigh    float64 `json:"swing_high"`
	SwingLow     float64 `json:"swing_low"`
	HighIndex    int     `json:"high_index"`
	LowIndex     int     `json:"low_index"`
	Uptrend      bool    `json:"uptrend"`
	Retracements []Level `json:"retracements"`
	Extensions   []Level `json:"extensions"`
	NearRet      []Level `json:"near_retracements"`
	NearExt      []Level `json:"near_extensions"`
}

type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Analyze(s domain.Series) Result {
	if s.Len() < MinBars {
		return Result{EngineResult: domain.Insufficient(Name, MinBars, s.Len())}
	}
	highs, lows, closes := s.Highs(), s.Lows(), s.Closes()
	price := closes[len(closes)-1]
	res := Result{
		EngineResult: domain.EngineResult{Engine: Name, Status: domain.StatusOK, Signal: SignalHold},
		Price:        price,
		Trend:        trend(closes),
	}

	hi, okHi := extreme(ta.PivotHighs(highs, pivotRadius), func(a, b float64) bool { return a > b })
	lo, okLo := extreme(ta.PivotLows(lows, pivotRadius), func(a, b float64) bool { return a < b })
	if !okHi || !okLo {
		res.Reason = "no swing pivots"
		return res
	}
	res.SwingHigh, res.HighIndex = hi.Price, hi.Index
	res.SwingLow, res.LowIndex = lo.Price, lo.Index
	res.Uptrend = lo.Index < hi.Index
	res.Retracements, res.Extensions = Grid(hi.Price, lo.Price, res.Uptrend)
	res.NearRet = near(price, res.Retracements)
	res.NearExt = near(price, res.Extensions)
	res.Signal = classify(res)
	return res
}

// Grid lays out retracements from the far end of the swing back toward its
// origin and extensions from the origin through the far end.
func Grid(high, low float64, uptrend bool) (ret, ext []Level) {
	diff := high - low
	for _, r := range Retracements {
		p := low + diff*r
		if uptrend {
			p = high - diff*r
		}
		ret = append(ret, Level{Ratio: r, Price: ta.Round(p, 2)})
	}
	for _, x := range Extensions {
		p := high - diff*x
		if uptrend {
			p = low + diff*x
		}
		ext = append(ext, Level{Ratio: x, Price: ta.Round(p, 2)})
	}
	return ret, ext
}

func classify(r Result) string {
	if r.Uptrend {
		switch {
		case len(r.NearRet) > 0 && anyGolden(r.NearRet):
			return SignalSupportStrong
		case len(r.NearRet) > 0:
			return SignalSupport
		case r.Price > r.SwingHigh && len(r.NearExt) > 0:
			return SignalExtensionTarget
		case r.Price > r.SwingHigh:
			return SignalAboveSwingHigh
		case r.Price < r.SwingLow:
			return SignalBelowSwingLow
		}
		return SignalHold
	}
	switch {
	case len(r.NearRet) > 0 && anyGolden(r.NearRet):
		return SignalResistanceStrong
	case len(r.NearRet) > 0:
		return SignalResistance
	case r.Price < r.SwingLow && len(r.NearExt) > 0:
		return SignalExtensionTarget
	case r.Price < r.SwingLow:
		return SignalBelowSwingLow
	case r.Price > r.SwingHigh:
		return SignalAboveSwingHigh
	}
	return SignalHold
}

func anyGolden(levels []Level) bool {
	for _, l := range levels {
		if l.Golden() {
			return true
		}
	}
	return false
}

func near(price float64, levels []Level) []Level {
	out := []Level{}
	if price == 0 {
		return out
	}
	for _, l := range levels {
		if l.Price > 0 && math.Abs(price-l.Price)/price < nearPct {
			out = append(out, l)
		}
	}
	return out
}

// extreme returns the first pivot that no later pivot beats under better.
func extreme(p []ta.Pivot, better func(a, b float64) bool) (ta.Pivot, bool) {
	if len(p) == 0 {
		return ta.Pivot{}, false
	}
	best := p[0]
	for _, v := range p[1:] {
		if better(v.Price, best.Price) {
			best = v
		}
	}
	return best, true
}

// trend compares price with the 20 and 50 bar means.
func trend(closes []float64) string {
	if len(closes) < trendSlow {
		return "unknown"
	}
	price := closes[len(closes)-1]
	fast, slow := ta.SMA(closes, trendFast), ta.SMA(closes, trendSlow)
	switch {
	case price > fast && fast > slow:
		return "uptrend"
	case price < fast && fast < slow:
		return "downtrend"
	default:
		return "sideways"
	}
}
