// Package pattern runs a battery of independent chart and candle detectors
// and tallies their directional tags.
package pattern

import (
	"strings"

	"signalfuse/internal/domain"
)

const (
	Name    = "pattern"
	MinBars = 60

	pivotRadius      = 5
	strongConfidence = 150
)

const (
	SignalStrongBuy  = "STRONG_BUY"
	SignalBuy        = "BUY"
	SignalHold       = "HOLD"
	SignalSell       = "SELL"
	SignalStrongSell = "STRONG_SELL"
)

// Detection is the outcome of one detector. Only detected entries are kept
// in a Result.
type Detection struct {
	Pattern    string  `json:"pattern"`
	Confidence float64 `json:"confidence"`
	Signal     string  `json:"signal"`
	Target     float64 `json:"target,omitempty"`
	GapPct     float64 `json:"gap_pct,omitempty"`
	VolRatio   float64 `json:"vol_ratio,omitempty"`
}

func (d Detection) IsBuy() bool  { return strings.Contains(d.Signal, "BUY") }
func (d Detection) IsSell() bool { return !d.IsBuy() && strings.Contains(d.Signal, "SELL") }

type Result struct {
	domain.EngineResult
	Detected        []Detection `json:"detected"`
	BuyCount        int         `json:"buy_count"`
	SellCount       int         `json:"sell_count"`
	TotalConfidence float64     `json:"total_confidence"`
}

// Names lists the detected pattern names in detector order.
func (r Result) Names() []string {
	out := make([]string, 0, len(r.Detected))
	for _, d := range r.Detected {
		out = append(out, d.Pattern)
	}
	return out
}

func (r Result) Has(name string) bool {
	for _, d := range r.Detected {
		if d.Pattern == name {
			return true
		}
	}
	return false
}

// ohlcv holds the columns every detector reads.
type ohlcv struct {
	open, high, low, close, volume []float64
}

type detector func(ohlcv) (Detection, bool)

type Engine struct {
	detectors []detector
}

func New() *Engine {
	return &Engine{detectors: []detector{
		doubleBottom, doubleTop,
		tripleBottom, tripleTop,
		headShoulders, inverseHeadShoulders,
		ascendingTriangle, descendingTriangle,
		bullishEngulfing, bearishEngulfing,
		morningStar, eveningStar,
		hammer, shootingStar, doji,
		threeWhiteSoldiers, threeBlackCrows,
		gapUp, gapDown,
		volumeSpike,
	}}
}

func (e *Engine) Analyze(s domain.Series) Result {
	if s.Len() < MinBars {
		return Result{EngineResult: domain.Insufficient(Name, MinBars, s.Len())}
	}
	cols := ohlcv{open: s.Opens(), high: s.Highs(), low: s.Lows(), close: s.Closes(), volume: s.Volumes()}

	res := Result{Detected: []Detection{}}
	for _, detect := range e.detectors {
		d, ok := detect(cols)
		if !ok {
			continue
		}
		res.Detected = append(res.Detected, d)
		res.TotalConfidence += d.Confidence
		switch {
		case d.IsBuy():
			res.BuyCount++
		case d.IsSell():
			res.SellCount++
		}
	}

	res.EngineResult = domain.EngineResult{
		Engine:     Name,
		Status:     domain.StatusOK,
		Signal:     aggregate(res.BuyCount, res.SellCount, res.TotalConfidence),
		Confidence: res.TotalConfidence,
	}
	return res
}

// aggregate compares detection counts per side and upgrades the winning
// side when the summed confidence of all detections exceeds 150.
func aggregate(buy, sell int, total float64) string {
	switch {
	case buy > sell && total > strongConfidence:
		return SignalStrongBuy
	case buy > sell:
		return SignalBuy
	case sell > buy && total > strongConfidence:
		return SignalStrongSell
	case sell > buy:
		return SignalSell
	default:
		return SignalHold
	}
}
