package pattern

import (
	"math"

	"signalfuse/internal/ta"
)

const (
	doubleTolerance   = 0.05
	tripleTolerance   = 0.03
	shoulderTolerance = 0.05
	triangleWindow    = 20
	flatSideStd       = 0.02
	targetMultiple    = 1.5
)

func doubleBottom(c ohlcv) (Detection, bool) {
	lows := ta.PivotLows(c.low, pivotRadius)
	if len(lows) < 2 {
		return Detection{}, false
	}
	a, b := lows[len(lows)-2], lows[len(lows)-1]
	if a.Price == 0 || b.Price == 0 {
		return Detection{}, false
	}
	neckline := ta.Max(c.high[a.Index : b.Index+1])
	price := last(c.close)
	if math.Abs(a.Price-b.Price)/a.Price >= doubleTolerance || price <= neckline {
		return Detection{}, false
	}
	bottom := math.Min(a.Price, b.Price)
	return Detection{
		Pattern:    "double_bottom",
		Confidence: 85,
		Signal:     SignalBuy,
		Target:     price + (neckline-bottom)*targetMultiple,
	}, true
}

func doubleTop(c ohlcv) (Detection, bool) {
	highs := ta.PivotHighs(c.high, pivotRadius)
	if len(highs) < 2 {
		return Detection{}, false
	}
	a, b := highs[len(highs)-2], highs[len(highs)-1]
	if a.Price == 0 || b.Price == 0 {
		return Detection{}, false
	}
	neckline := ta.Min(c.low[a.Index : b.Index+1])
	if math.Abs(a.Price-b.Price)/a.Price >= doubleTolerance || last(c.close) >= neckline {
		return Detection{}, false
	}
	return Detection{Pattern: "double_top", Confidence: 85, Signal: SignalSell}, true
}

func withinOfMean(p []ta.Pivot, tol float64) bool {
	var sum float64
	for _, v := range p {
		if v.Price == 0 {
			return false
		}
		sum += v.Price
	}
	avg := sum / float64(len(p))
	if avg <= 0 {
		return false
	}
	for _, v := range p {
		if math.Abs(v.Price-avg)/avg >= tol {
			return false
		}
	}
	return true
}

func tripleBottom(c ohlcv) (Detection, bool) {
	lows := ta.PivotLows(c.low, pivotRadius)
	if len(lows) < 3 {
		return Detection{}, false
	}
	p := ta.LastPivots(lows, 3)
	if !withinOfMean(p, tripleTolerance) {
		return Detection{}, false
	}
	if last(c.close) <= ta.Max(c.high[p[0].Index:p[2].Index+1]) {
		return Detection{}, false
	}
	return Detection{Pattern: "triple_bottom", Confidence: 90, Signal: SignalStrongBuy}, true
}

func tripleTop(c ohlcv) (Detection, bool) {
	highs := ta.PivotHighs(c.high, pivotRadius)
	if len(highs) < 3 {
		return Detection{}, false
	}
	p := ta.LastPivots(highs, 3)
	if !withinOfMean(p, tripleTolerance) {
		return Detection{}, false
	}
	if last(c.close) >= ta.Min(c.low[p[0].Index:p[2].Index+1]) {
		return Detection{}, false
	}
	return Detection{Pattern: "triple_top", Confidence: 90, Signal: SignalStrongSell}, true
}

func headShoulders(c ohlcv) (Detection, bool) {
	highs := ta.PivotHighs(c.high, pivotRadius)
	if len(highs) < 3 {
		return Detection{}, false
	}
	p := ta.LastPivots(highs, 3)
	left, head, right := p[0].Price, p[1].Price, p[2].Price
	if left <= 0 || head <= left || head <= right || math.Abs(left-right)/left >= shoulderTolerance {
		return Detection{}, false
	}
	if last(c.close) >= ta.Min(c.low[p[0].Index:p[2].Index+1]) {
		return Detection{}, false
	}
	return Detection{Pattern: "head_shoulders", Confidence: 92, Signal: SignalStrongSell}, true
}

func inverseHeadShoulders(c ohlcv) (Detection, bool) {
	lows := ta.PivotLows(c.low, pivotRadius)
	if len(lows) < 3 {
		return Detection{}, false
	}
	p := ta.LastPivots(lows, 3)
	left, head, right := p[0].Price, p[1].Price, p[2].Price
	if left <= 0 || head >= left || head >= right || math.Abs(left-right)/left >= shoulderTolerance {
		return Detection{}, false
	}
	if last(c.close) <= ta.Max(c.high[p[0].Index:p[2].Index+1]) {
		return Detection{}, false
	}
	return Detection{Pattern: "inverse_head_shoulders", Confidence: 92, Signal: SignalStrongBuy}, true
}

// ascendingTriangle wants a flat resistance (low std of highs), rising lows
// and a close through the resistance mean.
func ascendingTriangle(c ohlcv) (Detection, bool) {
	if len(c.high) < triangleWindow {
		return Detection{}, false
	}
	highs := c.high[len(c.high)-triangleWindow:]
	lows := c.low[len(c.low)-triangleWindow:]
	mean, std := ta.MeanStd(highs)
	if std >= mean*flatSideStd || ta.LinearSlope(lows) <= 0 || last(c.close) <= mean {
		return Detection{}, false
	}
	return Detection{Pattern: "ascending_triangle", Confidence: 80, Signal: SignalBuy}, true
}

func descendingTriangle(c ohlcv) (Detection, bool) {
	if len(c.low) < triangleWindow {
		return Detection{}, false
	}
	highs := c.high[len(c.high)-triangleWindow:]
	lows := c.low[len(c.low)-triangleWindow:]
	mean, std := ta.MeanStd(lows)
	if std >= mean*flatSideStd || ta.LinearSlope(highs) >= 0 || last(c.close) >= mean {
		return Detection{}, false
	}
	return Detection{Pattern: "descending_triangle", Confidence: 80, Signal: SignalSell}, true
}

func last(v []float64) float64 { return v[len(v)-1] }
