package pattern

import (
	"math"

	"signalfuse/internal/ta"
)

const (
	gapThresholdPct = 1.0
	volumeWindow    = 20
	volumeMultiple  = 2.0
)

// at returns the value k bars back from the end, k=1 being the last bar.
func at(v []float64, k int) float64 { return v[len(v)-k] }

func bullishEngulfing(c ohlcv) (Detection, bool) {
	if len(c.close) < 3 {
		return Detection{}, false
	}
	po, pc := at(c.open, 2), at(c.close, 2)
	co, cc := at(c.open, 1), at(c.close, 1)
	if pc < po && cc > co && co < pc && cc > po {
		return Detection{Pattern: "bullish_engulfing", Confidence: 75, Signal: SignalBuy}, true
	}
	return Detection{}, false
}

func bearishEngulfing(c ohlcv) (Detection, bool) {
	if len(c.close) < 3 {
		return Detection{}, false
	}
	po, pc := at(c.open, 2), at(c.close, 2)
	co, cc := at(c.open, 1), at(c.close, 1)
	if pc > po && cc < co && co > pc && cc < po {
		return Detection{Pattern: "bearish_engulfing", Confidence: 75, Signal: SignalSell}, true
	}
	return Detection{}, false
}

func smallMiddleBody(c ohlcv) bool {
	return math.Abs(at(c.close, 2)-at(c.open, 2)) < (at(c.high, 2)-at(c.low, 2))*0.3
}

func morningStar(c ohlcv) (Detection, bool) {
	if len(c.close) < 4 {
		return Detection{}, false
	}
	firstBearish := at(c.close, 3) < at(c.open, 3)
	gapDown := at(c.open, 2) < at(c.close, 3)
	thirdBullish := at(c.close, 1) > at(c.open, 1)
	recovered := at(c.close, 1) > (at(c.open, 3)+at(c.close, 3))/2
	if firstBearish && smallMiddleBody(c) && gapDown && thirdBullish && recovered {
		return Detection{Pattern: "morning_star", Confidence: 82, Signal: SignalBuy}, true
	}
	return Detection{}, false
}

func eveningStar(c ohlcv) (Detection, bool) {
	if len(c.close) < 4 {
		return Detection{}, false
	}
	firstBullish := at(c.close, 3) > at(c.open, 3)
	gapUp := at(c.open, 2) > at(c.close, 3)
	thirdBearish := at(c.close, 1) < at(c.open, 1)
	declined := at(c.close, 1) < (at(c.open, 3)+at(c.close, 3))/2
	if firstBullish && smallMiddleBody(c) && gapUp && thirdBearish && declined {
		return Detection{Pattern: "evening_star", Confidence: 82, Signal: SignalSell}, true
	}
	return Detection{}, false
}

type candle struct {
	body, upper, lower, span float64
}

func lastCandle(c ohlcv) candle {
	o, cl, h, l := at(c.open, 1), at(c.close, 1), at(c.high, 1), at(c.low, 1)
	return candle{
		body:  math.Abs(cl - o),
		upper: h - math.Max(o, cl),
		lower: math.Min(o, cl) - l,
		span:  h - l,
	}
}

func hammer(c ohlcv) (Detection, bool) {
	if len(c.close) < 2 {
		return Detection{}, false
	}
	k := lastCandle(c)
	if k.body > 0 && k.lower > k.body*2 && k.upper < k.body*0.5 {
		return Detection{Pattern: "hammer", Confidence: 70, Signal: SignalBuy}, true
	}
	return Detection{}, false
}

func shootingStar(c ohlcv) (Detection, bool) {
	if len(c.close) < 2 {
		return Detection{}, false
	}
	k := lastCandle(c)
	if k.body > 0 && k.upper > k.body*2 && k.lower < k.body*0.5 {
		return Detection{Pattern: "shooting_star", Confidence: 70, Signal: SignalSell}, true
	}
	return Detection{}, false
}

func doji(c ohlcv) (Detection, bool) {
	if len(c.close) < 2 {
		return Detection{}, false
	}
	k := lastCandle(c)
	if k.span > 0 && k.body < k.span*0.1 {
		return Detection{Pattern: "doji", Confidence: 60, Signal: "REVERSAL_WARNING"}, true
	}
	return Detection{}, false
}

func threeWhiteSoldiers(c ohlcv) (Detection, bool) {
	if len(c.close) < 4 {
		return Detection{}, false
	}
	for k := 1; k <= 3; k++ {
		if at(c.close, k) <= at(c.open, k) {
			return Detection{}, false
		}
	}
	higherCloses := at(c.close, 1) > at(c.close, 2) && at(c.close, 2) > at(c.close, 3)
	risingOpens := at(c.open, 2) > at(c.open, 3) && at(c.open, 1) > at(c.open, 2)
	if higherCloses && risingOpens {
		return Detection{Pattern: "three_white_soldiers", Confidence: 85, Signal: SignalStrongBuy}, true
	}
	return Detection{}, false
}

func threeBlackCrows(c ohlcv) (Detection, bool) {
	if len(c.close) < 4 {
		return Detection{}, false
	}
	for k := 1; k <= 3; k++ {
		if at(c.close, k) >= at(c.open, k) {
			return Detection{}, false
		}
	}
	lowerCloses := at(c.close, 1) < at(c.close, 2) && at(c.close, 2) < at(c.close, 3)
	fallingOpens := at(c.open, 2) < at(c.open, 3) && at(c.open, 1) < at(c.open, 2)
	if lowerCloses && fallingOpens {
		return Detection{Pattern: "three_black_crows", Confidence: 85, Signal: SignalStrongSell}, true
	}
	return Detection{}, false
}

func gapUp(c ohlcv) (Detection, bool) {
	if len(c.low) < 2 {
		return Detection{}, false
	}
	prevHigh := at(c.high, 2)
	if at(c.low, 1) <= prevHigh || prevHigh == 0 {
		return Detection{}, false
	}
	gap := (at(c.low, 1) - prevHigh) / prevHigh * 100
	if gap <= gapThresholdPct {
		return Detection{}, false
	}
	return Detection{Pattern: "gap_up", Confidence: 65, Signal: "MOMENTUM", GapPct: ta.Round(gap, 2)}, true
}

func gapDown(c ohlcv) (Detection, bool) {
	if len(c.low) < 2 {
		return Detection{}, false
	}
	prevLow := at(c.low, 2)
	if at(c.high, 1) >= prevLow || prevLow == 0 {
		return Detection{}, false
	}
	gap := (prevLow - at(c.high, 1)) / prevLow * 100
	if gap <= gapThresholdPct {
		return Detection{}, false
	}
	return Detection{Pattern: "gap_down", Confidence: 65, Signal: "WEAKNESS", GapPct: ta.Round(gap, 2)}, true
}

// volumeSpike compares the last volume with the mean of the 20 before it.
func volumeSpike(c ohlcv) (Detection, bool) {
	n := len(c.volume)
	if n < volumeWindow+1 {
		return Detection{}, false
	}
	avg := ta.Mean(c.volume[n-volumeWindow-1 : n-1])
	if avg <= 0 || c.volume[n-1] <= avg*volumeMultiple {
		return Detection{}, false
	}
	change := 0.0
	if prev := at(c.close, 2); prev > 0 {
		change = (at(c.close, 1) - prev) / prev * 100
	}
	signal := "VOLUME_SELL"
	if change > 0 {
		signal = "VOLUME_BUY"
	}
	return Detection{
		Pattern:    "volume_spike",
		Confidence: 70,
		Signal:     signal,
		VolRatio:   ta.Round(c.volume[n-1]/avg, 2),
	}, true
}
