package scorer

import (
	"math"
	"strconv"

	"signalfuse/internal/domain"
	"signalfuse/internal/ta"
)

const trendMinBars = 60

var alignmentWindows = []int{5, 20, 60, 120, 200}

const (
	AlignPerfectUp   = "perfect_upward"
	AlignUp          = "upward"
	AlignNeutral     = "neutral"
	AlignDown        = "downward"
	AlignPerfectDown = "perfect_downward"
)

type TrendResult struct {
	Result
	Alignment string             `json:"alignment"`
	Return20  float64            `json:"return_20"`
	Return60  float64            `json:"return_60"`
	MA20Slope float64            `json:"ma20_slope"`
	MAs       map[string]float64 `json:"mas"`
	// AboveMA300 is nil when fewer than 300 bars are available.
	AboveMA300 *bool `json:"above_ma300,omitempty"`
}

// Trend scores moving-average ordering and the 20-bar return.
func Trend(s domain.Series) TrendResult {
	if s.Len() < trendMinBars {
		return TrendResult{Result: insufficient(NameTrend, trendMinBars, s.Len())}
	}
	closes := s.Closes()
	price := closes[len(closes)-1]
	res := TrendResult{Result: newResult(NameTrend), MAs: map[string]float64{}}

	var mas []float64
	for _, w := range alignmentWindows {
		if len(closes) < w {
			continue
		}
		v := ta.SMA(closes, w)
		mas = append(mas, v)
		res.MAs["ma"+strconv.Itoa(w)] = ta.Round(v, 2)
	}
	res.Alignment = alignment(price, mas)

	switch res.Alignment {
	case AlignPerfectUp:
		res.Signal, res.Label = "BULL_MARKET", "strong_uptrend"
		res.add(8, "perfect upward alignment")
	case AlignUp:
		res.Signal, res.Label = "BULL_MARKET", "uptrend"
		res.add(5, "upward alignment")
	case AlignDown:
		res.Signal, res.Label = "BEAR_MARKET", "downtrend"
		res.add(-5, "downward alignment")
	case AlignPerfectDown:
		res.Signal, res.Label = "BEAR_MARKET", "strong_downtrend"
		res.add(-10, "perfect downward alignment")
	default:
		res.Signal, res.Label = "SIDEWAYS", "sideways"
		res.add(3, "mixed alignment")
	}

	res.Return20 = ta.Round(pctReturn(closes, 20), 2)
	res.Return60 = ta.Round(pctReturn(closes, 60), 2)
	if len(closes) >= 25 {
		ma20 := ta.SMASeries(closes, 20)
		now, then := ma20[len(ma20)-1], ma20[len(ma20)-5]
		if then != 0 && !math.IsNaN(then) {
			res.MA20Slope = ta.Round((now/then-1)*100, 2)
		}
	}
	switch r := res.Return20; {
	case r > 10:
		res.add(3, "20-bar return %.1f%% strong", r)
	case r > 5:
		res.add(2, "20-bar return %.1f%% rising", r)
	case r < -10:
		res.add(-3, "20-bar return %.1f%% weak", r)
	case r < -5:
		res.add(-2, "20-bar return %.1f%% falling", r)
	}

	if len(closes) >= 300 {
		ma300 := ta.SMA(closes, 300)
		res.MAs["ma300"] = ta.Round(ma300, 2)
		above := price > ma300
		res.AboveMA300 = &above
		if above {
			res.note("above the 300-bar average")
		} else {
			res.note("below the 300-bar average")
		}
	}
	return res
}

// alignment needs at least three averages ordered shortest first.
func alignment(price float64, mas []float64) string {
	if len(mas) < 3 {
		return AlignNeutral
	}
	up, down := true, true
	for i := 0; i < len(mas)-1; i++ {
		if !(mas[i] > mas[i+1]) {
			up = false
		}
		if !(mas[i] < mas[i+1]) {
			down = false
		}
	}
	switch {
	case up && price > mas[0]:
		return AlignPerfectUp
	case up:
		return AlignUp
	case down && price < mas[len(mas)-1]:
		return AlignPerfectDown
	case down:
		return AlignDown
	default:
		return AlignNeutral
	}
}
