package ta

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MeanStd returns the mean and population standard deviation.
func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean := stat.Mean(values, nil)
	return mean, math.Sqrt(stat.PopVariance(values, nil))
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// SampleStd is the n-1 standard deviation, 0 for fewer than two values.
func SampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Midpoint is (highest high + lowest low) / 2 over the given windows.
func Midpoint(highs, lows []float64) float64 {
	return (Max(highs) + Min(lows)) / 2
}

// SMA is the mean of the trailing period values, NaN when there are fewer.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	return Mean(values[len(values)-period:])
}

func SMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// TrueRangeSeries uses high-low for the first bar, which has no prior close.
func TrueRangeSeries(highs, lows, closes []float64) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		hl := highs[i] - lows[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR is the simple mean of the trailing period true ranges.
func ATR(highs, lows, closes []float64, period int) float64 {
	return SMA(TrueRangeSeries(highs, lows, closes), period)
}

// RollingRSI averages gains and losses over a plain trailing window rather
// than Wilder smoothing. Fewer than period deltas use what is available.
func RollingRSI(closes []float64, period int) float64 {
	if len(closes) < 2 || period <= 0 {
		return math.NaN()
	}
	start := len(closes) - period
	if start < 1 {
		start = 1
	}
	var gain, loss float64
	for i := start; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	n := float64(len(closes) - start)
	return rsiFromAvg(gain/n, loss/n)
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// Stochastic returns %K for the last bar and %D as the mean of the last
// smooth %K values.
func Stochastic(highs, lows, closes []float64, period, smooth int) (float64, float64) {
	n := len(closes)
	if n < period || period <= 0 {
		return math.NaN(), math.NaN()
	}
	kAt := func(i int) float64 {
		hh := Max(highs[i-period+1 : i+1])
		ll := Min(lows[i-period+1 : i+1])
		if hh == ll {
			return 50
		}
		return 100 * (closes[i] - ll) / (hh - ll)
	}
	k := kAt(n - 1)
	var sum float64
	var count int
	for i := n - 1; i >= period-1 && count < smooth; i-- {
		sum += kAt(i)
		count++
	}
	return k, sum / float64(count)
}

// PctChanges returns the simple returns between consecutive values.
func PctChanges(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

// LinearSlope is the least-squares slope of values against their index.
func LinearSlope(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, values, nil, false)
	return beta
}

func Sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

// Clamp maps NaN and Inf to 0 before bounding.
func Clamp(v, min, max float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
