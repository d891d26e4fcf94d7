package ta

type Pivot struct {
	Index int     `json:"index"`
	Price float64 `json:"price"`
}

// Pivots scans values for points equal to the max (high pivot) or min (low
// pivot) of the window [i-radius, i+radius]. Edges without a full window are
// never pivots. A flat window yields both.
func Pivots(values []float64, radius int) (highs, lows []Pivot) {
	for i := radius; i < len(values)-radius; i++ {
		window := values[i-radius : i+radius+1]
		if values[i] == Max(window) {
			highs = append(highs, Pivot{Index: i, Price: values[i]})
		}
		if values[i] == Min(window) {
			lows = append(lows, Pivot{Index: i, Price: values[i]})
		}
	}
	return highs, lows
}

// PivotHighs finds high pivots of highs and PivotLows low pivots of lows.
func PivotHighs(highs []float64, radius int) []Pivot {
	h, _ := Pivots(highs, radius)
	return h
}

func PivotLows(lows []float64, radius int) []Pivot {
	_, l := Pivots(lows, radius)
	return l
}

func LastPivots(p []Pivot, n int) []Pivot {
	if len(p) <= n {
		return p
	}
	return p[len(p)-n:]
}
