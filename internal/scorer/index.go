package scorer

import (
	"strconv"
	"strings"

	"signalfuse/internal/domain"
)

const (
	indexMinBars = 20

	KOSPI  = "U001"
	KOSDAQ = "U201"

	kosdaqCodeFloor = 100000
)

type IndexResult struct {
	Result
	Benchmark        string  `json:"benchmark,omitempty"`
	Direction        string  `json:"direction"`
	IndexReturn5     float64 `json:"index_return_5"`
	IndexReturn20    float64 `json:"index_return_20"`
	StockReturn20    float64 `json:"stock_return_20"`
	RelativeStrength float64 `json:"relative_strength"`
}

func (r IndexResult) Up() bool {
	return r.Direction == "uptrend" || r.Direction == "strong_uptrend"
}

func (r IndexResult) Down() bool {
	return r.Direction == "downtrend" || r.Direction == "strong_downtrend"
}

// Benchmark returns the index code an instrument is compared against. Index
// codes themselves have no benchmark.
func Benchmark(code string) (string, bool) {
	if strings.HasPrefix(code, "U") {
		return "", false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(code, "A"))
	if err != nil || n < kosdaqCodeFloor {
		return KOSPI, true
	}
	return KOSDAQ, true
}

// Index scores the benchmark's direction and the instrument's 20-bar return
// relative to it. A nil benchmark means no index data was available.
func Index(s domain.Series, benchmark *domain.Series) IndexResult {
	idx, ok := Benchmark(s.Code)
	if !ok {
		return IndexResult{Result: Result{
			Name: NameIndex, Status: domain.StatusOK, Signal: "INDEX_ITSELF", Label: "none",
			Reasons: []string{"instrument is an index"},
		}, Direction: "none"}
	}
	if benchmark == nil || benchmark.Len() == 0 {
		return IndexResult{Result: Result{
			Name: NameIndex, Status: domain.StatusOK, Signal: "NO_INDEX_DATA", Label: "unknown",
			Reasons: []string{"no data for benchmark " + idx},
		}, Benchmark: idx, Direction: "unknown"}
	}

	res := IndexResult{Result: newResult(NameIndex), Benchmark: idx, Direction: "unknown"}
	bc := benchmark.Closes()
	if len(bc) >= indexMinBars {
		res.IndexReturn5 = pctReturn(bc, 5)
		res.IndexReturn20 = pctReturn(bc, 20)
		res.Direction = direction(res.IndexReturn5, res.IndexReturn20)
	}

	switch res.Direction {
	case "strong_uptrend":
		res.Signal = "INDEX_STRONG_UP"
		res.add(10, "%s strong rise %.1f%%", idx, res.IndexReturn5)
	case "uptrend":
		res.Signal = "INDEX_UP"
		res.add(5, "%s rising %.1f%%", idx, res.IndexReturn5)
	case "strong_downtrend":
		res.Signal = "INDEX_STRONG_DOWN"
		res.add(-10, "%s strong fall %.1f%%", idx, res.IndexReturn5)
	case "downtrend":
		res.Signal = "INDEX_DOWN"
		res.add(-5, "%s falling %.1f%%", idx, res.IndexReturn5)
	default:
		res.Signal = "INDEX_SIDEWAYS"
		res.note("%s sideways %.1f%%", idx, res.IndexReturn5)
	}
	res.Label = res.Direction

	if s.Len() >= indexMinBars && len(bc) >= indexMinBars {
		res.StockReturn20 = pctReturn(s.Closes(), 20)
		res.RelativeStrength = res.StockReturn20 - res.IndexReturn20
	}
	switch rs := res.RelativeStrength; {
	case rs > 5:
		res.add(3, "outperforming the index by %.1f points", rs)
	case rs > 2:
		res.add(2, "ahead of the index by %.1f points", rs)
	case rs < -5:
		res.add(-3, "underperforming the index by %.1f points", -rs)
	case rs < -2:
		res.add(-2, "behind the index by %.1f points", -rs)
	}
	return res
}

func direction(ret5, ret20 float64) string {
	switch {
	case ret5 > 2 && ret20 > 5:
		return "strong_uptrend"
	case ret5 > 1 && ret20 > 2:
		return "uptrend"
	case ret5 < -2 && ret20 < -5:
		return "strong_downtrend"
	case ret5 < -1 && ret20 < -2:
		return "downtrend"
	default:
		return "sideways"
	}
}
