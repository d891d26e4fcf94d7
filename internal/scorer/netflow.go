package scorer

import (
	"math"

	"signalfuse/internal/domain"
	"signalfuse/internal/ta"
)

const (
	netFlowMinBars  = 5
	flowShort       = 5
	flowLong        = 20
	flowStrengthPct = 10.0
)

type FlowTally struct {
	Short int64  `json:"short"`
	Long  int64  `json:"long"`
	Trend string `json:"trend"`
}

type NetFlowResult struct {
	Result
	Foreign     FlowTally `json:"foreign"`
	Institution FlowTally `json:"institution"`
	StrengthPct float64   `json:"strength_pct"`
}

// Buying reports whether the label leans to net accumulation.
func (r NetFlowResult) Buying() bool {
	return r.Label == "buying" || r.Label == "strong_buying"
}

func (r NetFlowResult) Selling() bool {
	return r.Label == "selling" || r.Label == "strong_selling"
}

// NetFlow scores foreign and institutional net buying. Series without flow
// fields score zero.
func NetFlow(s domain.Series) NetFlowResult {
	if !s.HasNetFlow() {
		return NetFlowResult{Result: Result{
			Name: NameNetFlow, Status: domain.StatusOK, Signal: "NO_FLOW_DATA", Label: "unknown",
			Reasons: []string{"no net-flow fields on this series"},
		}}
	}
	if s.Len() < netFlowMinBars {
		return NetFlowResult{Result: insufficient(NameNetFlow, netFlowMinBars, s.Len())}
	}

	foreign := flowColumn(s, func(b domain.Bar) *float64 { return b.ForeignNet })
	inst := flowColumn(s, func(b domain.Bar) *float64 { return b.InstitutionNet })
	res := NetFlowResult{
		Result:      newResult(NameNetFlow),
		Foreign:     tally(foreign),
		Institution: tally(inst),
	}
	scoreTally(&res.Result, "foreign", res.Foreign)
	scoreTally(&res.Result, "institution", res.Institution)

	vol := ta.Sum(tail(s.Volumes(), flowShort))
	if vol > 0 {
		res.StrengthPct = ta.Round((ta.Sum(tail(foreign, flowShort))+ta.Sum(tail(inst, flowShort)))/vol*100, 2)
	}
	if math.Abs(res.StrengthPct) > flowStrengthPct {
		if res.StrengthPct > 0 {
			res.add(2, "combined net buying %.1f%% of volume", res.StrengthPct)
		} else {
			res.add(-2, "combined net selling %.1f%% of volume", res.StrengthPct)
		}
	}

	switch {
	case res.Score >= 8:
		res.Signal, res.Label = "STRONG_BUY", "strong_buying"
	case res.Score >= 3:
		res.Signal, res.Label = "BUY", "buying"
	case res.Score <= -8:
		res.Signal, res.Label = "STRONG_SELL", "strong_selling"
	case res.Score <= -3:
		res.Signal, res.Label = "SELL", "selling"
	default:
		res.Signal, res.Label = "NEUTRAL", "neutral"
	}
	return res
}

func tally(flow []float64) FlowTally {
	t := FlowTally{
		Short: int64(ta.Sum(tail(flow, flowShort))),
		Long:  int64(ta.Sum(tail(flow, flowLong))),
	}
	switch {
	case t.Short > 0 && t.Long > 0:
		t.Trend = "strong_buy"
	case t.Short > 0:
		t.Trend = "buy"
	case t.Short < 0 && t.Long < 0:
		t.Trend = "strong_sell"
	case t.Short < 0:
		t.Trend = "sell"
	default:
		t.Trend = "neutral"
	}
	return t
}

func scoreTally(r *Result, who string, t FlowTally) {
	switch t.Trend {
	case "strong_buy":
		r.add(5, "%s strong net buying, 5-bar %d", who, t.Short)
	case "buy":
		r.add(3, "%s net buying, 5-bar %d", who, t.Short)
	case "strong_sell":
		r.add(-5, "%s strong net selling, 5-bar %d", who, t.Short)
	case "sell":
		r.add(-3, "%s net selling, 5-bar %d", who, t.Short)
	}
}

// flowColumn treats missing values as zero.
func flowColumn(s domain.Series, pick func(domain.Bar) *float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		if v := pick(b); v != nil {
			out[i] = *v
		}
	}
	return out
}

func tail(v []float64, n int) []float64 {
	if len(v) <= n {
		return v
	}
	return v[len(v)-n:]
}
