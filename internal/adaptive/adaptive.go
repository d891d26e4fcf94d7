// Package adaptive scores an instrument from its own realized trade history
// and the learned statistics of the setups currently firing.
package adaptive

import (
	"sort"

	"signalfuse/internal/domain"
	"signalfuse/internal/engine"
	"signalfuse/internal/ladder"
	"signalfuse/internal/scorer"
	"signalfuse/internal/ta"
)

const (
	recentLimit      = 20
	similarityPerHit = 10
	similarityCap    = 50
	baseRisk         = 50
	coldStartMaxLoss = -10.0
	weightWinRate    = 0.3
	weightPattern    = 0.3
	weightRecent     = 0.2
	weightRisk       = 0.2
)

const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendNeutral   = "neutral"
)

// Priors are the pattern statistics assumed before any trade has been
// learned for a setup, expressed over 100 notional trades.
var Priors = map[string]domain.PatternStat{
	engine.PatternTrinity:       {Name: engine.PatternTrinity, Count: 100, Wins: 65, TotalReturn: 850},
	"double_bottom":             {Name: "double_bottom", Count: 100, Wins: 60, TotalReturn: 720},
	"golden_cross":              {Name: "golden_cross", Count: 100, Wins: 55, TotalReturn: 600},
	engine.PatternSupportBounce: {Name: engine.PatternSupportBounce, Count: 100, Wins: 58, TotalReturn: 550},
	engine.PatternFiboSupport:   {Name: engine.PatternFiboSupport, Count: 100, Wins: 62, TotalReturn: 700},
}

var recommendations = ladder.AtLeast[string]{
	Rungs: []ladder.Rung[string]{
		{Bound: 60, Label: "STRONG_BUY"},
		{Bound: 50, Label: "BUY"},
		{Bound: 40, Label: "HOLD"},
		{Bound: 30, Label: "CAUTION"},
	},
	Fallback: "AVOID",
}

type WinRate struct {
	Trades    int     `json:"trades"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Rate      float64 `json:"rate"`
	AvgProfit float64 `json:"avg_profit"`
	AvgLoss   float64 `json:"avg_loss"`
}

type Recent struct {
	Trades    int     `json:"trades"`
	WinRate   float64 `json:"win_rate"`
	AvgReturn float64 `json:"avg_return"`
	Trend     string  `json:"trend"`
}

type Similarity struct {
	Patterns   []string `json:"patterns"`
	AvgWinRate float64  `json:"avg_win_rate"`
	AvgReturn  float64  `json:"avg_return"`
	Confidence int      `json:"confidence"`
}

type Risk struct {
	Score      int     `json:"score"`
	Grade      string  `json:"grade"`
	MaxLoss    float64 `json:"max_loss"`
	Volatility float64 `json:"volatility"`
}

type Breakdown struct {
	WinRate float64 `json:"win_rate"`
	Pattern float64 `json:"pattern"`
	Recent  float64 `json:"recent"`
	Risk    float64 `json:"risk"`
}

type Result struct {
	Score          float64      `json:"score"`
	Breakdown      Breakdown    `json:"breakdown"`
	WinRate        WinRate      `json:"win_rate"`
	Recent         Recent       `json:"recent"`
	Similarity     Similarity   `json:"similarity"`
	Risk           Risk         `json:"risk"`
	Style          domain.Style `json:"style"`
	Recommendation string       `json:"recommendation"`
}

// Input is everything the scorer reads for one instrument. A nil Profile
// means the instrument has never been traded.
type Input struct {
	Trades    []domain.TradeRecord
	Stats     map[string]domain.PatternStat
	Profile   *domain.InstrumentProfile
	Technical engine.Technical
	Context   scorer.Context
}

func Analyze(in Input) Result {
	res := Result{
		WinRate:    winRate(in.Trades),
		Recent:     recent(in.Trades),
		Similarity: similarity(in.Technical.FiringSetups(), in.Stats),
		Risk:       risk(in.Profile),
	}
	res.Breakdown = Breakdown{
		WinRate: ta.Round(res.WinRate.Rate*100*weightWinRate, 1),
		Pattern: ta.Round(res.Similarity.AvgWinRate*100*weightPattern, 1),
		Recent:  ta.Round(res.Recent.WinRate*100*weightRecent, 1),
		Risk:    ta.Round(float64(100-res.Risk.Score)*weightRisk, 1),
	}
	res.Score = ta.Round(res.WinRate.Rate*100*weightWinRate+
		res.Similarity.AvgWinRate*100*weightPattern+
		res.Recent.WinRate*100*weightRecent+
		float64(100-res.Risk.Score)*weightRisk, 1)

	votes := []domain.Style{in.Context.Psychology.Style, in.Context.Volatility.Style}
	if res.Recent.Trend == TrendDeclining {
		votes = append(votes, domain.StyleScalp)
	}
	res.Style = domain.VoteStyle(votes...)
	res.Recommendation = recommendations.Eval(res.Score)
	return res
}

func winRate(trades []domain.TradeRecord) WinRate {
	out := WinRate{Trades: len(trades), Rate: domain.DefaultWinRate}
	if len(trades) == 0 {
		return out
	}
	var profits, losses []float64
	for _, t := range trades {
		if t.Win() {
			profits = append(profits, t.ReturnPct)
		} else {
			losses = append(losses, t.ReturnPct)
		}
	}
	out.Wins, out.Losses = len(profits), len(losses)
	out.Rate = float64(out.Wins) / float64(out.Trades)
	out.AvgProfit = ta.Mean(profits)
	out.AvgLoss = ta.Mean(losses)
	return out
}

func recent(trades []domain.TradeRecord) Recent {
	out := Recent{WinRate: domain.DefaultWinRate, Trend: TrendNeutral}
	if len(trades) == 0 {
		return out
	}
	sorted := make([]domain.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ExitTime.After(sorted[j].ExitTime) })
	if len(sorted) > recentLimit {
		sorted = sorted[:recentLimit]
	}

	returns := make([]float64, len(sorted))
	wins := 0
	for i, t := range sorted {
		returns[i] = t.ReturnPct
		if t.Win() {
			wins++
		}
	}
	out.Trades = len(sorted)
	out.WinRate = float64(wins) / float64(len(sorted))
	out.AvgReturn = ta.Mean(returns)
	switch {
	case out.WinRate > 0.6 && out.AvgReturn > 3:
		out.Trend = TrendImproving
	case out.WinRate < 0.4 || out.AvgReturn < -2:
		out.Trend = TrendDeclining
	}
	return out
}

// similarity averages learned statistics over the firing setups. Setups
// with no learned trades fall back to Priors, then to a coin flip.
func similarity(patterns []string, stats map[string]domain.PatternStat) Similarity {
	out := Similarity{Patterns: patterns, AvgWinRate: domain.DefaultWinRate}
	if len(patterns) == 0 {
		out.Patterns = []string{}
		return out
	}
	rates := make([]float64, 0, len(patterns))
	returns := make([]float64, 0, len(patterns))
	for _, name := range patterns {
		st, ok := stats[name]
		if !ok || st.Count == 0 {
			st = Priors[name]
		}
		rates = append(rates, st.WinRate())
		returns = append(returns, st.AvgReturn())
	}
	out.AvgWinRate = ta.Mean(rates)
	out.AvgReturn = ta.Mean(returns)
	out.Confidence = min(len(patterns)*similarityPerHit, similarityCap)
	return out
}

// risk is higher for instruments with deep historical losses or wide
// volatility.
func risk(p *domain.InstrumentProfile) Risk {
	out := Risk{Score: baseRisk, MaxLoss: coldStartMaxLoss, Volatility: domain.DefaultAvgVolatility}
	if p != nil && p.Count > 0 {
		out.MaxLoss = p.MaxLoss
		if p.AvgVolatility > 0 {
			out.Volatility = p.AvgVolatility
		}
	}
	switch {
	case out.MaxLoss < -20:
		out.Score += 20
	case out.MaxLoss < -10:
		out.Score += 10
	case out.MaxLoss > -5:
		out.Score -= 10
	}
	switch {
	case out.Volatility > 5:
		out.Score += 10
	case out.Volatility < 2:
		out.Score -= 10
	}
	switch {
	case out.Score > 70:
		out.Grade = "high"
	case out.Score > 50:
		out.Grade = "medium"
	default:
		out.Grade = "low"
	}
	return out
}
