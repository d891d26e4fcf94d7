// Package learning folds closed trades back into the pattern statistics and
// instrument profiles the adaptive scorer reads.
package learning

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"signalfuse/internal/domain"
	"signalfuse/internal/store"
	"signalfuse/internal/ta"
)

const (
	recentWindow    = 20
	minPatternCount = 5
	DefaultTopN     = 5
)

type Learner struct {
	stats  store.StatsStore
	trades store.TradeStore
	logger zerolog.Logger
}

func New(stats store.StatsStore, trades store.TradeStore, logger zerolog.Logger) *Learner {
	return &Learner{
		stats:  stats,
		trades: trades,
		logger: logger.With().Str("component", "learning").Logger(),
	}
}

// UpdateFromTrade credits rec's outcome to each pattern active at entry and
// to the instrument's profile.
func (l *Learner) UpdateFromTrade(ctx context.Context, rec domain.TradeRecord) error {
	patterns := unique(rec.Patterns)
	if len(patterns) > 0 {
		err := l.stats.UpdatePatterns(ctx, func(m map[string]domain.PatternStat) {
			ApplyPatterns(m, patterns, rec.ReturnPct)
		})
		if err != nil {
			return fmt.Errorf("update pattern stats: %w", err)
		}
	}
	err := l.stats.UpdateProfile(ctx, rec.Code, func(p *domain.InstrumentProfile) {
		ApplyProfile(p, rec)
	})
	if err != nil {
		return fmt.Errorf("update profile %s: %w", rec.Code, err)
	}
	l.logger.Debug().Str("code", rec.Code).Strs("patterns", patterns).
		Float64("return_pct", rec.ReturnPct).Msg("trade learned")
	return nil
}

// ApplyPatterns adds one outcome to every named stat.
func ApplyPatterns(m map[string]domain.PatternStat, patterns []string, returnPct float64) {
	for _, name := range patterns {
		st := m[name]
		st.Name = name
		st.Count++
		if returnPct > 0 {
			st.Wins++
		}
		st.TotalReturn += returnPct
		m[name] = st
	}
}

// ApplyProfile adds one closed trade to p. Style averages are maintained as
// an incremental mean.
func ApplyProfile(p *domain.InstrumentProfile, rec domain.TradeRecord) {
	if p.Styles == nil {
		p.Styles = map[domain.Style]domain.StyleStat{}
	}
	r := rec.ReturnPct
	p.Code = rec.Code
	p.Count++
	if r > 0 {
		p.Wins++
	}
	p.TotalReturn += r
	if r > p.MaxProfit {
		p.MaxProfit = r
	}
	if r < p.MaxLoss {
		p.MaxLoss = r
	}

	style := rec.Style
	if !style.IsValid() {
		style = domain.StyleSwing
	}
	st := p.Styles[style]
	st.Count++
	if r > 0 {
		st.Wins++
	}
	st.AvgReturn += (r - st.AvgReturn) / float64(st.Count)
	p.Styles[style] = st
}

type Performance struct {
	TotalTrades     int     `json:"total_trades"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WinRate         float64 `json:"win_rate"`
	AvgReturn       float64 `json:"avg_return"`
	MaxProfit       float64 `json:"max_profit"`
	MaxLoss         float64 `json:"max_loss"`
	RecentWinRate   float64 `json:"recent_20_win_rate"`
	RecentAvgReturn float64 `json:"recent_20_avg_return"`
	Message         string  `json:"message,omitempty"`
}

// Analyze summarizes the whole ledger. Percentages are on a 0-100 scale.
func (l *Learner) Analyze(ctx context.Context) (Performance, error) {
	trades, err := l.trades.List(ctx)
	if err != nil {
		return Performance{}, fmt.Errorf("list trades: %w", err)
	}
	return Summarize(trades), nil
}

func Summarize(trades []domain.TradeRecord) Performance {
	if len(trades) == 0 {
		return Performance{Message: "no trades yet"}
	}
	returns := make([]float64, len(trades))
	wins := 0
	for i, t := range trades {
		returns[i] = t.ReturnPct
		if t.Win() {
			wins++
		}
	}
	recent := trades
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	recentReturns := returns[len(returns)-len(recent):]
	recentWins := 0
	for _, t := range recent {
		if t.Win() {
			recentWins++
		}
	}
	maxP, maxL := returns[0], returns[0]
	for _, r := range returns[1:] {
		maxP = max(maxP, r)
		maxL = min(maxL, r)
	}
	return Performance{
		TotalTrades:     len(trades),
		Wins:            wins,
		Losses:          len(trades) - wins,
		WinRate:         ta.Round(float64(wins)/float64(len(trades))*100, 2),
		AvgReturn:       ta.Round(ta.Mean(returns), 2),
		MaxProfit:       ta.Round(maxP, 2),
		MaxLoss:         ta.Round(maxL, 2),
		RecentWinRate:   ta.Round(float64(recentWins)/float64(len(recent))*100, 2),
		RecentAvgReturn: ta.Round(ta.Mean(recentReturns), 2),
	}
}

type PatternScore struct {
	Pattern   string  `json:"pattern"`
	WinRate   float64 `json:"win_rate"`
	AvgReturn float64 `json:"avg_return"`
	Count     int     `json:"count"`
	Score     float64 `json:"score"`
}

// BestPatterns ranks patterns with enough history by a blend of win rate
// and average return.
func (l *Learner) BestPatterns(ctx context.Context, n int) ([]PatternScore, error) {
	stats, err := l.stats.Patterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pattern stats: %w", err)
	}
	return Rank(stats, n), nil
}

func Rank(stats map[string]domain.PatternStat, n int) []PatternScore {
	out := []PatternScore{}
	for name, st := range stats {
		if st.Count < minPatternCount {
			continue
		}
		wr, avg := st.WinRate(), st.AvgReturn()
		out = append(out, PatternScore{
			Pattern:   name,
			WinRate:   ta.Round(wr*100, 2),
			AvgReturn: ta.Round(avg, 2),
			Count:     st.Count,
			Score:     ta.Round(wr*0.6+avg/100*0.4, 3),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Pattern < out[j].Pattern
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
