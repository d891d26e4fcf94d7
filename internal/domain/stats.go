package domain

const (
	DefaultWinRate       = 0.5
	DefaultAvgVolatility = 3.0
)

// PatternStat aggregates realized outcomes of trades entered while a named
// pattern was firing.
type PatternStat struct {
	Name        string  `json:"name"`
	Count       int     `json:"count"`
	Wins        int     `json:"wins"`
	TotalReturn float64 `json:"total_return"`
}

func (p PatternStat) WinRate() float64 {
	if p.Count == 0 {
		return DefaultWinRate
	}
	return float64(p.Wins) / float64(p.Count)
}

func (p PatternStat) AvgReturn() float64 {
	if p.Count == 0 {
		return 0
	}
	return p.TotalReturn / float64(p.Count)
}

type StyleStat struct {
	Count     int     `json:"count"`
	Wins      int     `json:"wins"`
	AvgReturn float64 `json:"avg_return"`
}

type InstrumentProfile struct {
	Code          string              `json:"code"`
	Count         int                 `json:"count"`
	Wins          int                 `json:"wins"`
	TotalReturn   float64             `json:"total_return"`
	MaxProfit     float64             `json:"max_profit"`
	MaxLoss       float64             `json:"max_loss"`
	AvgVolatility float64             `json:"avg_volatility"`
	Styles        map[Style]StyleStat `json:"styles"`
}

// NewInstrumentProfile returns the cold-start profile for code.
func NewInstrumentProfile(code string) InstrumentProfile {
	return InstrumentProfile{
		Code:          code,
		AvgVolatility: DefaultAvgVolatility,
		Styles:        map[Style]StyleStat{},
	}
}

func (p InstrumentProfile) WinRate() float64 {
	if p.Count == 0 {
		return DefaultWinRate
	}
	return float64(p.Wins) / float64(p.Count)
}

func (p InstrumentProfile) AvgReturn() float64 {
	if p.Count == 0 {
		return 0
	}
	return p.TotalReturn / float64(p.Count)
}
