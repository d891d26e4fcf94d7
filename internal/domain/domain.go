package domain

import "fmt"

// Status tags every engine and scorer result.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
	StatusError            Status = "error"
)

// EngineResult is the header shared by every technical engine result.
type EngineResult struct {
	Engine     string  `json:"engine"`
	Status     Status  `json:"status"`
	Signal     string  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

func (r EngineResult) OK() bool { return r.Status == StatusOK }

func Insufficient(engine string, need, have int) EngineResult {
	return EngineResult{
		Engine: engine,
		Status: StatusInsufficientData,
		Signal: "INSUFFICIENT_DATA",
		Reason: fmt.Sprintf("need %d bars, have %d", need, have),
	}
}

func Failed(engine string, err error) EngineResult {
	return EngineResult{
		Engine: engine,
		Status: StatusError,
		Signal: "ERROR",
		Reason: err.Error(),
	}
}

type Action string

const (
	ActionStrongBuy     Action = "STRONG_BUY"
	ActionBuy           Action = "BUY"
	ActionWeakBuy       Action = "WEAK_BUY"
	ActionHold          Action = "HOLD"
	ActionWeakSell      Action = "WEAK_SELL"
	ActionSell          Action = "SELL"
	ActionStrongSell    Action = "STRONG_SELL"
	ActionAbsoluteNoBuy Action = "ABSOLUTE_NO_BUY"
)

func (a Action) IsBuy() bool {
	return a == ActionStrongBuy || a == ActionBuy || a == ActionWeakBuy
}

func (a Action) IsSell() bool {
	return a == ActionWeakSell || a == ActionSell || a == ActionStrongSell
}

type Style string

const (
	StyleScalp    Style = "scalp"
	StyleSwing    Style = "swing"
	StyleLongTerm Style = "long_term"
)

func (s Style) IsValid() bool {
	return s == StyleScalp || s == StyleSwing || s == StyleLongTerm
}

// HoldingPeriod is the nominal horizon quoted alongside a decision.
func (s Style) HoldingPeriod() string {
	switch s {
	case StyleScalp:
		return "1-3 days"
	case StyleLongTerm:
		return "several weeks to months"
	default:
		return "5 days to 4 weeks"
	}
}

// VoteStyle returns the plurality style among votes. Ties and an empty
// ballot resolve to swing.
func VoteStyle(votes ...Style) Style {
	counts := map[Style]int{}
	for _, v := range votes {
		if v.IsValid() {
			counts[v]++
		}
	}
	best, top, tied := StyleSwing, 0, false
	for _, s := range []Style{StyleScalp, StyleSwing, StyleLongTerm} {
		switch c := counts[s]; {
		case c > top:
			best, top, tied = s, c, false
		case c == top && c > 0:
			tied = true
		}
	}
	if tied || top == 0 {
		return StyleSwing
	}
	return best
}
