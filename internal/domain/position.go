package domain

import "time"

const PositionOpen = "OPEN"

type CloseReason string

const (
	CloseStopLoss   CloseReason = "STOP_LOSS"
	CloseTakeProfit CloseReason = "TAKE_PROFIT"
	CloseSignal     CloseReason = "SIGNAL"
)

// Position is the single open holding for an instrument. Target2 is optional.
type Position struct {
	Code       string    `json:"code"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	Style      Style     `json:"style"`
	StopLoss   float64   `json:"stop_loss"`
	Target1    float64   `json:"target_1"`
	Target2    *float64  `json:"target_2,omitempty"`
	Quantity   int64     `json:"quantity"`
	Score      float64   `json:"score"`
	Patterns   []string  `json:"patterns,omitempty"`
	Status     string    `json:"status"`
}

// TradeRecord is written once, when a position closes.
type TradeRecord struct {
	ID         string      `json:"id"`
	Code       string      `json:"code"`
	EntryPrice float64     `json:"entry_price"`
	EntryTime  time.Time   `json:"entry_time"`
	ExitPrice  float64     `json:"exit_price"`
	ExitTime   time.Time   `json:"exit_time"`
	ReturnPct  float64     `json:"return_pct"`
	Style      Style       `json:"style"`
	Reason     CloseReason `json:"reason"`
	Score      float64     `json:"score"`
	Quantity   int64       `json:"quantity"`
	Patterns   []string    `json:"patterns,omitempty"`
}

func (t TradeRecord) Win() bool { return t.ReturnPct > 0 }
