package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidBar      = errors.New("invalid bar")
	ErrUnorderedSeries = errors.New("series dates must be strictly increasing")
)

// Bar is one daily OHLCV record. The net-flow fields are only present for
// instruments whose feed reports investor-class flows.
type Bar struct {
	Date           time.Time `json:"date"`
	Open           float64   `json:"open"`
	High           float64   `json:"high"`
	Low            float64   `json:"low"`
	Close          float64   `json:"close"`
	Volume         float64   `json:"volume"`
	ForeignNet     *float64  `json:"foreign_net,omitempty"`
	InstitutionNet *float64  `json:"institution_net,omitempty"`
}

func (b Bar) Validate() error {
	if b.High < b.Low {
		return fmt.Errorf("%w: high %.4f below low %.4f", ErrInvalidBar, b.High, b.Low)
	}
	if b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("%w: high %.4f below body", ErrInvalidBar, b.High)
	}
	if b.Low > b.Open || b.Low > b.Close {
		return fmt.Errorf("%w: low %.4f above body", ErrInvalidBar, b.Low)
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: negative volume", ErrInvalidBar)
	}
	return nil
}

type Series struct {
	Code string `json:"code"`
	Bars []Bar  `json:"bars"`
}

func (s Series) Len() int { return len(s.Bars) }

func (s Series) Validate() error {
	for i, b := range s.Bars {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bar %d (%s): %w", i, b.Date.Format("2006-01-02"), err)
		}
		if i > 0 && !b.Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("bar %d (%s): %w", i, b.Date.Format("2006-01-02"), ErrUnorderedSeries)
		}
	}
	return nil
}

func (s Series) Last() Bar {
	if len(s.Bars) == 0 {
		return Bar{}
	}
	return s.Bars[len(s.Bars)-1]
}

// Tail returns the last n bars, or the whole series when it is shorter.
func (s Series) Tail(n int) Series {
	if n <= 0 || n >= len(s.Bars) {
		return s
	}
	return Series{Code: s.Code, Bars: s.Bars[len(s.Bars)-n:]}
}

func (s Series) Opens() []float64   { return s.column(func(b Bar) float64 { return b.Open }) }
func (s Series) Highs() []float64   { return s.column(func(b Bar) float64 { return b.High }) }
func (s Series) Lows() []float64    { return s.column(func(b Bar) float64 { return b.Low }) }
func (s Series) Closes() []float64  { return s.column(func(b Bar) float64 { return b.Close }) }
func (s Series) Volumes() []float64 { return s.column(func(b Bar) float64 { return b.Volume }) }

// HasNetFlow reports whether any bar carries investor-class flows. Bars
// without them count as zero flow.
func (s Series) HasNetFlow() bool {
	for _, b := range s.Bars {
		if b.ForeignNet != nil || b.InstitutionNet != nil {
			return true
		}
	}
	return false
}

func (s Series) column(pick func(Bar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = pick(b)
	}
	return out
}
