// Package notify broadcasts trade events to chat and to the event bus.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindOpened        Kind = "opened"
	KindClosed        Kind = "closed"
	KindPartialProfit Kind = "partial_profit"
	KindDecision      Kind = "decision"
)

type Event struct {
	Kind      Kind      `json:"kind"`
	Code      string    `json:"code"`
	Action    string    `json:"action,omitempty"`
	Style     string    `json:"style,omitempty"`
	Price     float64   `json:"price"`
	Score     float64   `json:"score"`
	ReturnPct float64   `json:"return_pct,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Time      time.Time `json:"time"`
}

// Text renders the event as a single chat line.
func (e Event) Text() string {
	switch e.Kind {
	case KindOpened:
		return fmt.Sprintf("BUY %s at %.2f (%s, score %.1f)", e.Code, e.Price, e.Style, e.Score)
	case KindClosed:
		return fmt.Sprintf("SELL %s at %.2f: %s, %+.2f%%", e.Code, e.Price, e.Reason, e.ReturnPct)
	case KindPartialProfit:
		return fmt.Sprintf("%s reached its first target at %.2f, holding for the second", e.Code, e.Price)
	default:
		return fmt.Sprintf("%s %s (score %.1f)", e.Code, e.Action, e.Score)
	}
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
