// Package position runs the single-position-per-instrument state machine.
// An instrument is either flat or holds exactly one open position. Every
// close appends one trade record and feeds it to the learner.
package position

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"signalfuse/internal/domain"
	"signalfuse/internal/metrics"
	"signalfuse/internal/notify"
	"signalfuse/internal/store"
)

var (
	ErrPositionExists = errors.New("position already open")
	ErrNoPosition     = errors.New("no open position")
)

// DefaultQuantity is the fixed simulated lot size.
const DefaultQuantity = 100

// Fallback exits relative to the entry price when no volatility reading is
// available.
const (
	fallbackStop    = 0.95
	fallbackTarget1 = 1.05
	fallbackTarget2 = 1.10
)

type Status string

const (
	StatusBought        Status = "BOUGHT"
	StatusSold          Status = "SOLD"
	StatusSkipped       Status = "SKIPPED"
	StatusPartialProfit Status = "PARTIAL_PROFIT"
	StatusHolding       Status = "HOLDING"
	StatusWait          Status = "WAIT"
)

// Signal is one executable decision. Zero exits fall back to fixed
// multiples of the price.
type Signal struct {
	Code     string
	Action   domain.Action
	Style    domain.Style
	Score    float64
	Price    float64
	StopLoss float64
	Target1  float64
	Target2  float64
	Patterns []string
}

type Outcome struct {
	Status    Status              `json:"status"`
	Code      string              `json:"code"`
	Price     float64             `json:"price"`
	ReturnPct float64             `json:"return_pct"`
	Reason    string              `json:"reason,omitempty"`
	Position  *domain.Position    `json:"position,omitempty"`
	Trade     *domain.TradeRecord `json:"trade,omitempty"`
}

// Learner consumes closed trades.
type Learner interface {
	UpdateFromTrade(ctx context.Context, rec domain.TradeRecord) error
}

type Manager struct {
	mu        sync.Mutex
	positions store.PositionStore
	trades    store.TradeStore
	learner   Learner
	notifier  notify.Notifier
	metrics   *metrics.Recorder
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

func NewManager(positions store.PositionStore, trades store.TradeStore, learner Learner, notifier notify.Notifier, rec *metrics.Recorder, logger zerolog.Logger) *Manager {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Manager{
		positions: positions,
		trades:    trades,
		learner:   learner,
		notifier:  notifier,
		metrics:   rec,
		logger:    logger.With().Str("component", "position").Logger(),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Execute applies one signal to the instrument's state.
func (m *Manager) Execute(ctx context.Context, sig Signal) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, open, err := m.positions.Get(ctx, sig.Code)
	if err != nil {
		return Outcome{}, fmt.Errorf("load position %s: %w", sig.Code, err)
	}
	out := Outcome{Code: sig.Code, Price: sig.Price}

	switch {
	case sig.Action.IsBuy():
		if open {
			out.Status, out.Reason = StatusSkipped, "already holding"
			return out, nil
		}
		p, err := m.open(ctx, sig)
		if err != nil {
			return Outcome{}, err
		}
		out.Status, out.Position = StatusBought, &p
		return out, nil

	case sig.Action.IsSell():
		if !open {
			out.Status, out.Reason = StatusSkipped, "not holding"
			return out, nil
		}
		return m.close(ctx, pos, sig.Price, domain.CloseSignal)

	default:
		if !open {
			out.Status = StatusWait
			return out, nil
		}
		return m.checkExits(ctx, pos, sig.Price)
	}
}

// Open opens a position unconditionally unless one exists.
func (m *Manager) Open(ctx context.Context, sig Signal) (domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, open, err := m.positions.Get(ctx, sig.Code); err != nil {
		return domain.Position{}, fmt.Errorf("load position %s: %w", sig.Code, err)
	} else if open {
		return domain.Position{}, ErrPositionExists
	}
	return m.open(ctx, sig)
}

// Close closes the open position for code at price.
func (m *Manager) Close(ctx context.Context, code string, price float64, reason domain.CloseReason) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, open, err := m.positions.Get(ctx, code)
	if err != nil {
		return Outcome{}, fmt.Errorf("load position %s: %w", code, err)
	}
	if !open {
		return Outcome{}, ErrNoPosition
	}
	return m.close(ctx, pos, price, reason)
}

func (m *Manager) Positions(ctx context.Context) ([]domain.Position, error) {
	return m.positions.List(ctx)
}

func (m *Manager) open(ctx context.Context, sig Signal) (domain.Position, error) {
	stop, t1, t2 := exits(sig)
	p := domain.Position{
		Code:       sig.Code,
		EntryPrice: sig.Price,
		EntryTime:  m.now(),
		Style:      sig.Style,
		StopLoss:   stop,
		Target1:    t1,
		Target2:    &t2,
		Quantity:   DefaultQuantity,
		Score:      sig.Score,
		Patterns:   sig.Patterns,
		Status:     domain.PositionOpen,
	}
	if err := m.positions.Save(ctx, p); err != nil {
		return domain.Position{}, fmt.Errorf("save position %s: %w", p.Code, err)
	}
	m.metrics.PositionOpened(string(p.Style))
	m.logger.Info().Str("code", p.Code).Float64("price", p.EntryPrice).
		Float64("stop", stop).Float64("target1", t1).Str("style", string(p.Style)).
		Msg("position opened")
	m.notify(ctx, notify.Event{
		Kind: notify.KindOpened, Code: p.Code, Style: string(p.Style),
		Price: p.EntryPrice, Score: p.Score, Time: p.EntryTime,
	})
	return p, nil
}

func (m *Manager) close(ctx context.Context, pos domain.Position, price float64, reason domain.CloseReason) (Outcome, error) {
	rec := domain.TradeRecord{
		ID:         m.newID(),
		Code:       pos.Code,
		EntryPrice: pos.EntryPrice,
		EntryTime:  pos.EntryTime,
		ExitPrice:  price,
		ExitTime:   m.now(),
		ReturnPct:  ReturnPct(pos.EntryPrice, price),
		Style:      pos.Style,
		Reason:     reason,
		Score:      pos.Score,
		Quantity:   pos.Quantity,
		Patterns:   pos.Patterns,
	}
	// A failed close leaves the position open and no trade recorded.
	if err := m.positions.Delete(ctx, pos.Code); err != nil {
		return Outcome{}, fmt.Errorf("delete position %s: %w", pos.Code, err)
	}
	if err := m.trades.Append(ctx, rec); err != nil {
		err = fmt.Errorf("append trade %s: %w", pos.Code, err)
		if rerr := m.positions.Save(ctx, pos); rerr != nil {
			return Outcome{}, errors.Join(err, fmt.Errorf("restore position %s: %w", pos.Code, rerr))
		}
		return Outcome{}, err
	}
	m.metrics.PositionClosed(string(reason))
	m.logger.Info().Str("code", rec.Code).Str("reason", string(reason)).
		Float64("return_pct", rec.ReturnPct).Msg("position closed")

	if m.learner != nil {
		if err := m.learner.UpdateFromTrade(ctx, rec); err != nil {
			m.logger.Warn().Err(err).Str("code", rec.Code).Msg("learning update failed")
		}
	}
	m.notify(ctx, notify.Event{
		Kind: notify.KindClosed, Code: rec.Code, Style: string(rec.Style), Price: price,
		Score: rec.Score, ReturnPct: rec.ReturnPct, Reason: string(reason), Time: rec.ExitTime,
	})
	return Outcome{
		Status:    StatusSold,
		Code:      rec.Code,
		Price:     price,
		ReturnPct: rec.ReturnPct,
		Reason:    string(reason),
		Trade:     &rec,
	}, nil
}

func (m *Manager) checkExits(ctx context.Context, pos domain.Position, price float64) (Outcome, error) {
	switch {
	case price <= pos.StopLoss:
		return m.close(ctx, pos, price, domain.CloseStopLoss)
	case price >= pos.Target1:
		if pos.Target2 != nil && price < *pos.Target2 {
			m.notify(ctx, notify.Event{
				Kind: notify.KindPartialProfit, Code: pos.Code, Price: price,
				Score: pos.Score, Time: m.now(),
			})
			return Outcome{
				Status: StatusPartialProfit, Code: pos.Code, Price: price,
				ReturnPct: ReturnPct(pos.EntryPrice, price), Position: &pos,
			}, nil
		}
		return m.close(ctx, pos, price, domain.CloseTakeProfit)
	default:
		return Outcome{
			Status: StatusHolding, Code: pos.Code, Price: price,
			ReturnPct: ReturnPct(pos.EntryPrice, price), Position: &pos,
		}, nil
	}
}

func (m *Manager) notify(ctx context.Context, e notify.Event) {
	if err := m.notifier.Notify(ctx, e); err != nil {
		m.metrics.NotifyFailed(string(e.Kind))
		m.logger.Warn().Err(err).Str("code", e.Code).Str("kind", string(e.Kind)).Msg("notify failed")
	}
}

// ReturnPct is the realized percentage move from entry to exit, rounded to
// four places.
func ReturnPct(entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	e := decimal.NewFromFloat(entry)
	x := decimal.NewFromFloat(exit)
	return x.Div(e).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
}

func exits(sig Signal) (stop, t1, t2 float64) {
	stop, t1, t2 = sig.StopLoss, sig.Target1, sig.Target2
	if !usable(stop) {
		stop = sig.Price * fallbackStop
	}
	if !usable(t1) {
		t1 = sig.Price * fallbackTarget1
	}
	if !usable(t2) {
		t2 = sig.Price * fallbackTarget2
	}
	return stop, t1, t2
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
