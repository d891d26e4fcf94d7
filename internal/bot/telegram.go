// Package bot answers analysis and position queries over Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"signalfuse/internal/domain"
	"signalfuse/internal/service"
)

const commandTimeout = 30 * time.Second

type Analyzer interface {
	Analyze(ctx context.Context, code string, lookback int) (service.Report, error)
}

type PositionLister interface {
	Positions(ctx context.Context) ([]domain.Position, error)
}

type Commands struct {
	analyzer  Analyzer
	positions PositionLister
	lookback  int
}

func NewCommands(analyzer Analyzer, positions PositionLister, lookback int) *Commands {
	if lookback <= 0 {
		lookback = service.DefaultLookback
	}
	return &Commands{analyzer: analyzer, positions: positions, lookback: lookback}
}

func (c *Commands) Analyze(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Usage: /analyze 005930"
	}
	code := strings.ToUpper(strings.TrimSpace(args[0]))
	rep, err := c.analyzer.Analyze(ctx, code, c.lookback)
	if errors.Is(err, service.ErrInsufficientHistory) {
		return fmt.Sprintf("Not enough history for %s yet", code)
	}
	if err != nil {
		return fmt.Sprintf("Error analyzing %s: %v", code, err)
	}
	d := rep.Decision
	return fmt.Sprintf(
		"%s @ %.2f\nAction: %s (score %.1f, confidence %s)\nStyle: %s over %s\nCompound: %s %.0f%%\n%s",
		rep.Code, rep.Price, d.Action, d.Score, d.Confidence, d.Style, d.HoldingPeriod,
		d.Compound.Signal, d.Compound.Confidence, d.Message,
	)
}

func (c *Commands) Positions(ctx context.Context) string {
	list, err := c.positions.Positions(ctx)
	if err != nil {
		return fmt.Sprintf("Error loading positions: %v", err)
	}
	if len(list) == 0 {
		return "No open positions"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Open positions (%d)", len(list))
	for _, p := range list {
		fmt.Fprintf(&b, "\n%s %s x%d @ %.2f stop %.2f target %.2f",
			p.Code, p.Style, p.Quantity, p.EntryPrice, p.StopLoss, p.Target1)
	}
	return b.String()
}

var newBot = tele.NewBot

// NewBot builds the Telegram client without polling yet, so it can be handed
// to the notifiers before the commands exist. An empty token disables the
// bot and returns nil.
func NewBot(token string, logger zerolog.Logger) (*tele.Bot, error) {
	if token == "" {
		logger.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	b, err := newBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return b, nil
}

// Serve registers the commands and starts the long poller. A nil bot is a
// no-op.
func Serve(b *tele.Bot, cmds *Commands, logger zerolog.Logger) {
	if b == nil {
		return
	}
	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	b.Handle("/analyze", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(cmds.Analyze(ctx, c.Args()))
	})
	b.Handle("/positions", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(cmds.Positions(ctx))
	})

	logger.Info().Msg("Telegram bot started")
	go b.Start()
}
