package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"signalfuse/internal/domain"
	"signalfuse/internal/fusion"
	"signalfuse/internal/service"
)

type stubAnalyzer struct {
	err      error
	code     string
	lookback int
}

func (s *stubAnalyzer) Analyze(_ context.Context, code string, lookback int) (service.Report, error) {
	s.code, s.lookback = code, lookback
	if s.err != nil {
		return service.Report{}, s.err
	}
	return service.Report{
		Code:  code,
		Price: 71000,
		Decision: fusion.Decision{
			Action: domain.ActionBuy, Score: 32.5, Confidence: "high",
			Style: domain.StyleSwing, HoldingPeriod: "1-4 weeks", Message: "buy: swing trade",
			Compound: fusion.Compound{Signal: "BUY", Confidence: 80},
		},
	}, nil
}

type stubPositions struct {
	list []domain.Position
	err  error
}

func (s stubPositions) Positions(context.Context) ([]domain.Position, error) { return s.list, s.err }

func TestNewBotSkipsWithoutToken(t *testing.T) {
	b, err := NewBot("", zerolog.Nop())
	if b != nil || err != nil {
		t.Fatalf("expected a disabled bot, got %v %v", b, err)
	}
	Serve(nil, NewCommands(&stubAnalyzer{}, stubPositions{}, 0), zerolog.Nop())
}

func TestNewBotWrapsError(t *testing.T) {
	orig := newBot
	defer func() { newBot = orig }()
	newBot = func(tele.Settings) (*tele.Bot, error) { return nil, errors.New("unauthorized") }

	if _, err := NewBot("token", zerolog.Nop()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestAnalyzeCommand(t *testing.T) {
	an := &stubAnalyzer{}
	cmds := NewCommands(an, stubPositions{}, 0)

	if got := cmds.Analyze(context.Background(), nil); !strings.HasPrefix(got, "Usage") {
		t.Fatalf("expected usage, got %q", got)
	}

	got := cmds.Analyze(context.Background(), []string{" a005930"})
	if an.code != "A005930" || an.lookback != service.DefaultLookback {
		t.Fatalf("unexpected call %s/%d", an.code, an.lookback)
	}
	for _, want := range []string{"A005930 @ 71000.00", "Action: BUY (score 32.5, confidence high)", "Compound: BUY 80%"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}

	an.err = fmt.Errorf("x: %w", service.ErrInsufficientHistory)
	if got := cmds.Analyze(context.Background(), []string{"005930"}); !strings.HasPrefix(got, "Not enough history") {
		t.Fatalf("unexpected reply %q", got)
	}
	an.err = errors.New("boom")
	if got := cmds.Analyze(context.Background(), []string{"005930"}); !strings.Contains(got, "boom") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestPositionsCommand(t *testing.T) {
	tests := []struct {
		name string
		src  stubPositions
		want string
	}{
		{"empty", stubPositions{}, "No open positions"},
		{"error", stubPositions{err: errors.New("disk")}, "Error loading positions: disk"},
		{
			"listed",
			stubPositions{list: []domain.Position{{Code: "005930", Style: domain.StyleSwing, Quantity: 3, EntryPrice: 100, StopLoss: 95, Target1: 110}}},
			"Open positions (1)\n005930 swing x3 @ 100.00 stop 95.00 target 110.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewCommands(&stubAnalyzer{}, tt.src, 0).Positions(context.Background()); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
