package notify

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// Sender is the part of *tele.Bot used to push messages.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type Telegram struct {
	sender Sender
	chat   tele.ChatID
}

func NewTelegram(sender Sender, chatID int64) *Telegram {
	return &Telegram{sender: sender, chat: tele.ChatID(chatID)}
}

// Notify sends the event text to the configured chat. Decision events are
// left to the bus.
func (t *Telegram) Notify(_ context.Context, e Event) error {
	if e.Kind == KindDecision {
		return nil
	}
	if _, err := t.sender.Send(t.chat, e.Text()); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
