package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"marzban-manager/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier is used when no Telegram bot is configured. It only logs.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logger}
}

func (n *NoopNotifier) Notify(ctx context.Context, text string) error {
	n.log.Debug().Int("len", len(text)).Msg("[noop-telegram] summary not sent")
	return nil
}
