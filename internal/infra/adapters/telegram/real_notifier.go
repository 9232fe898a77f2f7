package telegram

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"marzban-manager/internal/config"
	"marzban-manager/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*RealNotifier)(nil)

// telegram caps a message at 4096 characters, not bytes
const maxMessageLen = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// RealNotifier posts operation summaries to the configured Telegram chats.
type RealNotifier struct {
	bot     sender
	chatIDs []int64
	log     *zerolog.Logger
}

func NewRealNotifier(cfg *config.TelegramConfig, logger *zerolog.Logger) (*RealNotifier, error) {
	if cfg == nil {
		return nil, errors.New("telegram config is nil")
	}
	if cfg.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if len(cfg.ChatIDs) == 0 {
		return nil, errors.New("telegram chat_ids is empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	logger.Debug().Str("bot", bot.Self.UserName).Int("chats", len(cfg.ChatIDs)).Msg("telegram notifier ready")
	return &RealNotifier{bot: bot, chatIDs: cfg.ChatIDs, log: logger}, nil
}

// Notify sends text to every chat. A failing chat does not stop the others; the
// first error is returned.
func (n *RealNotifier) Notify(ctx context.Context, text string) error {
	text = truncate(text, maxMessageLen)
	var first error
	for _, id := range n.chatIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := n.bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
			n.log.Warn().Err(err).Int64("chat_id", id).Msg("telegram notify failed")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// truncate cuts text to at most max runes, marking the cut with "...".
func truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max-3]) + "..."
}
