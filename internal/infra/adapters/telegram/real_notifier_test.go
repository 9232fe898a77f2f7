package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"marzban-manager/internal/config"
	"marzban-manager/internal/infra/logging"
)

type stubSender struct {
	sent   []tgbotapi.MessageConfig
	failOn int64
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	s.sent = append(s.sent, msg)
	if msg.ChatID == s.failOn {
		return tgbotapi.Message{}, errors.New("chat not found")
	}
	return tgbotapi.Message{}, nil
}

func TestRealNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("should send to every chat and report the first failure", func(t *testing.T) {
		s := &stubSender{failOn: 2}
		n := &RealNotifier{bot: s, chatIDs: []int64{1, 2, 3}, log: logging.Nop()}

		err := n.Notify(ctx, "report")
		if err == nil {
			t.Fatal("expected the failing chat to surface an error")
		}
		if len(s.sent) != 3 {
			t.Errorf("expected 3 sends, got %d", len(s.sent))
		}
	})

	t.Run("should truncate long messages", func(t *testing.T) {
		s := &stubSender{}
		n := &RealNotifier{bot: s, chatIDs: []int64{1}, log: logging.Nop()}

		if err := n.Notify(ctx, strings.Repeat("x", maxMessageLen+50)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := len(s.sent[0].Text); got != maxMessageLen {
			t.Errorf("expected %d chars, got %d", maxMessageLen, got)
		}
	})

	t.Run("should truncate multi-byte text on rune boundaries", func(t *testing.T) {
		// Arrange
		s := &stubSender{}
		n := &RealNotifier{bot: s, chatIDs: []int64{1}, log: logging.Nop()}
		text := strings.Repeat("کاربر ", maxMessageLen)

		// Act
		err := n.Notify(ctx, text)

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got := s.sent[0].Text
		if !utf8.ValidString(got) {
			t.Fatal("expected valid UTF-8 after truncation")
		}
		if c := utf8.RuneCountInString(got); c != maxMessageLen {
			t.Errorf("expected %d runes, got %d", maxMessageLen, c)
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("expected a truncation marker, got %q", got[len(got)-10:])
		}
	})

	t.Run("should keep short multi-byte text intact", func(t *testing.T) {
		s := &stubSender{}
		n := &RealNotifier{bot: s, chatIDs: []int64{1}, log: logging.Nop()}

		if err := n.Notify(ctx, "همه کاربران: ۳"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.sent[0].Text != "همه کاربران: ۳" {
			t.Errorf("expected text unchanged, got %q", s.sent[0].Text)
		}
	})
}

func TestNewRealNotifier_Validation(t *testing.T) {
	if _, err := NewRealNotifier(&config.TelegramConfig{}, logging.Nop()); err == nil {
		t.Error("expected an error for an empty token")
	}
	if _, err := NewRealNotifier(&config.TelegramConfig{Token: "x"}, logging.Nop()); err == nil {
		t.Error("expected an error for missing chat ids")
	}
}
