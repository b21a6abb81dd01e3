// Package notify delivers formatted launch and lock messages.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Button is a labelled link attached below a message.
type Button struct {
	Label string
	URL   string
}

// Notifier delivers one message. Delivery failures are surfaced to the
// caller but must never block processing of other receipts.
type Notifier interface {
	Send(ctx context.Context, text string, buttons []Button) error
}

// Telegram sends HTML messages to a fixed chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram builds a Telegram notifier.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Send delivers a message with optional link buttons.
func (t *Telegram) Send(_ context.Context, text string, buttons []Button) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if len(buttons) > 0 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, b := range buttons {
			row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Logging is a stand-in notifier for dry runs without a bot token.
type Logging struct {
	Logger *zap.Logger
}

// Send logs the message instead of delivering it.
func (l *Logging) Send(_ context.Context, text string, buttons []Button) error {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("notification (dry run)", zap.String("text", text), zap.Int("buttons", len(buttons)))
	return nil
}
