package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMaxLength is Telegram's hard per-message text limit.
const telegramMaxLength = 4096

// TelegramSink posts the text rendering of a message to a Telegram chat.
// Optional second channel; Slack is the primary sink.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewTelegram creates a Telegram sink bound to one chat.
func NewTelegram(token string, chatID int64, logger *slog.Logger) (*TelegramSink, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram: token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	logger.Info("telegram bot authorized", "username", bot.Self.UserName)

	return &TelegramSink{bot: bot, chatID: chatID, logger: logger}, nil
}

func (t *TelegramSink) Name() string { return "telegram" }

// Send flattens the blocks into one plain-text message.
func (t *TelegramSink) Send(_ context.Context, msg Message) error {
	var parts []string
	for _, block := range []string{msg.Title, msg.Body, msg.Listing, msg.Footer} {
		if block != "" {
			parts = append(parts, block)
		}
	}
	text := truncate(strings.Join(parts, "\n\n"), telegramMaxLength)

	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	t.logger.Info("telegram notification sent", "title", msg.Title)
	return nil
}
