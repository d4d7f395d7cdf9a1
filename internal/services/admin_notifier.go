package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"healthtracker/internal/models"
)

// AdminNotifier posts operational notices (new sign-ups) to the operators.
type AdminNotifier interface {
	UserRegistered(ctx context.Context, user *models.User) error
}

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends notices to one admin chat.
type TelegramNotifier struct {
	bot    telegramSender
	chatID int64
	log    *slog.Logger
}

// NewTelegramNotifier connects to the Bot API. It returns a no-op notifier when
// token or chat id is empty.
func NewTelegramNotifier(token string, chatID int64, log *slog.Logger) (AdminNotifier, error) {
	if token == "" || chatID == 0 {
		log.Info("[tg][skip] admin notifications disabled", "token_set", token != "", "chat_id", chatID)
		return NoopNotifier{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newTelegramNotifier(bot, chatID, log), nil
}

func newTelegramNotifier(bot telegramSender, chatID int64, log *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID, log: log}
}

func (t *TelegramNotifier) UserRegistered(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := fmt.Sprintf("New user registered: <b>%s</b>\nid: <code>%s</code>",
		html.EscapeString(user.Email), user.ID)

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		t.log.Warn("[tg][send][err]", "chat_id", t.chatID, "err", err)
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	t.log.Debug("[tg][send]", "chat_id", t.chatID, "user_id", user.ID)
	return nil
}

type NoopNotifier struct{}

func (NoopNotifier) UserRegistered(context.Context, *models.User) error { return nil }
