// Package notify delivers trade signals and status reports to people.
package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notifier sends one Markdown-formatted message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Telegram posts messages to a single chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint, chatID)
}

// NewTelegramWithEndpoint is NewTelegram against a custom Bot API endpoint,
// formatted like tgbotapi.APIEndpoint.
func NewTelegramWithEndpoint(token, endpoint string, chatID int64) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram: empty token")
	}
	if chatID == 0 {
		return nil, errors.New("telegram: missing chat id")
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	log.Info().Str("@", bot.Self.UserName).Msg("Telegram connected")
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Log writes messages to a zerolog logger. It is the sink used when
// Telegram is disabled.
type Log struct {
	Logger zerolog.Logger
}

func (l Log) Notify(_ context.Context, text string) error {
	l.Logger.Info().Str("sink", "notify").Msg(text)
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every message.
type Discard struct{}

func (Discard) Notify(context.Context, string) error { return nil }
