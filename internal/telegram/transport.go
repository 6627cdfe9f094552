// Package telegram adapts the Telegram Bot API to the pipeline's transport
// contract and runs the inbound update loop.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"reelbot/internal/pipeline"
)

// Transport implements pipeline.Transport on top of the Bot API client.
type Transport struct {
	bot *tgbotapi.BotAPI
}

var _ pipeline.Transport = (*Transport)(nil)

func NewTransport(bot *tgbotapi.BotAPI) *Transport {
	return &Transport{bot: bot}
}

func (t *Transport) SendText(_ context.Context, chatID int64, text string) (int, error) {
	sent, err := t.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (t *Transport) SendChatAction(_ context.Context, chatID int64, action string) error {
	_, err := t.bot.Request(tgbotapi.NewChatAction(chatID, action))
	return err
}

func (t *Transport) SendVideo(_ context.Context, chatID int64, artifactPath string) error {
	if _, err := t.bot.Send(tgbotapi.NewVideo(chatID, tgbotapi.FilePath(artifactPath))); err != nil {
		if isEntityTooLarge(err) {
			return fmt.Errorf("%w: %w", pipeline.ErrUploadTooLarge, err)
		}
		return err
	}
	return nil
}

func (t *Transport) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	_, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// The Bot API reports an oversize upload as "Request Entity Too Large".
func isEntityTooLarge(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "too large")
}
