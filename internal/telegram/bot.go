package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"reelbot"
	"reelbot/internal/pipeline"
	"reelbot/internal/store"
)

const (
	msgStart = "👋 Hi! I'm a bot that downloads Instagram reel videos.\n\n" +
		"Just send me a link to an Instagram reel and I'll fetch it for you! 🚀"
	msgNotAdmin  = "🚫 You don't have administrator rights for this command."
	msgAddUsage  = "⚠️ Please give a username to add after the command (e.g. /add username)."
	msgDelUsage  = "⚠️ Please give a username to delete after the command (e.g. /del username)."
	msgListEmpty = "The user list is empty."
	msgStoreFail = "⚠️ Couldn't update the user list: storage error."
)

const updateTimeoutSeconds = 30

// Bot receives updates and dispatches them: admin commands are handled
// inline, every other text message becomes a resolution job run on its own
// goroutine, so a slow download never blocks other senders.
type Bot struct {
	api         *tgbotapi.BotAPI
	transport   *Transport
	coordinator *pipeline.Coordinator
	store       store.Store
	admin       string
}

func NewBot(api *tgbotapi.BotAPI, transport *Transport, coordinator *pipeline.Coordinator, s store.Store, admin string) *Bot {
	return &Bot{
		api:         api,
		transport:   transport,
		coordinator: coordinator,
		store:       s,
		admin:       store.NormalizeHandle(admin),
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = updateTimeoutSeconds
	updates := b.api.GetUpdatesChan(updateConfig)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.From == nil {
		return
	}
	sender := msg.From.UserName
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, sender)
		return
	}
	go b.coordinator.Handle(ctx, msg.Chat.ID, sender, msg.Text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, sender string) {
	logger := reelbot.Logger(ctx)
	switch command := msg.Command(); command {
	case "start":
		if err := b.store.LogAccess(sender); err != nil {
			logger.Warn("failed to record access", zap.Error(err))
		}
		b.reply(ctx, msg.Chat.ID, msgStart)
	case "add", "del", "list":
		if store.NormalizeHandle(sender) != b.admin {
			b.reply(ctx, msg.Chat.ID, msgNotAdmin)
			return
		}
		b.reply(ctx, msg.Chat.ID, adminReply(b.store, command, msg.CommandArguments()))
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.transport.SendText(ctx, chatID, text); err != nil {
		reelbot.Logger(ctx).Warn("failed to send reply", zap.Error(err))
	}
}

// adminReply executes an admin store command and renders the reply text.
// Callers have already verified the sender is the admin.
func adminReply(s store.Store, command, args string) string {
	arg := ""
	if fields := strings.Fields(args); len(fields) > 0 {
		arg = fields[0]
	}
	switch command {
	case "list":
		users, err := s.ListUsers()
		if err != nil {
			return msgStoreFail
		}
		if len(users) == 0 {
			return msgListEmpty
		}
		var builder strings.Builder
		builder.WriteString("👥 Authorized users:")
		for _, u := range users {
			builder.WriteString("\n@" + u)
		}
		return builder.String()
	case "add":
		if arg == "" {
			return msgAddUsage
		}
		added, err := s.AddUser(arg)
		if err != nil {
			return msgStoreFail
		}
		if !added {
			return fmt.Sprintf("⚠️ User @%s is already on the list.", store.NormalizeHandle(arg))
		}
		return fmt.Sprintf("✅ User @%s added.", store.NormalizeHandle(arg))
	case "del":
		if arg == "" {
			return msgDelUsage
		}
		removed, err := s.RemoveUser(arg)
		if err != nil {
			return msgStoreFail
		}
		if !removed {
			return fmt.Sprintf("⚠️ User @%s is not on the list.", store.NormalizeHandle(arg))
		}
		return fmt.Sprintf("✅ User @%s removed.", store.NormalizeHandle(arg))
	}
	return ""
}
