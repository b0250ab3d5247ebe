package notifier

import (
	"context"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"TrendSentinel/pkg/logger"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// StartPolling begins long-polling for Telegram commands from the configured
// chat. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(ctx, update, handler)
		}
	}
}

func (t *TelegramNotifier) handleUpdate(ctx context.Context, update tgbot.Update, handler CommandHandler) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if update.Message.Chat != nil && update.Message.Chat.ID != t.ChatID {
		logger.Warn("ignoring message from chat %d", update.Message.Chat.ID)
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	logger.Info("received command: %s", text)
	reply := handler(ctx, text)
	if reply != "" {
		if err := t.Send(ctx, reply); err != nil {
			logger.Error("send reply: %v", err)
		}
	}
}
