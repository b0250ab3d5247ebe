package notifier

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"TrendSentinel/pkg/logger"
)

// maxMessageLen is Telegram's limit for one text message.
const maxMessageLen = 4096

// Notifier delivers a rendered digest.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	bot    *tgbot.BotAPI
	ChatID int64
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support. An
// empty endpoint uses the public Bot API.
func NewTelegramNotifier(botToken string, chatID int64, proxyURL, endpoint string) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if endpoint == "" {
		endpoint = tgbot.APIEndpoint
	}
	client := &http.Client{
		Timeout:   35 * time.Second,
		Transport: transport,
	}
	bot, err := tgbot.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, errors.Wrap(err, "telegram login")
	}
	logger.Info("telegram authorized as @%s", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, ChatID: chatID, Backoff: time.Second}, nil
}

// Send sends a message to the configured chat, split at line boundaries
// when it exceeds the Telegram limit.
func (t *TelegramNotifier) Send(_ context.Context, text string) error {
	for _, part := range split(text, maxMessageLen) {
		if err := t.sendPart(part); err != nil {
			return err
		}
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry. Each part
// of a split message is retried on its own, so parts already delivered are
// never sent twice.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	parts := split(text, maxMessageLen)
	for n, part := range parts {
		var lastErr error
		for i := 0; i <= maxRetries; i++ {
			if lastErr = t.sendPart(part); lastErr == nil {
				break
			}
			if i == maxRetries {
				break
			}
			backoff := t.Backoff * time.Duration(1<<uint(i))
			logger.Warn("telegram send of part %d/%d failed (attempt %d/%d): %v, retrying in %v",
				n+1, len(parts), i+1, maxRetries+1, lastErr, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if lastErr != nil {
			return errors.Wrapf(lastErr, "part %d/%d: all %d retries exhausted", n+1, len(parts), maxRetries+1)
		}
	}
	return nil
}

func (t *TelegramNotifier) sendPart(part string) error {
	msg := tgbot.NewMessage(t.ChatID, part)
	msg.ParseMode = tgbot.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}

// split cuts text into chunks of at most limit bytes, preferring newlines.
func split(text string, limit int) []string {
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
