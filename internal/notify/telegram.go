package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
)

// Telegram sends messages straight to a chat with the Bot API.
type Telegram struct {
	bot    *bot.Bot
	chatID any
}

// NewTelegram builds a sink from an Apprise-style tgram://<token>/<chat>
// recipient. It returns nil, nil when raw is not a Telegram URL.
func NewTelegram(raw string, opts ...bot.Option) (*Telegram, error) {
	token, chat, ok, err := ParseTelegramURL(raw)
	if err != nil || !ok {
		return nil, err
	}
	b, err := bot.New(token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{bot: b, chatID: chat}, nil
}

// ParseTelegramURL splits tgram://<token>/<chat>. Numeric chats become
// int64 ids; anything else (@channel) is passed through as a string.
func ParseTelegramURL(raw string) (token string, chat any, ok bool, err error) {
	const scheme = "tgram://"
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, scheme) {
		return "", nil, false, nil
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(raw, scheme), "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", nil, true, fmt.Errorf("telegram: want tgram://<token>/<chat>, got %q", raw)
	}
	if id, convErr := strconv.ParseInt(parts[1], 10, 64); convErr == nil {
		return parts[0], id, true, nil
	}
	return parts[0], parts[1], true, nil
}

func (t *Telegram) Send(ctx context.Context, title, text string) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   title + "\n" + text,
	})
	return err
}
