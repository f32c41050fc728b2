package notify

import (
	"context"
	"fmt"
	"strings"
)

const telegramAPI = "https://api.telegram.org"

// Telegram posts to a chat through the Bot API sendMessage method.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	opts    HTTPOptions
}

func NewTelegram(token, chatID string, opts HTTPOptions) *Telegram {
	return &Telegram{token: token, chatID: chatID, baseURL: telegramAPI, opts: opts.withDefaults()}
}

// WithBaseURL points the sender at another API host.
func (t *Telegram) WithBaseURL(u string) *Telegram {
	t.baseURL = strings.TrimRight(u, "/")
	return t
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	payload := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	return postJSON(ctx, t.opts, url, "telegram", payload)
}
