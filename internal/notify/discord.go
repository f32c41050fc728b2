package notify

import "context"

// Discord posts to a channel webhook.
type Discord struct {
	webhookURL string
	opts       HTTPOptions
}

func NewDiscord(webhookURL string, opts HTTPOptions) *Discord {
	return &Discord{webhookURL: webhookURL, opts: opts.withDefaults()}
}

func (d *Discord) Send(ctx context.Context, text string) error {
	return postJSON(ctx, d.opts, d.webhookURL, "discord", map[string]any{"content": text})
}
