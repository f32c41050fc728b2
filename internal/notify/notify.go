// Package notify delivers rendered digest messages.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/retry"
)

// Sender posts one message body.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Deliver sends messages in order and stops at the first failure.
func Deliver(ctx context.Context, s Sender, messages []string) error {
	for i, m := range messages {
		if err := s.Send(ctx, m); err != nil {
			return fmt.Errorf("deliver message %d/%d: %w", i+1, len(messages), err)
		}
		metrics.Global.IncrementMessagesSent()
	}
	return nil
}

// Writer prints messages, separated by a blank line. Used for dry runs.
type Writer struct {
	W io.Writer
}

func (w Writer) Send(_ context.Context, text string) error {
	_, err := fmt.Fprintf(w.W, "%s\n\n", text)
	return err
}

// HTTPOptions are shared by the webhook-style senders.
type HTTPOptions struct {
	Client   *http.Client
	Attempts int
	Delay    time.Duration // base delay, multiplied by the attempt number
}

func (o HTTPOptions) withDefaults() HTTPOptions {
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Attempts < 1 {
		o.Attempts = 3
	}
	return o
}

// postJSON posts payload with retries. 4xx other than 429 is not retried.
func postJSON(ctx context.Context, opts HTTPOptions, target, service string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	policy := retry.Policy{MaxAttempts: opts.Attempts, Delay: opts.Delay, Backoff: true}
	attempts, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		err := postOnce(ctx, opts.Client, target, body)
		if err != nil {
			logger.Warn("Send failed", "service", service, "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	logger.Debug("Message sent", "service", service, "attempts", attempts)
	return nil
}

func postOnce(ctx context.Context, client *http.Client, target string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err = fmt.Errorf("API error: status %d", resp.StatusCode)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}
