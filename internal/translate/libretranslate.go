package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxResponseBytes = 256 * 1024

// LibreTranslate talks to a LibreTranslate-compatible /translate endpoint.
type LibreTranslate struct {
	Endpoint  string
	APIKey    string
	UserAgent string
	Client    *http.Client
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText *string `json:"translatedText"`
	Error          string  `json:"error"`
}

func (l *LibreTranslate) Translate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(libreRequest{
		Q:      req.Text,
		Source: req.Source,
		Target: req.Target,
		Format: req.Format,
		APIKey: l.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if l.UserAgent != "" {
		httpReq.Header.Set("User-Agent", l.UserAgent)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return "", fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return "", &StatusError{Code: resp.StatusCode}
	}

	var out libreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.TranslatedText == nil {
		if out.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrMalformedResponse, out.Error)
		}
		return "", fmt.Errorf("%w: missing translatedText", ErrMalformedResponse)
	}
	text := strings.TrimSpace(*out.TranslatedText)
	if text == "" {
		return "", fmt.Errorf("%w: empty translatedText", ErrMalformedResponse)
	}
	return text, nil
}
