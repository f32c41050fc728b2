// Package gemini is a translation backend backed by Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/newsdigest/internal/translate"
)

type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Translate implements translate.Backend with a single GenerateContent call.
func (c *Client) Translate(ctx context.Context, req translate.Request) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.1)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(req)))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", translate.ErrTimeout, err)
		}
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractText(resp)
}

func buildPrompt(req translate.Request) string {
	source := req.Source
	if source == "" || source == "auto" {
		source = "the detected source language"
	}
	return fmt.Sprintf(`Translate the following news text from %s to %s.
Keep names of people, brands and organisations unchanged.
Reply with the translation only, without quotes, notes or explanations.

%s`, source, languageName(req.Target), req.Text)
}

func languageName(code string) string {
	switch strings.ToLower(code) {
	case "ja":
		return "Japanese"
	case "zh":
		return "Chinese"
	case "ko":
		return "Korean"
	case "uk":
		return "Ukrainian"
	case "ru":
		return "Russian"
	default:
		return code
	}
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates from Gemini", translate.ErrMalformedResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("%w: empty Gemini reply", translate.ErrMalformedResponse)
	}
	return out, nil
}
