package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdigest/internal/translate"
)

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt(translate.Request{Text: "Apple unveils chips", Source: "en", Target: "ja"})
	assert.Contains(t, p, "from en to Japanese")
	assert.Contains(t, p, "Apple unveils chips")
}

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(" アップルが "), genai.Text("新チップを発表")}},
	}}}
	out, err := extractText(resp)
	require.NoError(t, err)
	assert.Equal(t, "アップルが 新チップを発表", out)
}

func TestExtractTextMalformed(t *testing.T) {
	_, err := extractText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, translate.ErrMalformedResponse)

	_, err = extractText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("   ")}},
	}}})
	assert.ErrorIs(t, err, translate.ErrMalformedResponse)
}
