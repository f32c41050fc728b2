package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONIncludesAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false, "json")

	l.Warn("source failed", "url", "https://example.com/rss")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "https://example.com/rss", rec["url"])
}

func TestNewRespectsDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false, "text").Debug("hidden")
	assert.Empty(t, buf.String())

	New(&buf, true, "text").Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
