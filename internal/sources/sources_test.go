package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
slots:
  - label: morning
    schedule: "1 6 * * *"
    feeds:
      - name: A
        url: https://a.example.com/rss
      - url: https://b.example.com/atom.xml
  - label: evening
    feeds:
      - name: C
        url: http://c.example.com/feed
`

func TestParseKeepsOrder(t *testing.T) {
	r, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"morning", "evening"}, r.Slots())

	got, err := r.Sources("morning")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Source{Slot: "morning", Name: "A", Endpoint: "https://a.example.com/rss", Order: 0}, got[0])
	assert.Equal(t, "https://b.example.com/atom.xml", got[1].Name, "name defaults to the URL")
	assert.Equal(t, 1, got[1].Order)

	assert.Equal(t, "1 6 * * *", r.Schedule("morning"))
	assert.Empty(t, r.Schedule("evening"))
}

func TestSourcesUnknownSlot(t *testing.T) {
	r := Default()
	_, err := r.Sources("midnight")
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestSourcesReturnsCopy(t *testing.T) {
	r := Default()
	first, err := r.Sources("morning")
	require.NoError(t, err)
	first[0].Endpoint = "https://mutated.example.com"

	again, err := r.Sources("morning")
	require.NoError(t, err)
	assert.NotEqual(t, "https://mutated.example.com", again[0].Endpoint)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"no slots":      `slots: []`,
		"bad scheme":    "slots:\n  - label: x\n    feeds:\n      - url: ftp://x.example.com/rss\n",
		"no host":       "slots:\n  - label: x\n    feeds:\n      - url: https:///rss\n",
		"empty feeds":   "slots:\n  - label: x\n    feeds: []\n",
		"duplicate":     "slots:\n  - label: x\n    feeds:\n      - url: https://a.example.com\n  - label: x\n    feeds:\n      - url: https://b.example.com\n",
		"unknown field": "slots:\n  - label: x\n    interval: 5\n    feeds:\n      - url: https://a.example.com\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	r, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"morning", "noon", "evening"}, r.Slots())

	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	r, err = LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"morning", "evening"}, r.Slots())
}
