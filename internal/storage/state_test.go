package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdigest/internal/dedup"
)

func TestFileStoreMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	snap, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Links)
}

func TestFileStoreRoundTripsWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	w := dedup.New(24*time.Hour, dedup.WithClock(clock), dedup.WithMode(dedup.Sliding))
	w.Record("https://example.com/a")
	w.Record("https://example.com/b")

	s := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, s.Save(w.Snapshot()))

	snap, err := s.Load()
	require.NoError(t, err)

	restored := dedup.New(24*time.Hour, dedup.WithClock(clock), dedup.WithMode(dedup.Sliding))
	restored.Restore(snap)
	assert.True(t, restored.Seen("https://example.com/a"))
	assert.True(t, restored.Seen("https://example.com/b"))
	assert.Equal(t, 2, restored.Len())
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}
