package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["chat_id"])
		assert.Equal(t, "hello", body["text"])
		assert.Equal(t, true, body["disable_web_page_preview"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "42", HTTPOptions{}).WithBaseURL(srv.URL + "/")
	require.NoError(t, tg.Send(context.Background(), "hello"))
}

func TestTelegramRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("T", "1", HTTPOptions{Attempts: 3}).WithBaseURL(srv.URL)
	require.NoError(t, tg.Send(context.Background(), "x"))
	assert.Equal(t, int32(3), hits.Load())
}

func TestDiscordDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewDiscord(srv.URL, HTTPOptions{Attempts: 3}).Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), hits.Load())
}

func TestDiscordSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"content": "digest"}, body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewDiscord(srv.URL, HTTPOptions{}).Send(context.Background(), "digest"))
}

type failingSender struct {
	sent   []string
	failOn int
}

func (f *failingSender) Send(_ context.Context, text string) error {
	if len(f.sent) == f.failOn {
		return errors.New("down")
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestDeliver(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Deliver(context.Background(), Writer{W: &buf}, []string{"one", "two"}))
	assert.Equal(t, "one\n\ntwo\n\n", buf.String())

	s := &failingSender{failOn: 1}
	err := Deliver(context.Background(), s, []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message 2/3")
	assert.Equal(t, []string{"a"}, s.sent)
}
