package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibreTranslateRequestAndResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"q":       "Hello",
			"source":  "en",
			"target":  "ja",
			"format":  "text",
			"api_key": "secret",
		}, body)

		_, _ = w.Write([]byte(`{"translatedText":" こんにちは "}`))
	}))
	defer srv.Close()

	lt := &LibreTranslate{Endpoint: srv.URL, APIKey: "secret"}
	out, err := lt.Translate(context.Background(), Request{Text: "Hello", Source: "en", Target: "ja", Format: "text"})
	require.NoError(t, err)
	assert.Equal(t, "こんにちは", out)
}

func TestLibreTranslateFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"status", http.StatusTooManyRequests, `{"error":"slow down"}`, func(t *testing.T, err error) {
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusTooManyRequests, se.Code)
		}},
		{"not json", http.StatusOK, `<html>`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrMalformedResponse)
		}},
		{"missing field", http.StatusOK, `{"error":"unsupported language"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Contains(t, err.Error(), "unsupported language")
		}},
		{"empty translation", http.StatusOK, `{"translatedText":"  "}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrMalformedResponse)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := (&LibreTranslate{Endpoint: srv.URL}).Translate(context.Background(), Request{Text: "x"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestLibreTranslateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := (&LibreTranslate{Endpoint: srv.URL}).Translate(ctx, Request{Text: "x"})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTranslatorOverHTTPMakesTwoAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := New(&LibreTranslate{Endpoint: srv.URL}, Options{Source: "en", Target: "ja", Timeout: time.Second, Attempts: 2})
	assert.Equal(t, "Breaking news", tr.Translate(context.Background(), "Breaking news"))
	assert.Equal(t, int32(2), hits.Load())
}
