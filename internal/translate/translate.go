package translate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deusflow/newsdigest/internal/cache"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/ratelimit"
	"github.com/deusflow/newsdigest/internal/retry"
)

var (
	// ErrTimeout means a single attempt ran out of time.
	ErrTimeout = errors.New("translation timed out")
	// ErrMalformedResponse means the service answered but the body had no usable translation.
	ErrMalformedResponse = errors.New("malformed translation response")
)

// StatusError is a non-success HTTP status from the service.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("translation service returned status %d", e.Code)
}

// Request is one outbound translation call.
type Request struct {
	Text   string
	Source string
	Target string
	Format string // "text" or "html"
}

// Backend makes exactly one call to a translation service.
type Backend interface {
	Translate(ctx context.Context, req Request) (string, error)
}

type Options struct {
	Source     string
	Target     string
	Timeout    time.Duration // per attempt
	Attempts   int           // total attempts, 2 means one retry
	RetryDelay time.Duration
	MaxRunes   int // input longer than this is cut before sending and caching; 0 disables
	Cache      *cache.Translations
	Limiter    *ratelimit.Limiter
}

// Translator fronts a Backend with a content-hash cache, a per-attempt
// timeout, a bounded retry and a fallback to the input text.
type Translator struct {
	backend Backend
	opts    Options
	cache   *cache.Translations
	limiter *ratelimit.Limiter
}

func New(backend Backend, opts Options) *Translator {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	c := opts.Cache
	if c == nil {
		c = cache.New(1024, 0)
	}
	l := opts.Limiter
	if l == nil {
		l = ratelimit.Unlimited()
	}
	return &Translator{backend: backend, opts: opts, cache: c, limiter: l}
}

// Translate returns the translation of text, or text itself when every
// attempt fails. Only successful translations are cached.
func (t *Translator) Translate(ctx context.Context, text string) string {
	if text == "" {
		return text
	}

	// Input over MaxRunes is cut before sending and the cache is keyed on the
	// cut text. The fallback is still the full input.
	sent := truncateRunes(text, t.opts.MaxRunes)
	key := cache.Key(sent)
	if sent != text {
		logger.Debug("Translation input truncated", "hash", key, "max_runes", t.opts.MaxRunes)
	}
	if v, ok := t.cache.Get(key); ok {
		metrics.Global.ObserveTranslation(metrics.TranslationCacheHit)
		logger.Debug("Translation cache hit", "hash", key)
		return v
	}

	req := Request{
		Text:   sent,
		Source: t.opts.Source,
		Target: t.opts.Target,
		Format: "text",
	}

	var translated string
	policy := retry.Policy{MaxAttempts: t.opts.Attempts, Delay: t.opts.RetryDelay, Backoff: true}
	attempts, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		out, err := t.attempt(ctx, req)
		if err != nil {
			logger.Debug("Translation attempt failed", "hash", key, "attempt", attempt, "error", err)
			return err
		}
		translated = out
		return nil
	})
	if err != nil {
		metrics.Global.ObserveTranslation(metrics.TranslationFallback)
		logger.Warn("Translation failed, using original text", "hash", key, "attempts", attempts, "error", err)
		return text
	}

	metrics.Global.ObserveTranslation(metrics.TranslationSuccess)
	t.cache.Set(key, translated)
	return translated
}

func (t *Translator) attempt(ctx context.Context, req Request) (string, error) {
	release, err := t.limiter.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	out, err := t.backend.Translate(ctx, req)
	if err == nil && out == "" {
		err = ErrMalformedResponse
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		if errors.Is(err, ErrTimeout) {
			metrics.Global.ObserveAttempt(metrics.AttemptTimeout)
		} else {
			metrics.Global.ObserveAttempt(metrics.AttemptError)
		}
		return "", err
	}

	metrics.Global.ObserveAttempt(metrics.AttemptOK)
	return out, nil
}

// CacheLen reports how many translations are cached.
func (t *Translator) CacheLen() int {
	return t.cache.Len()
}

// Passthrough returns text unchanged; used when translation is disabled.
type Passthrough struct{}

func (Passthrough) Translate(_ context.Context, text string) string { return text }

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
