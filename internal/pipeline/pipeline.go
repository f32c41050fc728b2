// Package pipeline runs one digest build: fetch a slot's sources, drop
// already reported links, translate what needs it and compose the entries.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/deusflow/newsdigest/internal/dedup"
	"github.com/deusflow/newsdigest/internal/digest"
	"github.com/deusflow/newsdigest/internal/feed"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/sources"
)

// ErrBusy is returned when a build is already running on this pipeline.
var ErrBusy = errors.New("digest build already in progress")

// Translator never fails; on error it hands back its input.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

type Classifier interface {
	NeedsTranslation(text string) bool
}

type Options struct {
	Registry         *sources.Registry
	Fetcher          feed.Fetcher
	Window           *dedup.Window
	Classifier       Classifier
	Translator       Translator
	Composer         *digest.Composer
	FetchConcurrency int
	BuildTimeout     time.Duration // 0 means no overall budget
}

type Pipeline struct {
	opts Options
	mu   sync.Mutex
}

func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Digest is the outcome of one build.
type Digest struct {
	Slot    string
	Entries []digest.Entry
	BuiltAt time.Time
}

func (d *Digest) Empty() bool {
	return len(d.Entries) == 0
}

// Messages renders the digest in style into bodies of at most maxSize runes.
// An empty digest yields the single "no news" message.
func (d *Digest) Messages(maxSize int, style digest.Style) []string {
	if d.Empty() {
		return []string{digest.EmptyMessage(d.Slot)}
	}
	blocks := make([]string, 0, len(d.Entries))
	for _, e := range d.Entries {
		blocks = append(blocks, e.Render(style))
	}
	return digest.Chunk(blocks, maxSize)
}

// Build produces the digest for slot. Source failures only shrink the digest;
// the returned error is ErrBusy or wraps sources.ErrUnknownSlot.
func (p *Pipeline) Build(ctx context.Context, slot string) (*Digest, error) {
	srcs, err := p.opts.Registry.Sources(slot)
	if err != nil {
		return nil, err
	}

	if !p.mu.TryLock() {
		logger.Warn("Digest build skipped, another build is running", "slot", slot)
		return nil, ErrBusy
	}
	defer p.mu.Unlock()

	start := time.Now()
	if p.opts.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.BuildTimeout)
		defer cancel()
	}

	logger.Info("Building digest", "slot", slot, "sources", len(srcs))
	perSource := feed.FetchAll(ctx, p.opts.Fetcher, srcs, p.opts.FetchConcurrency)

	selected, dups := p.opts.Composer.Select(perSource, p.opts.Window.Seen)
	for range dups {
		metrics.Global.IncrementDuplicatesFiltered()
	}

	entries := make([]digest.Entry, 0, len(selected))
	for _, it := range selected {
		// The first pass cuts the summary so only the kept part is translated.
		e := p.opts.Composer.Entry(it)
		e = p.opts.Composer.Entry(feed.Item{
			Title:   p.localize(ctx, e.Title),
			Summary: p.localize(ctx, e.Body),
			Link:    e.Link,
		})
		entries = append(entries, e)
	}
	for _, e := range entries {
		p.opts.Window.Record(e.Link)
	}

	d := &Digest{Slot: slot, Entries: entries, BuiltAt: time.Now()}
	metrics.Global.RecordBuild(slot, len(entries), time.Since(start))
	logger.Info("Digest built", "slot", slot, "entries", len(entries), "duplicates", dups,
		"duration", time.Since(start).Round(time.Millisecond))
	return d, nil
}

func (p *Pipeline) localize(ctx context.Context, text string) string {
	if text == "" || text == digest.Untitled || !p.opts.Classifier.NeedsTranslation(text) {
		return text
	}
	return p.opts.Translator.Translate(ctx, text)
}
