package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/sources"
)

const maxFeedBytes = 4 << 20

// Item is one parsed feed entry. Link is its identity.
type Item struct {
	Title       string
	Summary     string
	Link        string
	PublishedAt time.Time // zero when the feed gives no date
	Source      string
}

// SourceError wraps a network or parse failure for one source.
type SourceError struct {
	Source   string
	Endpoint string
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.Endpoint, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Fetcher retrieves one source.
type Fetcher interface {
	Fetch(ctx context.Context, src sources.Source) ([]Item, error)
}

type RSSFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	limit     int
}

type Options struct {
	Client    *http.Client // nil means a default client
	UserAgent string
	Timeout   time.Duration // per source
	Limit     int           // top K items kept per source
}

func NewRSSFetcher(opts Options) *RSSFetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	return &RSSFetcher{
		client:    client,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		limit:     opts.Limit,
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context, src sources.Source) ([]Item, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	wrap := func(err error) error {
		return &SourceError{Source: src.Name, Endpoint: src.Endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Endpoint, nil)
	if err != nil {
		return nil, wrap(err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, wrap(fmt.Errorf("HTTP error: %d", resp.StatusCode))
	}

	// gofeed parsers are not safe for concurrent use.
	parsed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, wrap(fmt.Errorf("parse: %w", err))
	}

	return topItems(convert(parsed, src.Name), f.limit), nil
}

func convert(parsed *gofeed.Feed, source string) []Item {
	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		link := strings.TrimSpace(it.Link)
		if link == "" {
			logger.Debug("Skipping feed item without link", "source", source, "title", it.Title)
			continue
		}

		summary := it.Description
		if strings.TrimSpace(summary) == "" {
			summary = it.Content
		}

		var published time.Time
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			published = *it.UpdatedParsed
		}

		items = append(items, Item{
			Title:       collapseSpace(it.Title),
			Summary:     PlainText(summary),
			Link:        link,
			PublishedAt: published,
			Source:      source,
		})
	}
	return items
}

// topItems keeps the limit most recent items. Dated items come first, newest
// first; undated items follow in feed order.
func topItems(items []Item, limit int) []Item {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].PublishedAt, items[j].PublishedAt
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// PlainText strips markup from a feed snippet and collapses whitespace.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseSpace(s)
	}
	doc.Find("script, style").Remove()
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FetchAll fetches every source concurrently. The result is indexed like
// srcs; a failed source contributes an empty slice and a warning.
func FetchAll(ctx context.Context, f Fetcher, srcs []sources.Source, concurrency int) [][]Item {
	results := make([][]Item, len(srcs))

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, src := range srcs {
		g.Go(func() error {
			items, err := f.Fetch(ctx, src)
			if err != nil {
				metrics.Global.ObserveFetch(false)
				var se *SourceError
				if !errors.As(err, &se) {
					err = &SourceError{Source: src.Name, Endpoint: src.Endpoint, Err: err}
				}
				logger.Warn("Feed fetch failed, skipping source",
					"slot", src.Slot, "source", src.Name, "url", src.Endpoint, "error", err)
				results[i] = []Item{}
				return nil
			}
			metrics.Global.ObserveFetch(true)
			logger.Info("Loaded feed", "slot", src.Slot, "source", src.Name, "items", len(items))
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	return results
}
