// Package app wires configuration into a runnable digest service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deusflow/newsdigest/internal/cache"
	"github.com/deusflow/newsdigest/internal/config"
	"github.com/deusflow/newsdigest/internal/dedup"
	"github.com/deusflow/newsdigest/internal/digest"
	"github.com/deusflow/newsdigest/internal/feed"
	"github.com/deusflow/newsdigest/internal/gemini"
	"github.com/deusflow/newsdigest/internal/langdetect"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/notify"
	"github.com/deusflow/newsdigest/internal/pipeline"
	"github.com/deusflow/newsdigest/internal/ratelimit"
	"github.com/deusflow/newsdigest/internal/sources"
	"github.com/deusflow/newsdigest/internal/storage"
	"github.com/deusflow/newsdigest/internal/translate"
)

type App struct {
	cfg      *config.Config
	registry *sources.Registry
	pipeline *pipeline.Pipeline
	window   *dedup.Window
	state    *storage.FileStore // nil keeps the window in memory only
	sender   notify.Sender
	closers  []io.Closer

	jobMu sync.Mutex // scheduled slots run one after another
}

type Option func(*App)

// WithSender replaces the sender chosen by NOTIFY.
func WithSender(s notify.Sender) Option {
	return func(a *App) { a.sender = s }
}

// New builds every component from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	registry, err := sources.LoadOrDefault(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	classifier, err := langdetect.New(cfg.TranslateTarget)
	if err != nil {
		return nil, fmt.Errorf("language classifier: %w", err)
	}

	a := &App{
		cfg:      cfg,
		registry: registry,
		window:   dedup.New(cfg.DedupWindow, dedup.WithMode(dedup.ParseMode(cfg.DedupMode))),
	}
	if cfg.StateFile != "" {
		a.state = storage.NewFileStore(cfg.StateFile)
		snap, err := a.state.Load()
		if err != nil {
			logger.Warn("Could not load dedup state, starting empty", "path", cfg.StateFile, "error", err)
		} else {
			a.window.Restore(snap)
			logger.Info("Dedup state loaded", "path", cfg.StateFile, "links", a.window.Len())
		}
	}

	translator, err := a.newTranslator(ctx)
	if err != nil {
		return nil, err
	}

	fetcher := feed.NewRSSFetcher(feed.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FeedTimeout,
		Limit:     cfg.FeedItemsPerSource,
	})

	a.pipeline = pipeline.New(pipeline.Options{
		Registry:         registry,
		Fetcher:          fetcher,
		Window:           a.window,
		Classifier:       classifier,
		Translator:       translator,
		Composer:         digest.New(cfg.DigestMaxEntries, cfg.SummaryMaxRunes),
		FetchConcurrency: cfg.FetchConcurrency,
		BuildTimeout:     cfg.BuildTimeout,
	})

	for _, opt := range opts {
		opt(a)
	}
	if a.sender == nil {
		a.sender = newSender(cfg)
	}
	return a, nil
}

func (a *App) newTranslator(ctx context.Context) (pipeline.Translator, error) {
	cfg := a.cfg
	opts := translate.Options{
		Source:     cfg.TranslateSource,
		Target:     cfg.TranslateTarget,
		Timeout:    cfg.TranslateTimeout,
		Attempts:   cfg.TranslateAttempts,
		RetryDelay: cfg.TranslateRetryDelay,
		MaxRunes:   cfg.TranslateMaxRunes,
		Cache:      cache.New(cfg.TranslateCacheSize, cfg.TranslateCacheTTL),
		Limiter:    ratelimit.New(cfg.TranslateRPS, cfg.TranslateBurst, cfg.TranslateMaxConcurrency),
	}

	switch cfg.TranslateBackend {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		logger.Info("Translation backend ready", "backend", "gemini", "model", cfg.GeminiModel)
		return translate.New(client, opts), nil
	case "libretranslate":
		backend := &translate.LibreTranslate{
			Endpoint:  cfg.TranslateURL,
			APIKey:    cfg.TranslateAPIKey,
			UserAgent: cfg.UserAgent,
		}
		logger.Info("Translation backend ready", "backend", "libretranslate", "url", cfg.TranslateURL)
		return translate.New(backend, opts), nil
	default:
		logger.Info("Translation disabled")
		return translate.Passthrough{}, nil
	}
}

func newSender(cfg *config.Config) notify.Sender {
	switch cfg.Notify {
	case "telegram":
		return notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, notify.HTTPOptions{Delay: 2 * time.Second})
	case "discord":
		return notify.NewDiscord(cfg.DiscordWebhookURL, notify.HTTPOptions{Delay: 2 * time.Second})
	default:
		return notify.Writer{W: os.Stdout}
	}
}

// renderStyle picks Markdown for Discord, whose client renders it; other
// destinations get plain text.
func renderStyle(notifyTarget string) digest.Style {
	if notifyTarget == "discord" {
		return digest.Markdown
	}
	return digest.Plain
}

func (a *App) Registry() *sources.Registry { return a.registry }

// RunOnce builds the slot's digest and delivers it. An empty digest is
// delivered as the "no news" message.
func (a *App) RunOnce(ctx context.Context, slot string) error {
	d, err := a.pipeline.Build(ctx, slot)
	if err != nil {
		if !errors.Is(err, pipeline.ErrBusy) {
			metrics.Global.SetError(err.Error())
		}
		return err
	}
	a.saveState()

	messages := d.Messages(a.cfg.MessageMaxRunes, renderStyle(a.cfg.Notify))
	if err := notify.Deliver(ctx, a.sender, messages); err != nil {
		metrics.Global.SetError(err.Error())
		return err
	}
	logger.Info("Digest delivered", "slot", slot, "entries", len(d.Entries), "messages", len(messages))
	return nil
}

func (a *App) saveState() {
	if a.state == nil {
		return
	}
	if err := a.state.Save(a.window.Snapshot()); err != nil {
		logger.Warn("Could not save dedup state", "path", a.state.Path(), "error", err)
	}
}

// Serve runs every slot on its cron schedule until ctx is cancelled. A digest
// still running at that point gets ShutdownTimeout to finish.
func (a *App) Serve(ctx context.Context) error {
	loc, err := time.LoadLocation(a.cfg.ScheduleTZ)
	if err != nil {
		return fmt.Errorf("load schedule timezone %q: %w", a.cfg.ScheduleTZ, err)
	}

	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	c, err := a.scheduler(jobCtx, loc)
	if err != nil {
		return err
	}

	var srv *http.Server
	if a.cfg.EnableMonitoring {
		srv = &http.Server{Addr: ":" + a.cfg.MonitoringPort, Handler: MonitorHandler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("Starting monitoring server", "port", a.cfg.MonitoringPort)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Monitoring server error", "error", err)
			}
		}()
	}

	c.Start()
	logger.Info("Scheduler started", "timezone", loc.String(), "jobs", len(c.Entries()))
	<-ctx.Done()

	stopped := c.Stop()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	select {
	case <-stopped.Done():
	case <-time.After(a.cfg.ShutdownTimeout):
		logger.Warn("Running digest did not finish before shutdown", "grace", a.cfg.ShutdownTimeout)
		cancelJobs()
	}
	return nil
}

// scheduler registers one job per scheduled slot. A slot whose previous run
// is still going waits for it instead of being skipped.
func (a *App) scheduler(ctx context.Context, loc *time.Location) (*cron.Cron, error) {
	log := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.DelayIfStillRunning(log)),
	)
	for _, slot := range a.registry.Slots() {
		spec := a.registry.Schedule(slot)
		if spec == "" {
			logger.Warn("Slot has no schedule, only runnable by hand", "slot", slot)
			continue
		}
		if _, err := c.AddFunc(spec, func() {
			if err := a.runScheduled(ctx, slot); err != nil {
				logger.Error("Scheduled digest failed", "slot", slot, "error", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("schedule slot %q (%q): %w", slot, spec, err)
		}
		logger.Info("Slot scheduled", "slot", slot, "schedule", spec)
	}
	return c, nil
}

// runScheduled queues behind any other scheduled slot, so slots firing at
// the same minute are all delivered rather than rejected as busy.
func (a *App) runScheduled(ctx context.Context, slot string) error {
	a.jobMu.Lock()
	defer a.jobMu.Unlock()
	return a.RunOnce(ctx, slot)
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
