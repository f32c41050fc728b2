package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Translation outcomes.
const (
	TranslationCacheHit = "cache_hit"
	TranslationSuccess  = "success"
	TranslationFallback = "fallback"
)

// Attempt outcomes.
const (
	AttemptOK      = "ok"
	AttemptTimeout = "timeout"
	AttemptError   = "error"
)

type Metrics struct {
	feedFetches         *prometheus.CounterVec
	duplicatesFiltered  prometheus.Counter
	translations        *prometheus.CounterVec
	translationAttempts *prometheus.CounterVec
	digestEntries       *prometheus.GaugeVec
	buildDuration       *prometheus.HistogramVec
	messagesSent        prometheus.Counter

	mu            sync.RWMutex
	lastRunTime   time.Time
	lastErrorTime time.Time
	lastError     string
	isHealthy     bool
}

// Global is registered on the default Prometheus registry.
var Global = New(prometheus.DefaultRegisterer)

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		feedFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "feed_fetches_total",
			Help:      "Feed fetches by outcome.",
		}, []string{"result"}),
		duplicatesFiltered: f.NewCounter(prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "duplicates_filtered_total",
			Help:      "Items dropped because their link was already reported.",
		}),
		translations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "translations_total",
			Help:      "Translate calls by outcome.",
		}, []string{"result"}),
		translationAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "translation_attempts_total",
			Help:      "Network attempts against the translation backend.",
		}, []string{"result"}),
		digestEntries: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "newsdigest",
			Name:      "digest_entries",
			Help:      "Entries in the last digest built for a slot.",
		}, []string{"slot"}),
		buildDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsdigest",
			Name:      "digest_build_seconds",
			Help:      "Wall-clock time of a digest build.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"slot"}),
		messagesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "messages_sent_total",
			Help:      "Digest message bodies delivered.",
		}),
		isHealthy: true,
	}
}

func (m *Metrics) ObserveFetch(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.feedFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.duplicatesFiltered.Inc()
}

func (m *Metrics) ObserveTranslation(result string) {
	m.translations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAttempt(result string) {
	m.translationAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementMessagesSent() {
	m.messagesSent.Inc()
}

// RecordBuild stores the outcome of one digest build and marks the run healthy.
func (m *Metrics) RecordBuild(slot string, entries int, duration time.Duration) {
	m.digestEntries.WithLabelValues(slot).Set(float64(entries))
	m.buildDuration.WithLabelValues(slot).Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunTime = time.Now()
	m.isHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err
	m.lastErrorTime = time.Now()
	m.isHealthy = false
}

// Status is the health snapshot served on /health.
type Status struct {
	Healthy       bool      `json:"healthy"`
	LastRunTime   time.Time `json:"last_run_time"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorTime time.Time `json:"last_error_time"`
}

func (m *Metrics) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Healthy:       m.isHealthy,
		LastRunTime:   m.lastRunTime,
		LastError:     m.lastError,
		LastErrorTime: m.lastErrorTime,
	}
}
