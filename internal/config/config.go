// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Source registry
	SourcesFile string // empty or missing file means the built-in registry

	// Feed fetching
	FeedTimeout        time.Duration
	FeedItemsPerSource int // top K items kept per source
	FetchConcurrency   int
	UserAgent          string

	// Dedup window
	DedupWindow time.Duration
	DedupMode   string // "coarse" | "sliding"
	StateFile   string // dedup window persisted here between runs; empty keeps it in memory

	// Translation
	TranslateBackend        string // "libretranslate" | "gemini" | "none"
	TranslateURL            string
	TranslateAPIKey         string
	TranslateSource         string
	TranslateTarget         string
	TranslateTimeout        time.Duration
	TranslateAttempts       int
	TranslateRetryDelay     time.Duration
	TranslateRPS            float64
	TranslateBurst          int
	TranslateMaxConcurrency int
	TranslateCacheSize      int
	TranslateCacheTTL       time.Duration
	TranslateMaxRunes       int

	// Gemini settings
	GeminiAPIKey string
	GeminiModel  string

	// Digest
	DigestMaxEntries int
	SummaryMaxRunes  int
	MessageMaxRunes  int
	BuildTimeout     time.Duration

	// Scheduling (serve mode)
	ScheduleTZ      string
	ShutdownTimeout time.Duration // grace period for a running digest on shutdown

	// Delivery
	Notify            string // "stdout" | "telegram" | "discord"
	TelegramToken     string
	TelegramChatID    string
	DiscordWebhookURL string

	// App settings
	Debug            bool
	LogFormat        string
	EnableMonitoring bool
	MonitoringPort   string
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		SourcesFile:             "configs/sources.yaml",
		FeedTimeout:             15 * time.Second,
		FeedItemsPerSource:      4,
		FetchConcurrency:        3,
		UserAgent:               "Mozilla/5.0 (compatible; newsdigest/1.0; +https://github.com/deusflow/newsdigest)",
		DedupWindow:             24 * time.Hour,
		DedupMode:               "coarse",
		TranslateBackend:        "libretranslate",
		TranslateURL:            "https://libretranslate.de/translate",
		TranslateSource:         "en",
		TranslateTarget:         "ja",
		TranslateTimeout:        7 * time.Second,
		TranslateAttempts:       2,
		TranslateRetryDelay:     500 * time.Millisecond,
		TranslateRPS:            1,
		TranslateBurst:          2,
		TranslateMaxConcurrency: 1,
		TranslateCacheSize:      2048,
		TranslateCacheTTL:       72 * time.Hour,
		TranslateMaxRunes:       500,
		GeminiModel:             "gemini-1.5-flash",
		DigestMaxEntries:        5,
		SummaryMaxRunes:         120,
		MessageMaxRunes:         1900,
		BuildTimeout:            60 * time.Second,
		ScheduleTZ:              "Asia/Tokyo",
		ShutdownTimeout:         15 * time.Second,
		Notify:                  "stdout",
		MonitoringPort:          "8080",
	}

	cfg.SourcesFile = getEnvOrDefault("SOURCES_FILE", cfg.SourcesFile)
	cfg.UserAgent = getEnvOrDefault("USER_AGENT", cfg.UserAgent)
	cfg.FeedTimeout = getEnvDurationOrDefault("FEED_TIMEOUT", cfg.FeedTimeout)
	cfg.FeedItemsPerSource = getEnvIntOrDefault("FEED_ITEMS_PER_SOURCE", cfg.FeedItemsPerSource)
	cfg.FetchConcurrency = getEnvIntOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency)

	cfg.DedupWindow = getEnvDurationOrDefault("DEDUP_WINDOW", cfg.DedupWindow)
	cfg.DedupMode = strings.ToLower(getEnvOrDefault("DEDUP_MODE", cfg.DedupMode))
	cfg.StateFile = os.Getenv("STATE_FILE")

	cfg.TranslateBackend = strings.ToLower(getEnvOrDefault("TRANSLATE_BACKEND", cfg.TranslateBackend))
	cfg.TranslateURL = getEnvOrDefault("TRANSLATE_URL", cfg.TranslateURL)
	cfg.TranslateAPIKey = os.Getenv("TRANSLATE_API_KEY")
	cfg.TranslateSource = getEnvOrDefault("TRANSLATE_SOURCE", cfg.TranslateSource)
	cfg.TranslateTarget = getEnvOrDefault("TRANSLATE_TARGET", cfg.TranslateTarget)
	cfg.TranslateTimeout = getEnvDurationOrDefault("TRANSLATE_TIMEOUT", cfg.TranslateTimeout)
	cfg.TranslateAttempts = getEnvIntOrDefault("TRANSLATE_ATTEMPTS", cfg.TranslateAttempts)
	cfg.TranslateRetryDelay = getEnvDurationOrDefault("TRANSLATE_RETRY_DELAY", cfg.TranslateRetryDelay)
	cfg.TranslateRPS = getEnvFloatOrDefault("TRANSLATE_RPS", cfg.TranslateRPS)
	cfg.TranslateBurst = getEnvIntOrDefault("TRANSLATE_BURST", cfg.TranslateBurst)
	cfg.TranslateMaxConcurrency = getEnvIntOrDefault("TRANSLATE_MAX_CONCURRENCY", cfg.TranslateMaxConcurrency)
	cfg.TranslateCacheSize = getEnvIntOrDefault("TRANSLATE_CACHE_SIZE", cfg.TranslateCacheSize)
	cfg.TranslateCacheTTL = getEnvDurationOrDefault("TRANSLATE_CACHE_TTL", cfg.TranslateCacheTTL)
	cfg.TranslateMaxRunes = getEnvIntOrDefault("TRANSLATE_MAX_RUNES", cfg.TranslateMaxRunes)

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)

	cfg.DigestMaxEntries = getEnvIntOrDefault("DIGEST_MAX_ENTRIES", cfg.DigestMaxEntries)
	cfg.SummaryMaxRunes = getEnvIntOrDefault("SUMMARY_MAX_RUNES", cfg.SummaryMaxRunes)
	cfg.MessageMaxRunes = getEnvIntOrDefault("MESSAGE_MAX_RUNES", cfg.MessageMaxRunes)
	cfg.BuildTimeout = getEnvDurationOrDefault("BUILD_TIMEOUT", cfg.BuildTimeout)

	cfg.ScheduleTZ = getEnvOrDefault("SCHEDULE_TZ", cfg.ScheduleTZ)
	cfg.ShutdownTimeout = getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.Notify = strings.ToLower(getEnvOrDefault("NOTIFY", cfg.Notify))
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.DiscordWebhookURL = os.Getenv("DISCORD_WEBHOOK_URL")

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}
	cfg.LogFormat = os.Getenv("LOG_FORMAT")
	cfg.EnableMonitoring = os.Getenv("ENABLE_HTTP_MONITORING") == "true"
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("7s", "24h").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.FeedItemsPerSource < 1 {
		return fmt.Errorf("FEED_ITEMS_PER_SOURCE must be positive")
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive")
	}
	if c.FeedTimeout <= 0 || c.TranslateTimeout <= 0 || c.BuildTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must not be negative")
	}
	if c.DedupWindow <= 0 {
		return fmt.Errorf("DEDUP_WINDOW must be positive")
	}
	if c.DedupMode != "coarse" && c.DedupMode != "sliding" {
		return fmt.Errorf("DEDUP_MODE must be 'coarse' or 'sliding'")
	}
	switch c.TranslateBackend {
	case "libretranslate":
		if u, err := url.Parse(c.TranslateURL); err != nil || u.Host == "" {
			return fmt.Errorf("TRANSLATE_URL must be an absolute URL")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini backend")
		}
	case "none":
	default:
		return fmt.Errorf("TRANSLATE_BACKEND must be 'libretranslate', 'gemini' or 'none'")
	}
	if c.TranslateAttempts < 1 {
		return fmt.Errorf("TRANSLATE_ATTEMPTS must be at least 1")
	}
	if c.TranslateRPS <= 0 || c.TranslateBurst < 1 || c.TranslateMaxConcurrency < 1 {
		return fmt.Errorf("translation rate limits must be positive")
	}
	if c.TranslateCacheSize < 1 {
		return fmt.Errorf("TRANSLATE_CACHE_SIZE must be positive")
	}
	if c.DigestMaxEntries < 1 {
		return fmt.Errorf("DIGEST_MAX_ENTRIES must be positive")
	}
	if c.SummaryMaxRunes < 2 {
		return fmt.Errorf("SUMMARY_MAX_RUNES must be at least 2")
	}
	if c.MessageMaxRunes < 2 {
		return fmt.Errorf("MESSAGE_MAX_RUNES must be at least 2")
	}
	switch c.Notify {
	case "stdout":
	case "telegram":
		if c.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is required")
		}
		if c.TelegramChatID == "" {
			return fmt.Errorf("TELEGRAM_CHAT_ID is required")
		}
	case "discord":
		if c.DiscordWebhookURL == "" {
			return fmt.Errorf("DISCORD_WEBHOOK_URL is required")
		}
	default:
		return fmt.Errorf("NOTIFY must be 'stdout', 'telegram' or 'discord'")
	}
	return nil
}
