// Package sources holds the slot → feed registry. A Registry is built once
// and never mutated; accessors hand out copies.
package sources

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownSlot is returned when a slot label has no registry entry.
var ErrUnknownSlot = errors.New("unknown slot")

// Source is one feed endpoint polled for a slot.
type Source struct {
	Slot     string
	Name     string
	Endpoint string
	Order    int
}

// FileConfig is the YAML layout:
//
//	slots:
//	  - label: morning
//	    schedule: "1 6 * * *"
//	    feeds:
//	      - name: TechCrunch
//	        url: https://techcrunch.com/feed/
type FileConfig struct {
	Slots []SlotConfig `yaml:"slots"`
}

type SlotConfig struct {
	Label    string       `yaml:"label"`
	Schedule string       `yaml:"schedule"`
	Feeds    []FeedConfig `yaml:"feeds"`
}

type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type Registry struct {
	order     []string
	sources   map[string][]Source
	schedules map[string]string
}

// Load reads the registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault falls back to the built-in registry when path does not exist.
func LoadOrDefault(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

func Parse(data []byte) (*Registry, error) {
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	return New(cfg)
}

// New validates cfg and builds an immutable registry from it.
func New(cfg FileConfig) (*Registry, error) {
	if len(cfg.Slots) == 0 {
		return nil, errors.New("sources: no slots configured")
	}

	r := &Registry{
		sources:   make(map[string][]Source, len(cfg.Slots)),
		schedules: make(map[string]string, len(cfg.Slots)),
	}
	for _, slot := range cfg.Slots {
		label := strings.TrimSpace(slot.Label)
		if label == "" {
			return nil, errors.New("sources: slot without label")
		}
		if _, dup := r.sources[label]; dup {
			return nil, fmt.Errorf("sources: duplicate slot %q", label)
		}
		if len(slot.Feeds) == 0 {
			return nil, fmt.Errorf("sources: slot %q has no feeds", label)
		}

		list := make([]Source, 0, len(slot.Feeds))
		for i, f := range slot.Feeds {
			if err := validateEndpoint(f.URL); err != nil {
				return nil, fmt.Errorf("sources: slot %q feed %d: %w", label, i, err)
			}
			name := f.Name
			if name == "" {
				name = f.URL
			}
			list = append(list, Source{Slot: label, Name: name, Endpoint: f.URL, Order: i})
		}

		r.order = append(r.order, label)
		r.sources[label] = list
		r.schedules[label] = strings.TrimSpace(slot.Schedule)
	}
	return r, nil
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %q (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host in URL")
	}
	return nil
}

// Sources returns the slot's sources in registry order.
func (r *Registry) Sources(slot string) ([]Source, error) {
	list, ok := r.sources[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	out := make([]Source, len(list))
	copy(out, list)
	return out, nil
}

// Slots returns the slot labels in declaration order.
func (r *Registry) Slots() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Schedule returns the cron spec for slot, or "" if none is configured.
func (r *Registry) Schedule(slot string) string {
	return r.schedules[slot]
}

// Default is the built-in registry: three slots, three feeds each.
func Default() *Registry {
	r, err := New(FileConfig{Slots: []SlotConfig{
		{
			Label:    "morning",
			Schedule: "1 6 * * *",
			Feeds: []FeedConfig{
				{Name: "Reuters Japan", URL: "https://jp.reuters.com/rssFeed/topNews"},
				{Name: "Hatena Hotentry IT", URL: "https://b.hatena.ne.jp/hotentry/it.rss"},
				{Name: "TechCrunch", URL: "https://techcrunch.com/feed/"},
			},
		},
		{
			Label:    "noon",
			Schedule: "0 12 * * *",
			Feeds: []FeedConfig{
				{Name: "CNET Japan", URL: "https://japan.cnet.com/rss/index.rdf"},
				{Name: "GIGAZINE", URL: "https://gigazine.net/news/rss_2.0/"},
				{Name: "BBC World", URL: "http://feeds.bbci.co.uk/news/world/rss.xml"},
			},
		},
		{
			Label:    "evening",
			Schedule: "0 20 * * *",
			Feeds: []FeedConfig{
				{Name: "sorae", URL: "https://sorae.info/feed"},
				{Name: "ReseMom", URL: "https://resemom.jp/rss/rss.xml"},
				{Name: "Benesse", URL: "https://benesse.jp/contents/feed.xml"},
			},
		},
	}})
	if err != nil {
		panic(err) // static table
	}
	return r
}
