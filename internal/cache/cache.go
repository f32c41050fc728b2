// Package cache stores successful translations keyed by a content hash.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Key is the content hash of text: hex SHA-256.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Translations is a bounded LRU with per-entry TTL. A ttl of zero disables
// expiry and leaves only the capacity bound.
type Translations struct {
	lru *expirable.LRU[string, string]
}

func New(capacity int, ttl time.Duration) *Translations {
	if capacity < 1 {
		capacity = 1
	}
	return &Translations{lru: expirable.NewLRU[string, string](capacity, nil, ttl)}
}

func (c *Translations) Get(key string) (string, bool) {
	return c.lru.Get(key)
}

func (c *Translations) Set(key, translated string) {
	c.lru.Add(key, translated)
}

func (c *Translations) Len() int {
	return c.lru.Len()
}
