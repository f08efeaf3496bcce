// Package sitecache remembers per-domain page fingerprints so unchanged
// sites can be skipped. It is an optimization only: entries are
// read-then-overwritten without locking across processes.
package sitecache

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kondohub/kondo-scraper/internal/config"
)

// Entry is what was observed the last time a domain was scraped.
type Entry struct {
	Domain       string    `json:"domain"`
	URL          string    `json:"url"`
	HTMLChecksum string    `json:"html_checksum"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Engine       string    `json:"engine,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// Unchanged reports whether checksum matches the cached one for the same URL.
func (e *Entry) Unchanged(pageURL, checksum string) bool {
	return e != nil && checksum != "" && e.URL == pageURL && e.HTMLChecksum == checksum
}

// Cache stores one Entry per domain. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, domain string) (*Entry, error)
	Put(ctx context.Context, domain string, e Entry) error
}

// Domain returns the lower-cased host of rawURL without a leading "www.".
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// New returns the cache selected by cfg.Driver.
func New(cfg config.CacheConfig) (Cache, error) {
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	switch cfg.Driver {
	case "file":
		return NewFileCache(cfg.Dir, ttl), nil
	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisDB, ttl), nil
	case "none", "":
		return NopCache{}, nil
	default:
		return nil, eris.Errorf("sitecache: unsupported driver %q", cfg.Driver)
	}
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Entry, error) { return nil, nil }

func (NopCache) Put(context.Context, string, Entry) error { return nil }

func expired(e *Entry, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(e.ScrapedAt) > ttl
}
