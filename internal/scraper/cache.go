package scraper

import (
	"context"

	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/sitecache"
)

func (s *Scraper) useCache(opts Options) bool {
	return s.skipUnchanged && !opts.Force
}

// cacheEntry returns the cached entry for domain. Cache failures are
// treated as misses.
func (s *Scraper) cacheEntry(ctx context.Context, domain string) *sitecache.Entry {
	if domain == "" {
		return nil
	}
	e, err := s.deps.Cache.Get(ctx, domain)
	if err != nil {
		zap.L().Warn("scraper: site cache read failed", zap.String("domain", domain), zap.Error(err))
		return nil
	}
	return e
}

// headers issues a HEAD request for url when a HeadChecker is configured.
func (s *Scraper) headers(ctx context.Context, url string) (string, string) {
	if s.deps.Head == nil {
		return "", ""
	}
	etag, lastModified, err := s.deps.Head.HeadETag(ctx, url)
	if err != nil {
		zap.L().Debug("scraper: HEAD check failed", zap.String("url", url), zap.Error(err))
		return "", ""
	}
	return etag, lastModified
}

// headersUnchanged reports whether the validators returned for url match the
// cached ones. An ETag match wins; Last-Modified is compared only when
// neither side has an ETag.
func headersUnchanged(e *sitecache.Entry, url, etag, lastModified string) bool {
	if e == nil || e.URL != url {
		return false
	}
	if etag != "" || e.ETag != "" {
		return etag == e.ETag
	}
	return lastModified != "" && lastModified == e.LastModified
}

func (s *Scraper) remember(ctx context.Context, domain string, e sitecache.Entry) {
	if domain == "" {
		return
	}
	if err := s.deps.Cache.Put(ctx, domain, e); err != nil {
		zap.L().Warn("scraper: site cache write failed", zap.String("domain", domain), zap.Error(err))
	}
}
