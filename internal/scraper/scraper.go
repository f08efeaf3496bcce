// Package scraper runs a listing through the whole pipeline: engine
// selection, retried scrape, sanity validation, merge, media download and a
// single listing update carrying the accepted fields and scrape provenance.
package scraper

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/config"
	"github.com/kondohub/kondo-scraper/internal/cost"
	"github.com/kondohub/kondo-scraper/internal/engine"
	"github.com/kondohub/kondo-scraper/internal/media"
	"github.com/kondohub/kondo-scraper/internal/merge"
	"github.com/kondohub/kondo-scraper/internal/metrics"
	"github.com/kondohub/kondo-scraper/internal/model"
	"github.com/kondohub/kondo-scraper/internal/quality"
	"github.com/kondohub/kondo-scraper/internal/resilience"
	"github.com/kondohub/kondo-scraper/internal/sitecache"
	"github.com/kondohub/kondo-scraper/internal/storage"
	"github.com/kondohub/kondo-scraper/internal/store"
)

var (
	// ErrNotFound is returned when the listing does not exist.
	ErrNotFound = eris.New("scraper: listing not found")
	// ErrInvalidInput is returned for listings that cannot be scraped as
	// requested, such as a missing source URL or an unknown forced engine.
	ErrInvalidInput = eris.New("scraper: invalid input")
)

// EngineSelector picks the engine for a URL. *engine.Selector satisfies it.
type EngineSelector interface {
	Select(ctx context.Context, url, force string) (engine.Selection, error)
}

// MediaGate decides whether a candidate is worth downloading. *media.Gate
// satisfies it.
type MediaGate interface {
	Evaluate(ctx context.Context, c model.MediaCandidate) media.Decision
}

// HeadChecker reads a page's ETag and Last-Modified headers.
// *platform.Chain satisfies it.
type HeadChecker interface {
	HeadETag(ctx context.Context, url string) (etag, lastModified string, err error)
}

// Deps are the collaborators of a Scraper. Store, Selector, Gate and
// Downloader are required.
type Deps struct {
	Store      store.Store
	Selector   EngineSelector
	Gate       MediaGate
	Downloader storage.Downloader
	Cache      sitecache.Cache
	Head       HeadChecker
	Metrics    *metrics.Metrics
	Costs      *cost.Calculator
}

// Options tune a single scrape.
type Options struct {
	// Engine forces an engine by name.
	Engine string `json:"engine,omitempty"`
	// DryRun scrapes and merges without downloading media or writing.
	DryRun bool `json:"dry_run,omitempty"`
	// SkipMedia leaves the listing's media untouched.
	SkipMedia bool `json:"skip_media,omitempty"`
	// Force ignores the site cache.
	Force bool `json:"force,omitempty"`
}

// Stats summarizes one scrape.
type Stats struct {
	FieldsScraped  int `json:"fields_scraped"`
	FieldsAccepted int `json:"fields_accepted"`
	FieldsRejected int `json:"fields_rejected"`
	MediaFound     int `json:"media_found"`
	MediaExisting  int `json:"media_existing"`
	// MediaGated counts candidates turned away before download.
	MediaGated    int     `json:"media_gated"`
	MediaStored   int     `json:"media_stored"`
	MediaRejected int     `json:"media_rejected"`
	MediaFailed   int     `json:"media_failed"`
	FeaturedImage string  `json:"featured_image,omitempty"`
	CostUnits     float64 `json:"cost_units"`
	CostUSD       float64 `json:"cost_usd"`
	DurationMs    int64   `json:"duration_ms"`
}

// Result is the structured outcome of ScrapeListing. A failed scrape is
// reported through Success and Error rather than a returned error.
type Result struct {
	ListingID    int64                   `json:"listing_id"`
	URL          string                  `json:"url"`
	Success      bool                    `json:"success"`
	Skipped      bool                    `json:"skipped,omitempty"`
	Error        string                  `json:"error,omitempty"`
	Engine       string                  `json:"engine,omitempty"`
	EngineReason string                  `json:"engine_reason,omitempty"`
	Attempt      model.ExtractionAttempt `json:"attempt"`
	Platform     model.PlatformMetadata  `json:"platform_metadata"`
	Stats        Stats                   `json:"stats"`
	Updates      map[string]any          `json:"updates,omitempty"`
	Accepted     []model.FieldAcceptance `json:"accepted,omitempty"`
	Rejected     []model.FieldRejection  `json:"rejected,omitempty"`
	Validation   quality.Report          `json:"validation"`
	Pagination   *model.Pagination       `json:"pagination,omitempty"`

	err error
}

// Err returns the error behind a failed result.
func (r *Result) Err() error { return r.err }

// Scraper orchestrates listing scrapes.
type Scraper struct {
	deps          Deps
	merger        *merge.Service
	pipeline      *media.Pipeline
	protected     []model.ProtectedField
	retry         resilience.RetryConfig
	requirements  storage.Requirements
	batchSize     int
	maxPerListing int
	delay         time.Duration
	skipUnchanged bool
	now           func() time.Time
}

// New creates a Scraper from configuration.
func New(cfg *config.Config, deps Deps) (*Scraper, error) {
	if deps.Store == nil || deps.Selector == nil || deps.Gate == nil || deps.Downloader == nil {
		return nil, eris.New("scraper: store, selector, gate and downloader are required")
	}
	protected, err := merge.ParseProtectedFields(cfg.Merge.ProtectedFields)
	if err != nil {
		return nil, eris.Wrap(err, "scraper: protected fields")
	}
	if deps.Cache == nil {
		deps.Cache = sitecache.NopCache{}
	}
	if deps.Costs == nil {
		deps.Costs = cost.NewCalculator(cfg.Pricing)
	}

	retry := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.DelayMs, cfg.Retry.BackoffMultiplier)
	retry.Name = "engine-scrape"
	retry.OnRetry = resilience.RetryLogger("engine", "scrape")

	batchSize := cfg.Media.BatchSize
	if batchSize <= 0 {
		batchSize = 4
	}

	return &Scraper{
		deps:          deps,
		merger:        merge.NewService(),
		pipeline:      media.NewPipeline(cfg.Media.MinWidth, cfg.Media.MinHeight),
		protected:     protected,
		retry:         retry,
		requirements:  storage.RequirementsFromConfig(cfg.Media),
		batchSize:     batchSize,
		maxPerListing: cfg.Media.MaxPerListing,
		delay:         time.Duration(cfg.Scrape.InterRequestDelayMs) * time.Millisecond,
		skipUnchanged: cfg.Scrape.SkipUnchanged,
		now:           time.Now,
	}, nil
}

// ScrapeListing scrapes listing id and merges the result into it. Only an
// unknown listing, a listing without a URL or an unknown forced engine
// produce an error; every other failure is reported in the Result.
func (s *Scraper) ScrapeListing(ctx context.Context, id int64, opts Options) (*Result, error) {
	start := s.now()

	listing, err := s.deps.Store.GetListing(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "listing %d", id)
		}
		return nil, eris.Wrapf(err, "scraper: load listing %d", id)
	}
	url := strings.TrimSpace(listing.URL)
	if url == "" {
		return nil, eris.Wrapf(ErrInvalidInput, "listing %d has no source url", id)
	}

	log := zap.L().With(zap.Int64("listing_id", id), zap.String("url", url))
	res := &Result{ListingID: id, URL: url}

	sel, err := s.deps.Selector.Select(ctx, url, opts.Engine)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidInput, "listing %d: %v", id, err)
	}
	res.Engine = sel.Engine.Name()
	res.EngineReason = sel.Reason
	log = log.With(zap.String("engine", res.Engine))
	log.Info("scraper: starting", zap.String("reason", sel.Reason))

	check := s.useCache(opts)
	domain := sitecache.Domain(url)
	var cached *sitecache.Entry
	var etag, lastModified string
	if check {
		cached = s.cacheEntry(ctx, domain)
		etag, lastModified = s.headers(ctx, url)
		if headersUnchanged(cached, url, etag, lastModified) {
			log.Info("scraper: site unchanged since last scrape, skipping", zap.String("etag", etag))
			return s.skip(res, start), nil
		}
	}

	data, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*model.ScrapedData, error) {
		return sel.Engine.Scrape(ctx, url)
	})
	if err != nil {
		return s.fail(res, log, start, eris.Wrapf(err, "scraper: scrape %s", url)), nil
	}

	res.Attempt = data.Attempt
	res.Platform = data.Platform
	res.Pagination = data.Pagination
	res.Stats.FieldsScraped = len(data.Fields)
	s.recordCost(res)
	s.deps.Metrics.ObserveExtraction(string(data.Attempt.Method), data.Attempt.Method == model.MethodJSRendered)

	if check && cached.Unchanged(url, data.HTMLChecksum) {
		log.Info("scraper: page checksum unchanged, skipping merge")
		return s.skip(res, start), nil
	}

	res.Validation = quality.Validate(data.Fields)
	if !res.Validation.Valid || len(res.Validation.Warnings) > 0 {
		log.Warn("scraper: scraped data has quality issues",
			zap.Int("errors", len(res.Validation.Errors)),
			zap.Int("warnings", len(res.Validation.Warnings)),
		)
	}

	merged := s.merger.Merge(listing.Fields(), data.Fields, s.protected)
	res.Accepted = merged.Accepted
	res.Rejected = merged.Rejected
	res.Stats.FieldsAccepted = len(merged.Accepted)
	res.Stats.FieldsRejected = len(merged.Rejected)
	s.deps.Metrics.ObserveMerge(len(merged.Accepted), len(merged.Rejected))

	updates := merged.Updates
	if !opts.SkipMedia {
		s.applyMedia(ctx, log, listing, data, opts.DryRun, updates, &res.Stats)
	}
	for k, v := range provenance(data, s.now()) {
		updates[k] = v
	}
	res.Updates = updates

	if !opts.DryRun {
		if err := s.deps.Store.UpdateListing(ctx, id, updates); err != nil {
			return s.fail(res, log, start, eris.Wrapf(err, "scraper: update listing %d", id)), nil
		}
		if s.skipUnchanged {
			s.remember(ctx, domain, sitecache.Entry{
				Domain:       domain,
				URL:          url,
				HTMLChecksum: data.HTMLChecksum,
				ETag:         etag,
				LastModified: lastModified,
				Engine:       res.Engine,
				ScrapedAt:    s.now(),
			})
		}
	}

	res.Success = true
	res.Stats.DurationMs = s.now().Sub(start).Milliseconds()
	s.deps.Metrics.ObserveScrape(res.Engine, metrics.StatusSuccess, s.now().Sub(start))
	log.Info("scraper: completed",
		zap.String("method", string(data.Attempt.Method)),
		zap.Float64("confidence", data.Attempt.Confidence),
		zap.Int("accepted", res.Stats.FieldsAccepted),
		zap.Int("rejected", res.Stats.FieldsRejected),
		zap.Int("media_stored", res.Stats.MediaStored),
		zap.Bool("dry_run", opts.DryRun),
	)
	return res, nil
}

// provenance returns the scrape provenance columns written with every
// successful scrape.
func provenance(data *model.ScrapedData, now time.Time) map[string]any {
	raw := data.Attempt.RawData
	if raw == nil {
		raw = data.Fields
	}
	source := data.Attempt.Source
	if source == "" {
		source = data.Engine
	}
	return map[string]any{
		model.FieldScrapedRawData:              raw,
		model.FieldScrapedDataSource:           source,
		model.FieldScrapedExtractionMethod:     string(data.Attempt.Method),
		model.FieldScrapedExtractionConfidence: data.Attempt.Confidence,
		model.FieldScrapedAt:                   now.UTC(),
	}
}

func (s *Scraper) recordCost(res *Result) {
	for _, f := range res.Platform.Costs() {
		usd := s.deps.Costs.Units(f.Provider, f.CostUnits)
		res.Stats.CostUnits += f.CostUnits
		res.Stats.CostUSD += usd
		s.deps.Metrics.ObserveFetchCost(f.Provider, f.CostUnits, usd)
	}
}

func (s *Scraper) fail(res *Result, log *zap.Logger, start time.Time, err error) *Result {
	res.err = err
	res.Error = err.Error()
	res.Stats.DurationMs = s.now().Sub(start).Milliseconds()
	s.deps.Metrics.ObserveScrape(res.Engine, metrics.StatusFailure, s.now().Sub(start))
	log.Error("scraper: scrape failed", zap.Error(err))
	return res
}

func (s *Scraper) skip(res *Result, start time.Time) *Result {
	res.Success = true
	res.Skipped = true
	res.Stats.DurationMs = s.now().Sub(start).Milliseconds()
	s.deps.Metrics.ObserveScrape(res.Engine, metrics.StatusSkipped, s.now().Sub(start))
	return res
}
