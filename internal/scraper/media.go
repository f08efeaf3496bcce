package scraper

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kondohub/kondo-scraper/internal/media"
	"github.com/kondohub/kondo-scraper/internal/metrics"
	"github.com/kondohub/kondo-scraper/internal/model"
	"github.com/kondohub/kondo-scraper/internal/storage"
)

type mediaOutcome struct {
	candidate model.MediaCandidate
	status    string
	reason    string
	upload    *storage.Upload
}

// candidates returns the scrape's media in relevance order. Engines that
// only reported URLs are run through the heuristics pipeline here.
func (s *Scraper) candidates(data *model.ScrapedData) []model.MediaCandidate {
	if len(data.Candidates) > 0 || len(data.Medias) == 0 {
		return data.Candidates
	}
	return s.pipeline.Run(media.Candidates(data.Medias), nil, data.URL).Media
}

// applyMedia gates and stores the scrape's media, appends records for media
// the listing does not already have and, when the listing has no featured
// image, adds one to updates.
func (s *Scraper) applyMedia(ctx context.Context, log *zap.Logger, listing *model.Listing, data *model.ScrapedData, dryRun bool, updates map[string]any, stats *Stats) {
	cands := s.candidates(data)
	stats.MediaFound = len(cands)
	if dryRun || len(cands) == 0 {
		return
	}

	stored, err := s.deps.Store.ListMedia(ctx, listing.ID)
	if err != nil {
		log.Error("scraper: list existing media failed", zap.Error(err))
		stats.MediaFailed += len(cands)
		s.deps.Metrics.ObserveMedia(metrics.MediaFailed, stats.MediaFailed)
		return
	}
	cands = withoutStored(cands, stored)
	stats.MediaExisting = stats.MediaFound - len(cands)
	if s.maxPerListing > 0 && len(cands) > s.maxPerListing {
		cands = cands[:s.maxPerListing]
	}
	if len(cands) == 0 {
		return
	}

	// Content fingerprints only need to outlive this scrape.
	if f, ok := s.deps.Downloader.(storage.Forgetter); ok {
		defer f.Forget(listing.ID)
	}
	outcomes := s.processMedia(ctx, listing.ID, cands)

	var records []model.MediaRecord
	var featured *mediaOutcome
	for i := range outcomes {
		o := &outcomes[i]
		switch o.status {
		case metrics.MediaGated:
			stats.MediaGated++
		case metrics.MediaRejected:
			stats.MediaRejected++
		case metrics.MediaStored:
			records = append(records, model.MediaRecord{
				ListingID:  listing.ID,
				Filename:   o.upload.Filename,
				StorageURL: o.upload.URL,
				SourceURL:  o.candidate.URL,
				Type:       o.upload.Type,
				Status:     model.MediaStatusActive,
			})
			if o.upload.Type == model.MediaImage && (featured == nil || o.candidate.RelevanceScore > featured.candidate.RelevanceScore) {
				featured = o
			}
		default:
			stats.MediaFailed++
		}
	}
	s.deps.Metrics.ObserveMedia(metrics.MediaGated, stats.MediaGated)
	s.deps.Metrics.ObserveMedia(metrics.MediaRejected, stats.MediaRejected)

	if len(records) == 0 {
		s.deps.Metrics.ObserveMedia(metrics.MediaFailed, stats.MediaFailed)
		return
	}

	n, err := s.deps.Store.CreateMedia(ctx, records)
	if err != nil {
		log.Error("scraper: create media records failed", zap.Int("records", len(records)), zap.Error(err))
		stats.MediaFailed += len(records)
		s.deps.Metrics.ObserveMedia(metrics.MediaFailed, stats.MediaFailed)
		return
	}
	stats.MediaStored = n
	s.deps.Metrics.ObserveMedia(metrics.MediaStored, n)
	s.deps.Metrics.ObserveMedia(metrics.MediaFailed, stats.MediaFailed)

	if _, set := updates[model.FieldFeaturedImage]; featured != nil && listing.FeaturedImage == "" && !set {
		updates[model.FieldFeaturedImage] = featured.upload.URL
		stats.FeaturedImage = featured.upload.URL
	}
}

// withoutStored drops candidates whose source URL is already recorded for
// the listing.
func withoutStored(cands []model.MediaCandidate, stored []model.MediaRecord) []model.MediaCandidate {
	if len(stored) == 0 {
		return cands
	}
	known := make(map[string]bool, len(stored))
	for _, r := range stored {
		known[media.URLFingerprint(r.SourceURL)] = true
	}
	out := make([]model.MediaCandidate, 0, len(cands))
	for _, c := range cands {
		if known[media.URLFingerprint(c.URL)] || (c.OriginalURL != "" && known[media.URLFingerprint(c.OriginalURL)]) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// processMedia runs candidates through the gate and the downloader in
// fixed-size concurrent batches. Each batch is awaited before the next
// starts; outcomes keep the candidates' order.
func (s *Scraper) processMedia(ctx context.Context, listingID int64, cands []model.MediaCandidate) []mediaOutcome {
	out := make([]mediaOutcome, len(cands))
	for start := 0; start < len(cands); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			for i := start; i < len(cands); i++ {
				out[i] = mediaOutcome{candidate: cands[i], status: metrics.MediaFailed, reason: err.Error()}
			}
			break
		}

		end := min(start+s.batchSize, len(cands))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = s.processOne(ctx, listingID, cands[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}

func (s *Scraper) processOne(ctx context.Context, listingID int64, c model.MediaCandidate) mediaOutcome {
	d := s.deps.Gate.Evaluate(ctx, c)
	if !d.Accepted {
		return mediaOutcome{candidate: c, status: metrics.MediaGated, reason: d.Reason}
	}
	if d.Dimensions != nil {
		c.Dimensions = d.Dimensions
	}

	up, err := s.deps.Downloader.DownloadAndUpload(ctx, c.URL, listingID, s.requirements)
	if err != nil {
		zap.L().Warn("scraper: media download failed",
			zap.Int64("listing_id", listingID),
			zap.String("media_url", c.URL),
			zap.Error(err),
		)
		return mediaOutcome{candidate: c, status: metrics.MediaFailed, reason: err.Error()}
	}
	if up == nil {
		return mediaOutcome{candidate: c, status: metrics.MediaRejected, reason: "did not meet download requirements"}
	}
	return mediaOutcome{candidate: c, status: metrics.MediaStored, upload: up}
}
