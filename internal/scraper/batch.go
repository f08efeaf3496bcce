package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/resilience"
)

// BatchFailure is one listing that failed during a batch run.
type BatchFailure struct {
	ListingID int64  `json:"listing_id"`
	URL       string `json:"url,omitempty"`
	Engine    string `json:"engine,omitempty"`
	Error     string `json:"error"`
	// Class is "transient" or "permanent".
	Class string `json:"class"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Total      int            `json:"total"`
	Processed  int            `json:"processed"`
	Succeeded  int            `json:"succeeded"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Canceled   bool           `json:"canceled,omitempty"`
	CostUSD    float64        `json:"cost_usd"`
	DurationMs int64          `json:"duration_ms"`
	Failures   []BatchFailure `json:"failures,omitempty"`
	Results    []*Result      `json:"results,omitempty"`
}

// Batch scrapes ids one at a time. After each scrape finishes, the next
// one waits out the configured inter-request delay. A failing listing is
// recorded and the run moves on; only context cancellation stops it early.
func (s *Scraper) Batch(ctx context.Context, ids []int64, opts Options) BatchSummary {
	start := s.now()
	sum := BatchSummary{Total: len(ids)}

	for i, id := range ids {
		if i > 0 {
			s.pause(ctx)
		}
		if ctx.Err() != nil {
			sum.Canceled = true
			break
		}

		res, err := s.ScrapeListing(ctx, id, opts)
		sum.Processed++
		switch {
		case err != nil:
			sum.Failed++
			sum.Failures = append(sum.Failures, BatchFailure{
				ListingID: id,
				Error:     err.Error(),
				Class:     resilience.ClassifyError(err),
			})
			zap.L().Error("scraper: batch item failed", zap.Int64("listing_id", id), zap.Error(err))
			continue
		case !res.Success:
			sum.Failed++
			sum.Failures = append(sum.Failures, BatchFailure{
				ListingID: id,
				URL:       res.URL,
				Engine:    res.Engine,
				Error:     res.Error,
				Class:     resilience.ClassifyError(res.Err()),
			})
		case res.Skipped:
			sum.Skipped++
		default:
			sum.Succeeded++
		}
		sum.CostUSD += res.Stats.CostUSD
		sum.Results = append(sum.Results, res)
	}

	sum.DurationMs = s.now().Sub(start).Milliseconds()
	zap.L().Info("scraper: batch complete",
		zap.Int("total", sum.Total),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Bool("canceled", sum.Canceled),
		zap.Float64("cost_usd", sum.CostUSD),
	)
	return sum
}

// pause blocks for the inter-request delay or until ctx is done.
func (s *Scraper) pause(ctx context.Context) {
	if s.delay <= 0 {
		return
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
