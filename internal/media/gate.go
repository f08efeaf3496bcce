package media

import (
	"context"

	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/extract"
	"github.com/kondohub/kondo-scraper/internal/model"
)

// Prober fetches true image dimensions.
type Prober interface {
	Probe(ctx context.Context, rawURL string) (*model.Dimensions, error)
}

// Decision is the outcome of gating one media candidate.
type Decision struct {
	Accepted   bool
	Reason     string
	Dimensions *model.Dimensions
}

// Gate decides which candidates are downloaded. An image whose probed
// dimensions meet the minimum is accepted regardless of relevance;
// otherwise the relevance score must reach MinRelevance.
type Gate struct {
	MinWidth     int
	MinHeight    int
	MinRelevance float64
	Prober       Prober
}

// Evaluate gates c. Probe failures fall back to the relevance check.
func (g *Gate) Evaluate(ctx context.Context, c model.MediaCandidate) Decision {
	if extract.IsVideoHost(c.URL) {
		return Decision{Reason: "external video host"}
	}

	if g.Prober != nil && !extract.IsVideoURL(c.URL) {
		d := c.Dimensions
		if d == nil {
			probed, err := g.Prober.Probe(ctx, c.URL)
			if err != nil {
				zap.L().Debug("media: dimension probe failed", zap.String("url", c.URL), zap.Error(err))
			}
			d = probed
		}
		if d.Meets(g.MinWidth, g.MinHeight) {
			return Decision{Accepted: true, Reason: "dimensions meet minimum", Dimensions: d}
		}
		if d != nil {
			c.Dimensions = d
		}
	}

	if c.RelevanceScore >= g.MinRelevance {
		return Decision{Accepted: true, Reason: "relevance score", Dimensions: c.Dimensions}
	}
	return Decision{Reason: "below relevance threshold", Dimensions: c.Dimensions}
}
