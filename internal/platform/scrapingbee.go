package platform

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kondohub/kondo-scraper/internal/model"
	"github.com/kondohub/kondo-scraper/pkg/scrapingbee"
)

// ScrapingBeeProvider fetches pages through the ScrapingBee API.
type ScrapingBeeProvider struct {
	client       scrapingbee.Client
	premiumProxy bool
}

// NewScrapingBeeProvider wraps a ScrapingBee client as a Provider.
func NewScrapingBeeProvider(client scrapingbee.Client, premiumProxy bool) *ScrapingBeeProvider {
	return &ScrapingBeeProvider{client: client, premiumProxy: premiumProxy}
}

// Name implements Provider.
func (p *ScrapingBeeProvider) Name() string { return "scrapingbee" }

// SupportsRendering implements Provider.
func (p *ScrapingBeeProvider) SupportsRendering() bool { return true }

// FetchHTML implements Provider.
func (p *ScrapingBeeProvider) FetchHTML(ctx context.Context, targetURL string, opts Options) (*Page, error) {
	start := time.Now()
	resp, err := p.client.Fetch(ctx, scrapingbee.FetchRequest{
		URL:          targetURL,
		RenderJS:     opts.RenderJS,
		PremiumProxy: p.premiumProxy || opts.UseProxy,
		CountryCode:  strings.ToLower(opts.Country),
		WaitMs:       opts.WaitMs,
		Extra:        opts.ExtraParams,
	})
	if err != nil {
		var apiErr *scrapingbee.APIError
		if errors.As(err, &apiErr) {
			return nil, newStatusError(p.Name(), apiErr.StatusCode, err)
		}
		return nil, newNetworkError(p.Name(), err)
	}
	if resp.StatusCode >= 400 {
		return nil, newStatusError(p.Name(), resp.StatusCode, nil)
	}

	return &Page{
		URL:      targetURL,
		FinalURL: resp.ResolvedURL,
		HTML:     resp.HTML,
		Metadata: model.PlatformMetadata{
			Provider:       p.Name(),
			StatusCode:     resp.StatusCode,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			CostUnits:      resp.Cost,
			RenderedJS:     opts.RenderJS,
		},
	}, nil
}
