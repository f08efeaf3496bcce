package platform

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kondohub/kondo-scraper/internal/model"
	"github.com/kondohub/kondo-scraper/pkg/firecrawl"
)

// FirecrawlProvider fetches rendered pages through Firecrawl's scrape API.
type FirecrawlProvider struct {
	client firecrawl.Client
}

// NewFirecrawlProvider creates a FirecrawlProvider from a Firecrawl client.
func NewFirecrawlProvider(client firecrawl.Client) *FirecrawlProvider {
	return &FirecrawlProvider{client: client}
}

// Name implements Provider.
func (f *FirecrawlProvider) Name() string { return "firecrawl" }

// SupportsRendering implements Provider. Firecrawl always renders.
func (f *FirecrawlProvider) SupportsRendering() bool { return true }

// FetchHTML implements Provider. Firecrawl bills one credit per scrape
// regardless of rendering.
func (f *FirecrawlProvider) FetchHTML(ctx context.Context, targetURL string, opts Options) (*Page, error) {
	req := firecrawl.ScrapeRequest{
		URL:     targetURL,
		Formats: []string{"rawHtml"},
	}
	if opts.RenderJS && opts.WaitMs > 0 {
		req.WaitFor = opts.WaitMs
	}
	if opts.Country != "" {
		req.Location = &firecrawl.Location{Country: strings.ToUpper(opts.Country)}
	}
	if opts.UseProxy {
		req.Proxy = "stealth"
	}

	start := time.Now()
	resp, err := f.client.Scrape(ctx, req)
	if err != nil {
		var apiErr *firecrawl.APIError
		if errors.As(err, &apiErr) {
			return nil, newStatusError(f.Name(), apiErr.StatusCode, err)
		}
		return nil, newNetworkError(f.Name(), err)
	}

	status := resp.Data.Metadata.StatusCode
	if status >= 400 {
		return nil, newStatusError(f.Name(), status, eris.Errorf("target returned %d", status))
	}
	html := resp.Data.RawHTML
	if html == "" {
		html = resp.Data.HTML
	}

	finalURL := resp.Data.Metadata.URL
	if finalURL == "" {
		finalURL = targetURL
	}
	return &Page{
		URL:      targetURL,
		FinalURL: finalURL,
		HTML:     html,
		Metadata: model.PlatformMetadata{
			Provider:       f.Name(),
			StatusCode:     status,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			CostUnits:      1,
			RenderedJS:     true,
		},
	}, nil
}
