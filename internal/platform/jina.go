package platform

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kondohub/kondo-scraper/internal/model"
	"github.com/kondohub/kondo-scraper/pkg/jina"
)

// JinaProvider fetches pages through the Jina AI Reader. Rendering uses
// Jina's browser engine; static fetches use its direct engine.
type JinaProvider struct {
	client   jina.Client
	locale   string
	proxyURL string
}

// NewJinaProvider creates a JinaProvider from a Jina client.
func NewJinaProvider(client jina.Client, locale, proxyURL string) *JinaProvider {
	return &JinaProvider{client: client, locale: locale, proxyURL: proxyURL}
}

// Name implements Provider.
func (j *JinaProvider) Name() string { return "jina" }

// SupportsRendering implements Provider.
func (j *JinaProvider) SupportsRendering() bool { return true }

// FetchHTML implements Provider. Cost units are Jina tokens.
func (j *JinaProvider) FetchHTML(ctx context.Context, targetURL string, opts Options) (*Page, error) {
	ro := jina.ReadOptions{
		Format:  "html",
		Browser: opts.RenderJS,
		Locale:  j.locale,
	}
	if opts.UseProxy {
		ro.ProxyURL = j.proxyURL
	}
	if opts.RenderJS && opts.WaitMs > 0 {
		ro.TimeoutSecs = opts.WaitMs/1000 + 10
	}

	start := time.Now()
	resp, err := j.client.Read(ctx, targetURL, ro)
	if err != nil {
		var apiErr *jina.APIError
		if errors.As(err, &apiErr) {
			return nil, newStatusError(j.Name(), apiErr.StatusCode, err)
		}
		return nil, newNetworkError(j.Name(), err)
	}

	html := resp.Data.Body()
	if html == "" {
		return nil, &FetchError{Provider: j.Name(), Class: ClassClient, Err: eris.New("empty content")}
	}
	finalURL := resp.Data.URL
	if finalURL == "" {
		finalURL = targetURL
	}
	return &Page{
		URL:      targetURL,
		FinalURL: finalURL,
		HTML:     html,
		Metadata: model.PlatformMetadata{
			Provider:       j.Name(),
			StatusCode:     200,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			CostUnits:      float64(resp.Data.Usage.Tokens),
			RenderedJS:     opts.RenderJS,
		},
	}, nil
}
