// Package platform fetches listing pages through third-party fetch APIs or
// directly over HTTP, with optional JavaScript rendering.
package platform

import (
	"context"

	"github.com/kondohub/kondo-scraper/internal/model"
)

// Options tune a single fetch.
type Options struct {
	RenderJS bool
	UseProxy bool
	Country  string
	// WaitMs is how long a rendering provider waits after load.
	WaitMs int
	// ExtraParams are passed to providers that accept free-form parameters.
	ExtraParams map[string]string
}

// Page is a fetched HTML document.
type Page struct {
	URL      string
	FinalURL string
	HTML     string
	Metadata model.PlatformMetadata
}

// Provider fetches the HTML for a URL.
type Provider interface {
	Name() string
	// SupportsRendering reports whether the provider can execute JavaScript
	// before returning HTML.
	SupportsRendering() bool
	FetchHTML(ctx context.Context, url string, opts Options) (*Page, error)
}
