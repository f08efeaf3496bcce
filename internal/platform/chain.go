package platform

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/resilience"
)

// Chain tries providers in priority order, returning the first success.
// The first provider is the active platform, the rest are fallbacks.
type Chain struct {
	PathMatcher *PathMatcher
	providers   []Provider
	breakers    *resilience.Breakers
}

// NewChain creates a Chain. Each provider gets its own circuit breaker from
// breakers; a nil breakers uses the defaults.
func NewChain(matcher *PathMatcher, breakers *resilience.Breakers, providers ...Provider) *Chain {
	if breakers == nil {
		breakers = resilience.NewBreakers(resilience.DefaultBreakerConfig())
	}
	return &Chain{
		PathMatcher: matcher,
		providers:   providers,
		breakers:    breakers,
	}
}

// Name implements Provider.
func (c *Chain) Name() string {
	if len(c.providers) == 0 {
		return "chain"
	}
	return c.providers[0].Name()
}

// SupportsRendering reports whether any provider in the chain can render.
func (c *Chain) SupportsRendering() bool {
	for _, p := range c.providers {
		if p.SupportsRendering() {
			return true
		}
	}
	return false
}

// Providers returns the providers in priority order.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// ProviderStates reports each provider's breaker state by name.
func (c *Chain) ProviderStates() map[string]string {
	states := c.breakers.States()
	out := make(map[string]string, len(c.providers))
	for _, p := range c.providers {
		out[p.Name()] = states[p.Name()].String()
	}
	return out
}

// FetchHTML tries each eligible provider in order. Providers that cannot
// render are skipped for rendered fetches, and providers whose breaker is
// open are skipped until it half-opens.
func (c *Chain) FetchHTML(ctx context.Context, targetURL string, opts Options) (*Page, error) {
	if c.PathMatcher != nil && c.PathMatcher.IsExcluded(targetURL) {
		return nil, eris.Wrapf(ErrExcluded, "url %s", targetURL)
	}

	var lastErr error
	for _, p := range c.providers {
		if opts.RenderJS && !p.SupportsRendering() {
			continue
		}
		page, err := resilience.Guard(ctx, c.breakers.For(p.Name()), func(ctx context.Context) (*Page, error) {
			return p.FetchHTML(ctx, targetURL, opts)
		})
		if err == nil && page != nil {
			return page, nil
		}
		if err != nil {
			zap.L().Debug("platform: provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.String("url", targetURL),
				zap.Bool("render_js", opts.RenderJS),
				zap.String("class", string(ClassOf(err))),
				zap.Error(err),
			)
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "platform: fetch cancelled")
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "platform: all providers failed")
	}
	return nil, eris.Errorf("platform: no provider can fetch %s (render_js=%t)", targetURL, opts.RenderJS)
}

// HeadETag delegates to the first provider that can issue HEAD requests.
func (c *Chain) HeadETag(ctx context.Context, targetURL string) (string, string, error) {
	for _, p := range c.providers {
		if h, ok := p.(interface {
			HeadETag(context.Context, string) (string, string, error)
		}); ok {
			return h.HeadETag(ctx, targetURL)
		}
	}
	return "", "", eris.New("platform: no provider supports HEAD")
}
