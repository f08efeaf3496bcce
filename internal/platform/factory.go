package platform

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kondohub/kondo-scraper/internal/config"
	"github.com/kondohub/kondo-scraper/internal/resilience"
	"github.com/kondohub/kondo-scraper/pkg/firecrawl"
	"github.com/kondohub/kondo-scraper/pkg/jina"
	"github.com/kondohub/kondo-scraper/pkg/scrapingbee"
)

// New builds the provider chain from platform.active followed by
// platform.fallbacks. Duplicate names are ignored.
func New(cfg *config.Config) (*Chain, error) {
	names := append([]string{cfg.Platform.Active}, cfg.Platform.Fallbacks...)

	timeout := time.Duration(cfg.Scrape.RequestTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	hc := &http.Client{Timeout: timeout}

	seen := make(map[string]bool, len(names))
	var providers []Provider
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		p, err := newProvider(name, cfg, hc)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, eris.New("platform: no providers configured")
	}

	breakers := resilience.NewBreakers(resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs))
	return NewChain(NewPathMatcher(cfg.Scrape.ExcludePaths), breakers, providers...), nil
}

func newProvider(name string, cfg *config.Config, hc *http.Client) (Provider, error) {
	switch name {
	case "scrapingbee":
		if cfg.ScrapingBee.Key == "" {
			return nil, eris.New("platform: scrapingbee.key is required")
		}
		opts := []scrapingbee.Option{scrapingbee.WithHTTPClient(hc)}
		if cfg.ScrapingBee.BaseURL != "" {
			opts = append(opts, scrapingbee.WithBaseURL(cfg.ScrapingBee.BaseURL))
		}
		return NewScrapingBeeProvider(scrapingbee.NewClient(cfg.ScrapingBee.Key, opts...), cfg.ScrapingBee.PremiumProxy), nil
	case "firecrawl":
		if cfg.Firecrawl.Key == "" {
			return nil, eris.New("platform: firecrawl.key is required")
		}
		opts := []firecrawl.Option{firecrawl.WithHTTPClient(hc)}
		if cfg.Firecrawl.BaseURL != "" {
			opts = append(opts, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		}
		return NewFirecrawlProvider(firecrawl.NewClient(cfg.Firecrawl.Key, opts...)), nil
	case "jina":
		opts := []jina.Option{jina.WithHTTPClient(hc)}
		if cfg.Jina.BaseURL != "" {
			opts = append(opts, jina.WithBaseURL(cfg.Jina.BaseURL))
		}
		return NewJinaProvider(jina.NewClient(cfg.Jina.Key, opts...), cfg.Jina.Locale, cfg.Jina.ProxyURL), nil
	case "local":
		return NewLocalProvider(cfg.Local.UserAgent, cfg.Local.MaxBodyBytes), nil
	default:
		return nil, eris.Errorf("platform: unknown provider %q", name)
	}
}
