// Package cost converts fetch provider usage into USD.
package cost

import (
	"github.com/kondohub/kondo-scraper/internal/config"
)

// Provider names priced by the calculator.
const (
	ProviderScrapingBee = "scrapingbee"
	ProviderFirecrawl   = "firecrawl"
	ProviderJina        = "jina"
	ProviderLocal       = "local"
)

// Calculator computes costs for provider usage.
type Calculator struct {
	rates config.PricingConfig
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates config.PricingConfig) *Calculator {
	return &Calculator{rates: rates}
}

// PerCredit returns the effective price of one credit on a monthly plan.
func PerCredit(p config.CreditPricing) float64 {
	if p.CreditsIncluded <= 0 {
		return 0
	}
	return p.PlanMonthly / p.CreditsIncluded
}

// ScrapingBee computes the cost of ScrapingBee credits.
func (c *Calculator) ScrapingBee(credits float64) float64 {
	return credits * PerCredit(c.rates.ScrapingBee)
}

// Firecrawl computes the cost of Firecrawl credits.
func (c *Calculator) Firecrawl(credits float64) float64 {
	return credits * PerCredit(c.rates.Firecrawl)
}

// Jina computes the cost for Jina Reader token usage.
func (c *Calculator) Jina(tokens int) float64 {
	return (float64(tokens) / 1e6) * c.rates.Jina.PerMTok
}

// Units prices the cost units a provider reported for one fetch. Unknown
// providers and the local fetcher are free.
func (c *Calculator) Units(provider string, units float64) float64 {
	switch provider {
	case ProviderScrapingBee:
		return c.ScrapingBee(units)
	case ProviderFirecrawl:
		return c.Firecrawl(units)
	case ProviderJina:
		return c.Jina(int(units))
	default:
		return 0
	}
}

// DefaultRates returns the default pricing rates.
func DefaultRates() config.PricingConfig {
	return config.PricingConfig{
		ScrapingBee: config.CreditPricing{PlanMonthly: 49.00, CreditsIncluded: 150000},
		Firecrawl:   config.CreditPricing{PlanMonthly: 19.00, CreditsIncluded: 3000},
		Jina:        config.JinaPricing{PerMTok: 0.02},
	}
}
