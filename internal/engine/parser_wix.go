package engine

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/kondohub/kondo-scraper/internal/platform"
)

// WixMarkers identify pages served by the Wix site builder.
var WixMarkers = []string{
	"static.parastorage.com",
	"static.wixstatic.com",
	"wix-warmup-data",
	"wixBiSession",
	"_wixCIDX",
	"X-Wix-",
	`content="Wix.com Website Builder"`,
	"thunderbolt",
}

// WixParser reads Wix builder pages. Wix renders server side, so the static
// page is enough; the rich-text blocks carry the copy.
type WixParser struct{}

// Name implements Parser.
func (WixParser) Name() string { return "wix" }

// MediaSelectors implements Parser.
func (WixParser) MediaSelectors() []string {
	return []string{
		`[data-testid="gallery-item"] img`,
		`[data-hook="gallery-item-image-img"]`,
		`.gallery-item-container img`,
		`wow-image img`,
		`[data-testid="imageX"] img`,
		`[data-testid="bgMedia"] img`,
	}
}

// Parse implements Parser.
func (WixParser) Parse(doc *goquery.Document, _ *platform.Page) map[string]any {
	fields := make(map[string]any)
	setIfEmpty(fields, "name", firstText(doc,
		`[data-testid="richTextElement"] h1`,
		`.font_0`,
		`h1`,
	))

	best := ""
	doc.Find(`[data-testid="richTextElement"] p, .font_8`).Each(func(_ int, s *goquery.Selection) {
		if t := cleanText(s.Text()); len(t) > len(best) {
			best = t
		}
	})
	if len(best) >= minDescriptionLength {
		setIfEmpty(fields, "description", best)
	}

	return fields
}
