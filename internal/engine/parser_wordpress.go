package engine

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/kondohub/kondo-scraper/internal/platform"
)

// WordPressMarkers identify WordPress sites.
var WordPressMarkers = []string{
	"/wp-content/",
	"/wp-includes/",
	"/wp-json/",
	`content="WordPress`,
	"wp-emoji-release",
	"wp-block-",
	"elementor",
}

// WordPressParser reads WordPress themes, including Elementor layouts.
type WordPressParser struct{}

// Name implements Parser.
func (WordPressParser) Name() string { return "wordpress" }

// MediaSelectors implements Parser.
func (WordPressParser) MediaSelectors() []string {
	return []string{
		`.wp-block-gallery img`,
		`.gallery-item img`,
		`.elementor-gallery-item`,
		`.elementor-image-gallery img`,
		`.elementor-carousel-image`,
		`.entry-content img`,
		`img.wp-post-image`,
	}
}

// Parse implements Parser.
func (WordPressParser) Parse(doc *goquery.Document, _ *platform.Page) map[string]any {
	fields := make(map[string]any)
	setIfEmpty(fields, "name", firstText(doc, "h1.entry-title", ".elementor-heading-title", "h1"))

	content := doc.Find(".entry-content, .elementor-widget-text-editor").First()
	if content.Length() > 0 {
		best := ""
		content.Find("p").Each(func(_ int, s *goquery.Selection) {
			if t := cleanText(s.Text()); len(t) > len(best) {
				best = t
			}
		})
		if len(best) >= minDescriptionLength {
			setIfEmpty(fields, "description", best)
		}
	}

	return fields
}
