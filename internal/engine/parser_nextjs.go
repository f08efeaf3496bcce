package engine

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/kondohub/kondo-scraper/internal/extract"
	"github.com/kondohub/kondo-scraper/internal/platform"
)

// nextDataSelector finds the Next.js hydration payload.
const nextDataSelector = `script#__NEXT_DATA__`

// nextPayloadPaths hold the page entity inside __NEXT_DATA__, most specific
// first.
var nextPayloadPaths = []string{
	"props.pageProps.property",
	"props.pageProps.listing",
	"props.pageProps.empreendimento",
	"props.pageProps.development",
	"props.pageProps.data",
	"props.pageProps",
}

// NextJSParser reads the __NEXT_DATA__ payload that server-rendered Next.js
// pages embed, falling back to markup for anything it lacks.
type NextJSParser struct{}

// Name implements Parser.
func (NextJSParser) Name() string { return "nextjs" }

// MediaSelectors implements Parser.
func (NextJSParser) MediaSelectors() []string {
	return []string{`[class*="gallery"] img`, `[class*="Gallery"] img`, `[class*="carousel"] img`, `[class*="Carousel"] img`}
}

// Parse implements Parser.
func (NextJSParser) Parse(doc *goquery.Document, _ *platform.Page) map[string]any {
	fields := make(map[string]any)
	if payload := nextEntity(doc); payload.Exists() {
		for k, v := range extract.MapStructured(payload.Value()) {
			fields[k] = v
		}
	}
	return fields
}

// nextEntity returns the first populated entity object in __NEXT_DATA__.
func nextEntity(doc *goquery.Document) gjson.Result {
	raw := doc.Find(nextDataSelector).First().Text()
	if raw == "" || !gjson.Valid(raw) {
		return gjson.Result{}
	}
	for _, p := range nextPayloadPaths {
		if r := gjson.Get(raw, p); r.IsObject() {
			return r
		}
	}
	return gjson.Result{}
}
