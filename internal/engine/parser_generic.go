package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/kondohub/kondo-scraper/internal/extract"
	"github.com/kondohub/kondo-scraper/internal/platform"
)

// minDescriptionLength is the shortest paragraph taken as a description.
const minDescriptionLength = 80

var titleSeparators = []string{" | ", " - ", " – ", " :: "}

// GenericParser reads schema.org microdata, the one field vocabulary shared
// across unrelated sites. Everything else comes from the shared heuristics.
type GenericParser struct{}

// NewGenericParser creates a GenericParser.
func NewGenericParser() *GenericParser { return &GenericParser{} }

// Name implements Parser.
func (*GenericParser) Name() string { return GenericName }

// MediaSelectors implements Parser.
func (*GenericParser) MediaSelectors() []string {
	return []string{
		`[class*="gallery"] img`,
		`[class*="galeria"] img`,
		`[class*="slider"] img`,
		`.swiper-slide img`,
		`.carousel img`,
		`[data-fancybox] img`,
		`a[data-lightbox]`,
	}
}

// microdata maps itemprop names to listing columns.
var microdata = map[string]string{
	"name":                "name",
	"description":         "description",
	"streetAddress":       "address_street",
	"addressNeighborhood": "neighborhood",
	"addressLocality":     "city",
	"addressRegion":       "state",
	"postalCode":          "zip_code",
	"telephone":           "phone",
	"email":               "email",
	"latitude":            "latitude",
	"longitude":           "longitude",
	"price":               "lot_avg_price",
	"lowPrice":            "lot_min_price",
	"highPrice":           "lot_max_price",
	"numberOfRooms":       "bedrooms",
	"numberOfBedrooms":    "bedrooms",
}

// Parse implements Parser.
func (*GenericParser) Parse(doc *goquery.Document, _ *platform.Page) map[string]any {
	fields := make(map[string]any)
	doc.Find("[itemprop]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("itemprop")
		field, ok := microdata[prop]
		if !ok {
			return
		}
		if _, done := fields[field]; done {
			return
		}
		raw, ok := s.Attr("content")
		if !ok {
			raw = s.Text()
		}
		if v, ok := extract.CoerceField(field, cleanText(raw)); ok {
			fields[field] = v
		}
	})
	return fields
}

// parseCommon fills gaps from conventions most listing pages follow:
// headings, meta tags, address blocks, contact links, map embeds and price
// or area phrasing in the text. Keys already present are kept.
func parseCommon(doc *goquery.Document, fields map[string]any) {
	setIfEmpty(fields, "name", firstText(doc, "h1"))
	setIfEmpty(fields, "name", trimSiteSuffix(metaContent(doc, "og:title")))
	setIfEmpty(fields, "name", trimSiteSuffix(cleanText(doc.Find("title").First().Text())))

	setIfEmpty(fields, "description", longestParagraph(doc))
	setIfEmpty(fields, "description", metaContent(doc, "og:description", "description"))

	setIfEmpty(fields, "address_street", firstText(doc, "address", `[class*="endereco"]`, `[class*="address"]`))
	setIfEmpty(fields, "neighborhood", firstText(doc, `[class*="bairro"]`))

	text := cleanText(doc.Find("body").Text())
	if cep := cepRe.FindString(text); cep != "" {
		setIfEmpty(fields, "zip_code", cep)
	}
	contactFields(doc, text, fields)
	coordinateFields(doc, fields)
	textFields(text, fields)
}

// longestParagraph returns the longest paragraph in the main content that is
// long enough to be a description.
func longestParagraph(doc *goquery.Document) string {
	scope := doc.Find("main, article, [role=main]")
	if scope.Length() == 0 {
		scope = doc.Find("body")
	}
	best := ""
	scope.Find("p").Each(func(_ int, s *goquery.Selection) {
		t := cleanText(s.Text())
		if utf8.RuneCountInString(t) > utf8.RuneCountInString(best) {
			best = t
		}
	})
	if utf8.RuneCountInString(best) < minDescriptionLength {
		return ""
	}
	return best
}

func trimSiteSuffix(title string) string {
	for _, sep := range titleSeparators {
		if i := strings.Index(title, sep); i > 0 {
			return strings.TrimSpace(title[:i])
		}
	}
	return title
}
