// Package engine turns a listing URL into a sparse partial listing. Site
// engines pair a page parser with the shared extraction toolkit; the generic
// engine escalates from a static fetch to a rendered one only when the static
// page cannot hold the content.
package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
	"github.com/rotisserie/eris"

	"github.com/kondohub/kondo-scraper/internal/config"
	"github.com/kondohub/kondo-scraper/internal/detect"
	"github.com/kondohub/kondo-scraper/internal/extract"
	"github.com/kondohub/kondo-scraper/internal/media"
	"github.com/kondohub/kondo-scraper/internal/model"
	"github.com/kondohub/kondo-scraper/internal/platform"
)

// Engine scrapes a listing page.
type Engine interface {
	Name() string
	Scrape(ctx context.Context, url string) (*model.ScrapedData, error)
}

// Parser extracts listing fields from a parsed page.
type Parser interface {
	Name() string
	Parse(doc *goquery.Document, page *platform.Page) map[string]any
	// MediaSelectors are CSS selectors for the site's gallery elements.
	MediaSelectors() []string
}

// MediaParser is implemented by parsers that read gallery URLs directly
// from site data.
type MediaParser interface {
	ParseMedia(doc *goquery.Document, page *platform.Page) []string
}

// CommonFieldsUser is implemented by parsers that can opt out of the shared
// markup heuristics (headings, meta tags, contact links, price phrasing).
type CommonFieldsUser interface {
	UsesCommonFields() bool
}

// Renderer is implemented by parsers whose site only yields content after
// JavaScript runs.
type Renderer interface {
	NeedsRendering() bool
}

// Fetcher fetches page HTML. platform.Chain and every platform.Provider
// satisfy it.
type Fetcher interface {
	FetchHTML(ctx context.Context, url string, opts platform.Options) (*platform.Page, error)
}

// Settings tune the shared extraction toolkit.
type Settings struct {
	ManualThreshold   float64
	MinContentLength  int
	SPAThreshold      float64
	RenderWaitMs      int
	Country           string
	UseProxy          bool
	MinWidth          int
	MinHeight         int
	JSONScriptMinimum float64
	Weights           extract.Weights
}

// DefaultSettings returns the settings used when no configuration is given.
func DefaultSettings() Settings {
	return Settings{
		ManualThreshold:   0.7,
		MinContentLength:  500,
		SPAThreshold:      0.5,
		RenderWaitMs:      3000,
		Country:           "br",
		MinWidth:          400,
		MinHeight:         300,
		JSONScriptMinimum: 0.3,
		Weights:           extract.DefaultWeights(),
	}
}

// SettingsFromConfig maps the scrape, confidence and media sections.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		ManualThreshold:   cfg.Scrape.ManualExtractionThreshold,
		MinContentLength:  cfg.Scrape.SPA.MinContentLength,
		SPAThreshold:      cfg.Scrape.SPA.ConfidenceThreshold,
		RenderWaitMs:      cfg.Scrape.SPA.WaitMs,
		Country:           cfg.Scrape.Country,
		UseProxy:          cfg.Scrape.UseProxy,
		MinWidth:          cfg.Media.MinWidth,
		MinHeight:         cfg.Media.MinHeight,
		JSONScriptMinimum: cfg.Confidence.JSONScriptMinimum,
		Weights:           extract.WeightsFromConfig(cfg.Confidence),
	}
}

// toolkit bundles the extraction components every engine shares.
type toolkit struct {
	fetcher    Fetcher
	settings   Settings
	detector   *detect.Detector
	manual     *extract.ManualExtractor
	structured *extract.StructuredMediaExtractor
	pipeline   *media.Pipeline
	now        func() time.Time
}

func newToolkit(f Fetcher, s Settings) *toolkit {
	return &toolkit{
		fetcher:    f,
		settings:   s,
		detector:   detect.New(s.MinContentLength, s.SPAThreshold),
		manual:     extract.NewManualExtractor(s.Weights, s.JSONScriptMinimum),
		structured: extract.NewStructuredMediaExtractor(),
		pipeline:   media.NewPipeline(s.MinWidth, s.MinHeight),
		now:        time.Now,
	}
}

func (t *toolkit) fetch(ctx context.Context, url string, render bool) (*platform.Page, error) {
	opts := platform.Options{
		RenderJS: render,
		UseProxy: t.settings.UseProxy,
		Country:  t.settings.Country,
	}
	if render {
		opts.WaitMs = t.settings.RenderWaitMs
	}
	page, err := t.fetcher.FetchHTML(ctx, url, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: fetch %s (render=%t)", url, render)
	}
	if page == nil || strings.TrimSpace(page.HTML) == "" {
		return nil, eris.Errorf("engine: empty page for %s", url)
	}
	return page, nil
}

// canRender reports whether the fetcher can return rendered HTML. Fetchers
// that do not say are assumed able to.
func (t *toolkit) canRender() bool {
	if r, ok := t.fetcher.(interface{ SupportsRendering() bool }); ok {
		return r.SupportsRendering()
	}
	return true
}

// process parses page with p and fills the gaps, in order of trust, from the
// embedded payload, the shared markup heuristics and amenity keywords in the
// page text. It then runs the media pipeline; structured media wins over
// markup media, which is only scanned when the payload has none.
func (t *toolkit) process(engineName string, page *platform.Page, p Parser, manual extract.Result) (*model.ScrapedData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, eris.Wrap(err, "engine: parse html")
	}
	pageURL := pageURLOf(page)

	fields := p.Parse(doc, page)
	if fields == nil {
		fields = make(map[string]any)
	}
	if manual.Success {
		for k, v := range extract.MapStructured(manual.Data) {
			if _, ok := fields[k]; !ok {
				fields[k] = v
			}
		}
	}
	if u, ok := p.(CommonFieldsUser); !ok || u.UsesCommonFields() {
		parseCommon(doc, fields)
	}
	for k, v := range extract.DetectAmenities(doc.Find("body").Text()) {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}

	var urls []string
	if mp, ok := p.(MediaParser); ok {
		urls = mp.ParseMedia(doc, page)
	}
	if len(urls) == 0 {
		urls = t.structured.Extract(manual, pageURL)
	}
	var cands []model.MediaCandidate
	if len(urls) > 0 {
		cands = media.Candidates(urls)
	} else {
		cands = extract.NewHTMLMediaExtractor(p.MediaSelectors()...).Extract(doc, pageURL)
	}
	out := t.pipeline.Run(cands, doc, pageURL)

	return &model.ScrapedData{
		URL:          page.URL,
		Engine:       engineName,
		Fields:       fields,
		Medias:       media.URLs(out.Media),
		Candidates:   out.Media,
		Platform:     page.Metadata,
		Pagination:   out.Pagination,
		HTMLChecksum: Checksum(page.HTML),
		ScrapedAt:    t.now().UTC(),
	}, nil
}

// Checksum fingerprints page HTML for change detection.
func Checksum(html string) string {
	return strconv.FormatUint(xxhash.Sum64String(html), 16)
}

func pageURLOf(page *platform.Page) string {
	if page.FinalURL != "" {
		return page.FinalURL
	}
	return page.URL
}
