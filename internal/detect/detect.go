// Package detect classifies raw listing HTML: which client framework built
// it, whether its content is present in the static markup, and whether a
// JavaScript-rendered fetch is needed.
package detect

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Signal weights. Confidence is their sum, capped at 1.
const (
	weightFramework   = 0.4
	weightLowDensity  = 0.3
	weightEmptyRoot   = 0.3
	weightDataVars    = 0.2
	weightAPIEndpoint = 0.1
)

// DataVariableNames are global variables client frameworks commonly assign
// their hydration state to.
var DataVariableNames = []string{
	"__NEXT_DATA__",
	"__NUXT__",
	"__INITIAL_STATE__",
	"__PRELOADED_STATE__",
	"__APOLLO_STATE__",
	"__APP_DATA__",
	"__DATA__",
	"__REDUX_STATE__",
	"__remixContext",
	"initialData",
	"pageData",
}

// FrameworkSignature is a client framework and the markup fragments that
// identify it.
type FrameworkSignature struct {
	Name    string
	Markers []string
}

// FrameworkSignatures is checked in order; more specific frameworks come
// before the libraries they build on.
var FrameworkSignatures = []FrameworkSignature{
	{Name: "nextjs", Markers: []string{`id="__next"`, "__NEXT_DATA__", "/_next/static/"}},
	{Name: "nuxt", Markers: []string{`id="__nuxt"`, "window.__NUXT__", "/_nuxt/"}},
	{Name: "gatsby", Markers: []string{`id="___gatsby"`, "/page-data/", "gatsby-"}},
	{Name: "remix", Markers: []string{"__remixContext", "/build/_shared/"}},
	{Name: "angular", Markers: []string{"ng-version=", "<app-root", "ng-app"}},
	{Name: "svelte", Markers: []string{"__sveltekit", "/_app/immutable/", "svelte-"}},
	{Name: "vue", Markers: []string{"data-v-app", "data-server-rendered", "__VUE__", "vue.runtime"}},
	{Name: "react", Markers: []string{"data-reactroot", "react-dom", `id="root"`, "__REACT_DEVTOOLS"}},
}

var (
	emptyRootRe   = regexp.MustCompile(`(?is)<div[^>]*\sid=["'](?:root|app|__next|__nuxt|___gatsby)["'][^>]*>\s*</div>`)
	apiEndpointRe = regexp.MustCompile(`["'](?:https?://[^"'\s]+)?/(?:api|graphql|wp-json|v[0-9])/[^"'\s]*["']`)
	jsonScriptRe  = regexp.MustCompile(`(?i)<script[^>]+type=["']application/json["']`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	dataVarRes    = buildDataVarRes()
)

func buildDataVarRes() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(DataVariableNames))
	for _, name := range DataVariableNames {
		out = append(out, regexp.MustCompile(`(?:\bwindow\.|\bself\.|\bvar\s+|\blet\s+|\bconst\s+|["']|\bid=["'])`+regexp.QuoteMeta(name)+`(?:["']|\s*=)`))
	}
	return out
}

// Analysis is the result of inspecting one HTML document.
type Analysis struct {
	IsSPA            bool     `json:"is_spa"`
	Confidence       float64  `json:"confidence"`
	Framework        string   `json:"framework,omitempty"`
	Indicators       []string `json:"indicators"`
	NeedsJSRendering bool     `json:"needs_js_rendering"`
	ContentLength    int      `json:"content_length"`
	LowDensity       bool     `json:"low_density"`
	HasDataVariables bool     `json:"has_data_variables"`
	HasAPIEndpoints  bool     `json:"has_api_endpoints"`
	EmptyRoot        bool     `json:"empty_root"`
}

// Detector inspects raw HTML for single-page-app signals.
type Detector struct {
	// MinContentLength is the visible-text length below which the page is
	// considered content-poor.
	MinContentLength int
	// SPAThreshold is the confidence at or above which a page is an SPA.
	SPAThreshold float64
}

// New creates a Detector, applying defaults for non-positive values.
func New(minContentLength int, spaThreshold float64) *Detector {
	if minContentLength <= 0 {
		minContentLength = 500
	}
	if spaThreshold <= 0 {
		spaThreshold = 0.5
	}
	return &Detector{MinContentLength: minContentLength, SPAThreshold: spaThreshold}
}

// Analyze classifies html. Rendering is needed when visible content is
// thin, an empty root container is present, or no embedded data the
// manual extractor could read is found.
func (d *Detector) Analyze(html string) Analysis {
	a := Analysis{Indicators: []string{}}

	a.ContentLength = VisibleTextLength(html)
	if a.ContentLength < d.MinContentLength {
		a.LowDensity = true
		a.Confidence += weightLowDensity
		a.Indicators = append(a.Indicators, "low_content_density")
	}

	if fw := MatchFramework(html); fw != "" {
		a.Framework = fw
		a.Confidence += weightFramework
		a.Indicators = append(a.Indicators, "framework:"+fw)
	}

	if emptyRootRe.MatchString(html) {
		a.EmptyRoot = true
		a.Confidence += weightEmptyRoot
		a.Indicators = append(a.Indicators, "empty_root_container")
	}

	if HasDataVariables(html) {
		a.HasDataVariables = true
		a.Confidence += weightDataVars
		a.Indicators = append(a.Indicators, "data_variables")
	}

	if apiEndpointRe.MatchString(html) {
		a.HasAPIEndpoints = true
		a.Confidence += weightAPIEndpoint
		a.Indicators = append(a.Indicators, "api_endpoints")
	}

	if a.Confidence > 1 {
		a.Confidence = 1
	}
	a.IsSPA = a.Confidence >= d.SPAThreshold
	a.NeedsJSRendering = a.LowDensity || a.EmptyRoot || !a.HasDataVariables
	return a
}

// MatchFramework returns the first framework whose markers appear in html.
func MatchFramework(html string) string {
	for _, sig := range FrameworkSignatures {
		for _, m := range sig.Markers {
			if strings.Contains(html, m) {
				return sig.Name
			}
		}
	}
	return ""
}

// HasDataVariables reports whether html assigns a known hydration variable
// or embeds a JSON data script.
func HasDataVariables(html string) bool {
	for _, re := range dataVarRes {
		if re.MatchString(html) {
			return true
		}
	}
	return jsonScriptRe.MatchString(html)
}

// VisibleTextLength returns the length of the document's text once
// script, style, svg and noscript elements are removed and whitespace is
// collapsed.
func VisibleTextLength(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}
	doc.Find("script, style, svg, noscript, template").Remove()
	text := whitespaceRe.ReplaceAllString(doc.Text(), " ")
	return len([]rune(strings.TrimSpace(text)))
}
