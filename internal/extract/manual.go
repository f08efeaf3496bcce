// Package extract pulls listing data and media URLs out of static HTML and
// the structured payloads embedded in it.
package extract

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/detect"
	"github.com/kondohub/kondo-scraper/internal/model"
)

// Result sources reported by the manual extractor.
const (
	SourceVariable   = "variable"
	SourceJSONScript = "json-script"
	SourceJSONLD     = "json-ld"
	SourceDataAttr   = "data-attribute"
)

// DataAttributes are element attributes that commonly carry serialized
// component state.
var DataAttributes = []string{"data-props", "data-state", "data-config"}

var (
	// genericDataVarRe finds assignments to any identifier containing "Data",
	// e.g. window.propertyData = {...}.
	genericDataVarRe = regexp.MustCompile(`(?:\bwindow\.|\bself\.|\bvar\s+|\blet\s+|\bconst\s+)([A-Za-z_$][\w$]*Data[\w$]*)\s*=\s*`)
	namedVarRes      = buildNamedVarRes()
)

func buildNamedVarRes() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(detect.DataVariableNames))
	for _, name := range detect.DataVariableNames {
		q := regexp.QuoteMeta(name)
		out[name] = regexp.MustCompile(`(?:\bwindow\.` + q + `|\bself\.` + q + `|\bwindow\[["']` + q + `["']\]|\b(?:var|let|const)\s+` + q + `)\s*=\s*`)
	}
	return out
}

// Result is the outcome of a manual extraction.
type Result struct {
	Success    bool                   `json:"success"`
	Data       any                    `json:"data,omitempty"`
	Raw        json.RawMessage        `json:"-"`
	Source     string                 `json:"source,omitempty"`
	Confidence float64                `json:"confidence"`
	Method     model.ExtractionMethod `json:"method"`
}

// ManualExtractor locates structured data embedded in static HTML.
type ManualExtractor struct {
	weights    Weights
	jsonScript float64
}

// NewManualExtractor creates a ManualExtractor. jsonScriptMinimum is the
// confidence a JSON script or JSON-LD candidate must exceed to be accepted.
func NewManualExtractor(w Weights, jsonScriptMinimum float64) *ManualExtractor {
	if w.SizeCap <= 0 || w.DepthCap <= 0 {
		w = DefaultWeights()
	}
	if jsonScriptMinimum <= 0 {
		jsonScriptMinimum = 0.3
	}
	return &ManualExtractor{weights: w, jsonScript: jsonScriptMinimum}
}

// candidate is one parsed payload and its score.
type candidate struct {
	source     string
	raw        string
	data       any
	confidence float64
}

// Extract runs each strategy in order and returns the first that yields
// data. Parse failures inside a strategy only discard that candidate.
func (m *ManualExtractor) Extract(html string) Result {
	failed := Result{Method: model.MethodManual}
	if strings.TrimSpace(html) == "" {
		return failed
	}

	if c := best(m.variableCandidates(html)); c != nil {
		return m.result(c)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		zap.L().Debug("manual extract: parse html", zap.Error(err))
		return failed
	}

	if c := best(m.scriptCandidates(doc, `script[type="application/json"]`, SourceJSONScript)); c != nil && c.confidence > m.jsonScript {
		return m.result(c)
	}
	if c := best(m.scriptCandidates(doc, `script[type="application/ld+json"]`, SourceJSONLD)); c != nil && c.confidence > m.jsonScript {
		return m.result(c)
	}
	if c := best(m.attributeCandidates(doc)); c != nil {
		return m.result(c)
	}
	return failed
}

func (m *ManualExtractor) result(c *candidate) Result {
	return Result{
		Success:    true,
		Data:       c.data,
		Raw:        json.RawMessage(c.raw),
		Source:     c.source,
		Confidence: c.confidence,
		Method:     model.MethodManual,
	}
}

// variableCandidates captures object literals assigned to known hydration
// variables and to any *Data* identifier.
func (m *ManualExtractor) variableCandidates(html string) []candidate {
	var out []candidate
	seen := make(map[int]bool)

	names := make([]string, 0, len(namedVarRes))
	for name := range namedVarRes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, loc := range namedVarRes[name].FindAllStringIndex(html, -1) {
			if c, ok := m.literalAt(html, loc[1], SourceVariable+":"+name); ok && !seen[loc[1]] {
				seen[loc[1]] = true
				out = append(out, c)
			}
		}
	}
	for _, loc := range genericDataVarRe.FindAllStringSubmatchIndex(html, -1) {
		if seen[loc[1]] {
			continue
		}
		name := html[loc[2]:loc[3]]
		if c, ok := m.literalAt(html, loc[1], SourceVariable+":"+name); ok {
			seen[loc[1]] = true
			out = append(out, c)
		}
	}
	return out
}

func (m *ManualExtractor) literalAt(html string, pos int, source string) (candidate, bool) {
	start := skipSpace(html, pos)
	literal := scanBalanced(html, start)
	if literal == "" {
		return candidate{}, false
	}
	return m.parse(literal, source)
}

func (m *ManualExtractor) scriptCandidates(doc *goquery.Document, selector, source string) []candidate {
	var out []candidate
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		src := source
		if id, ok := s.Attr("id"); ok && id != "" {
			src = source + ":" + id
		}
		if c, ok := m.parse(strings.TrimSpace(s.Text()), src); ok {
			out = append(out, c)
		}
	})
	return out
}

func (m *ManualExtractor) attributeCandidates(doc *goquery.Document) []candidate {
	var out []candidate
	for _, attr := range DataAttributes {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			val, _ := s.Attr(attr)
			if c, ok := m.parse(strings.TrimSpace(val), SourceDataAttr+":"+attr); ok {
				out = append(out, c)
			}
		})
	}
	return out
}

// parse decodes raw JSON and scores it. Empty containers are rejected.
func (m *ManualExtractor) parse(raw, source string) (candidate, bool) {
	if raw == "" {
		return candidate{}, false
	}
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		zap.L().Debug("manual extract: invalid json", zap.String("source", source), zap.Error(err))
		return candidate{}, false
	}
	if isEmptyContainer(data) {
		return candidate{}, false
	}
	return candidate{
		source:     source,
		raw:        raw,
		data:       data,
		confidence: m.weights.Score(raw, data),
	}, true
}

// best returns the highest-confidence candidate; ties keep document order.
func best(cs []candidate) *candidate {
	var top *candidate
	for i := range cs {
		if top == nil || cs[i].confidence > top.confidence {
			top = &cs[i]
		}
	}
	return top
}

func isEmptyContainer(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case nil:
		return true
	default:
		return true
	}
}
