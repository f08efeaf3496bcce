package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kondohub/kondo-scraper/internal/model"
)

// DefaultMinResults is the selector-pass yield below which the catch-all
// pass runs.
const DefaultMinResults = 3

// lazyAttrs are checked in order for an element's real source.
var lazyAttrs = []string{
	"data-src", "data-lazy-src", "data-original", "data-lazy", "data-full",
	"data-large", "data-zoom-image", "data-image", "data-bg", "data-background",
	"src",
}

var (
	srcsetItemRe = regexp.MustCompile(`^(\S+)(?:\s+(\d+(?:\.\d+)?)([wx]))?$`)
	bgURLRe      = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)
	anyMediaRe   = regexp.MustCompile(`(?i)(?:https?:)?//[^\s"'<>()\\]+?\.(?:jpe?g|png|webp|avif|gif|mp4|webm)(?:\?[^\s"'<>()\\]*)?`)
)

// HTMLMediaExtractor collects media candidates from markup. Selectors lists
// parser-specific containers scanned before the generic selector pass.
type HTMLMediaExtractor struct {
	Selectors  []string
	MinResults int
}

// NewHTMLMediaExtractor creates an extractor with extra selectors.
func NewHTMLMediaExtractor(selectors ...string) *HTMLMediaExtractor {
	return &HTMLMediaExtractor{Selectors: selectors, MinResults: DefaultMinResults}
}

type collector struct {
	base string
	seen map[string]bool
	out  []model.MediaCandidate
}

func (c *collector) add(raw, alt string) {
	u := ResolveURL(c.base, raw)
	if u == "" || c.seen[u] {
		return
	}
	c.seen[u] = true
	c.out = append(c.out, model.MediaCandidate{URL: u, OriginalURL: u, Alt: strings.TrimSpace(alt)})
}

// Extract runs the selector pass and, when it yields fewer than MinResults
// URLs, a catch-all pass over the raw markup.
func (e *HTMLMediaExtractor) Extract(doc *goquery.Document, baseURL string) []model.MediaCandidate {
	c := &collector{base: baseURL, seen: make(map[string]bool)}

	for _, sel := range e.Selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			e.fromElement(c, s)
			s.Find("img, source, video, a[href]").Each(func(_ int, child *goquery.Selection) {
				e.fromElement(c, child)
			})
		})
	}

	doc.Find(`meta[property="og:image"], meta[property="og:image:secure_url"], meta[name="twitter:image"]`).Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		c.add(content, "")
	})
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		e.fromElement(c, s)
	})
	doc.Find("picture source[srcset], picture source[data-srcset]").Each(func(_ int, s *goquery.Selection) {
		e.fromElement(c, s)
	})
	doc.Find("video").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			c.add(src, "")
		}
		if poster, ok := s.Attr("poster"); ok {
			c.add(poster, "")
		}
		s.Find("source[src]").Each(func(_ int, src *goquery.Selection) {
			v, _ := src.Attr("src")
			c.add(v, "")
		})
	})
	doc.Find("iframe[src], iframe[data-src]").Each(func(_ int, s *goquery.Selection) {
		src := attrFirst(s, "data-src", "src")
		if IsVideoHost(ResolveURL(baseURL, src)) {
			c.add(src, "")
		}
	})
	doc.Find(`[style*="background"], [data-bg], [data-background]`).Each(func(_ int, s *goquery.Selection) {
		if bg := attrFirst(s, "data-bg", "data-background"); bg != "" {
			c.add(bg, "")
		}
		style, _ := s.Attr("style")
		for _, m := range bgURLRe.FindAllStringSubmatch(style, -1) {
			c.add(m[1], "")
		}
	})

	minResults := e.MinResults
	if minResults <= 0 {
		minResults = DefaultMinResults
	}
	if len(c.out) < minResults {
		e.catchAll(c, doc)
	}
	return c.out
}

// fromElement reads the best source of an img, source, video or anchor.
func (e *HTMLMediaExtractor) fromElement(c *collector, s *goquery.Selection) {
	alt := attrFirst(s, "alt", "title")
	if set := attrFirst(s, "data-srcset", "srcset"); set != "" {
		if u := PickLargestFromSrcset(set); u != "" {
			c.add(u, alt)
			return
		}
	}
	if goquery.NodeName(s) == "a" {
		href, _ := s.Attr("href")
		if mediaExtRe.MatchString(href) {
			c.add(href, alt)
		}
		return
	}
	for _, attr := range lazyAttrs {
		v, ok := s.Attr(attr)
		if !ok || strings.TrimSpace(v) == "" || strings.HasPrefix(strings.TrimSpace(v), "data:") {
			continue
		}
		c.add(v, alt)
		return
	}
}

// catchAll scans the serialized document, including inline scripts, for
// anything that looks like a media URL.
func (e *HTMLMediaExtractor) catchAll(c *collector, doc *goquery.Document) {
	html, err := doc.Html()
	if err != nil {
		return
	}
	html = strings.ReplaceAll(html, `\/`, "/")
	html = strings.ReplaceAll(html, `\u002F`, "/")
	html = strings.ReplaceAll(html, "&amp;", "&")
	for _, m := range anyMediaRe.FindAllString(html, -1) {
		c.add(m, "")
	}
}

// PickLargestFromSrcset returns the candidate with the largest width or
// density descriptor. The first entry wins when none carry descriptors.
func PickLargestFromSrcset(srcset string) string {
	bestURL := ""
	bestSize := -1.0
	for _, item := range strings.Split(srcset, ",") {
		m := srcsetItemRe.FindStringSubmatch(strings.TrimSpace(item))
		if m == nil {
			continue
		}
		size := 0.0
		if m[2] != "" {
			size, _ = strconv.ParseFloat(m[2], 64)
			if m[3] == "x" {
				size *= 1000
			}
		}
		if size > bestSize {
			bestURL, bestSize = m[1], size
		}
	}
	return bestURL
}

func attrFirst(s *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := s.Attr(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
