// Package media scores, upgrades, filters and de-duplicates the media URLs
// discovered on a listing page, and probes image dimensions.
package media

import (
	"net/url"
	"sort"

	"github.com/PuerkitoBio/goquery"

	"github.com/kondohub/kondo-scraper/internal/model"
)

// Pipeline post-processes raw media candidates.
type Pipeline struct {
	Transformers []Transformer
	MinWidth     int
	MinHeight    int
}

// NewPipeline creates a Pipeline with the default CDN transformers.
func NewPipeline(minWidth, minHeight int) *Pipeline {
	return &Pipeline{Transformers: DefaultTransformers(), MinWidth: minWidth, MinHeight: minHeight}
}

// Output is the result of a pipeline run.
type Output struct {
	Media      []model.MediaCandidate
	Rejected   []model.MediaCandidate
	Pagination *model.Pagination
}

// Run applies, in order: CDN upgrade, placeholder filtering, de-duplication,
// relevance sort (descending, stable) and pagination detection. doc may be
// nil, in which case pagination is skipped.
func (p *Pipeline) Run(cands []model.MediaCandidate, doc *goquery.Document, pageURL string) Output {
	var out Output
	propertyDomain := hostOf(pageURL)
	dedup := NewDeduper()

	kept := make([]model.MediaCandidate, 0, len(cands))
	for _, c := range cands {
		if c.OriginalURL == "" {
			c.OriginalURL = c.URL
		}
		c.URL = Upgrade(c.URL, p.Transformers)

		if IsPlaceholder(c, p.MinWidth, p.MinHeight) {
			c.IsPlaceholder = true
			out.Rejected = append(out.Rejected, c)
			continue
		}
		if dedup.SeenURL(c.URL) {
			c.IsDuplicate = true
			out.Rejected = append(out.Rejected, c)
			continue
		}
		c.RelevanceScore = Score(c.URL, propertyDomain)
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].RelevanceScore > kept[j].RelevanceScore
	})
	out.Media = kept

	if doc != nil {
		out.Pagination = DetectPagination(doc, pageURL)
	}
	return out
}

// URLs returns the candidate URLs in order.
func URLs(cands []model.MediaCandidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.URL)
	}
	return out
}

// Candidates wraps plain URLs as candidates.
func Candidates(urls []string) []model.MediaCandidate {
	out := make([]model.MediaCandidate, 0, len(urls))
	for _, u := range urls {
		out = append(out, model.MediaCandidate{URL: u, OriginalURL: u})
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
