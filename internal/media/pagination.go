package media

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kondohub/kondo-scraper/internal/extract"
	"github.com/kondohub/kondo-scraper/internal/model"
)

var nextSelectors = []string{
	`link[rel="next"]`,
	`a[rel="next"]`,
	`.pagination a.next`,
	`.pagination .next a`,
	`a.next`,
	`a.next-page`,
	`.pager-next a`,
	`a[aria-label*="Próxima"]`,
	`a[aria-label*="próxima"]`,
	`a[aria-label*="Next"]`,
}

var nextTexts = []string{"proxima", "proximo", "next", "›", "»"}

var pageParams = []string{"page", "pagina", "pg", "p", "offset", "start"}

const pageLinkSelector = `.pagination a[href], .pager a[href], nav[aria-label*="pagina"] a[href], nav[aria-label*="Pagination"] a[href], .page-numbers a[href]`

// DetectPagination inspects a page for next-page links and page/offset
// query parameters. It returns nil when no pagination is found.
func DetectPagination(doc *goquery.Document, pageURL string) *model.Pagination {
	p := &model.Pagination{}

	for _, sel := range nextSelectors {
		if href := doc.Find(sel).First().AttrOr("href", ""); href != "" {
			p.NextURL = extract.ResolveURL(pageURL, href)
			break
		}
	}
	if p.NextURL == "" {
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := extract.Fold(strings.TrimSpace(s.Text()))
			for _, t := range nextTexts {
				if text == t || strings.HasPrefix(text, t+" ") {
					p.NextURL = extract.ResolveURL(pageURL, s.AttrOr("href", ""))
					return false
				}
			}
			return true
		})
	}
	p.HasNext = p.NextURL != ""

	if u, err := url.Parse(pageURL); err == nil {
		q := u.Query()
		for _, param := range pageParams {
			if v := q.Get(param); v != "" {
				if n, err := strconv.Atoi(v); err == nil {
					p.Param, p.Current = param, n
					break
				}
			}
		}
	}

	seen := make(map[string]bool)
	doc.Find(pageLinkSelector).Each(func(_ int, s *goquery.Selection) {
		u := extract.ResolveURL(pageURL, s.AttrOr("href", ""))
		if u != "" && u != pageURL && !seen[u] {
			seen[u] = true
			p.PageURLs = append(p.PageURLs, u)
		}
	})

	if !p.HasNext && p.Param == "" && len(p.PageURLs) == 0 {
		return nil
	}
	return p
}
