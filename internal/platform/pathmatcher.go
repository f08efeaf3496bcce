package platform

import (
	"net/url"
	"path"
	"strings"
)

// defaultExcludePatterns skip pages that never describe a development:
// CMS back offices, brochure downloads and CDN helper endpoints.
var defaultExcludePatterns = []string{
	"/wp-admin/*",
	"/wp-login.php",
	"/cdn-cgi/*",
	"*.pdf",
}

type pathRule struct {
	glob string
	// dir is set for "/dir/*" rules, which also cover deeper paths.
	dir string
	// ext is set for "*.ext" rules, which match at any depth.
	ext string
}

// PathMatcher excludes listing URLs by case-insensitive path pattern. A
// pattern is a path.Match glob rooted at "/"; "/dir/*" also covers "/dir"
// and everything below it, and a bare "*.ext" matches the extension at any
// depth.
type PathMatcher struct {
	patterns []string
	rules    []pathRule
}

// NewPathMatcher compiles patterns, falling back to the defaults when none
// are given.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultExcludePatterns
	}
	m := &PathMatcher{patterns: patterns}
	for _, p := range patterns {
		m.rules = append(m.rules, compileRule(p))
	}
	return m
}

func compileRule(pattern string) pathRule {
	p := strings.ToLower(strings.TrimSpace(pattern))
	r := pathRule{glob: p}
	switch {
	case strings.HasPrefix(p, "*.") && !strings.Contains(p, "/"):
		r.ext = p[1:]
	case strings.HasSuffix(p, "/*"):
		r.dir = strings.TrimSuffix(p, "/*")
	}
	return r
}

func (r pathRule) match(p string) bool {
	if r.ext != "" {
		return strings.HasSuffix(p, r.ext)
	}
	if ok, _ := path.Match(r.glob, p); ok {
		return true
	}
	return r.dir != "" && (p == r.dir || strings.HasPrefix(p, r.dir+"/"))
}

// Patterns returns the patterns as configured.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded reports whether rawURL's path matches any pattern. URLs that do
// not parse are excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, r := range m.rules {
		if r.match(p) {
			return true
		}
	}
	return false
}
