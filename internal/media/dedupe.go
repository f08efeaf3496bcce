package media

import (
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// sizingParams are query parameters that select a rendition of the same
// asset and are ignored when fingerprinting a URL.
var sizingParams = map[string]bool{
	"w": true, "h": true, "width": true, "height": true, "q": true, "quality": true,
	"fit": true, "crop": true, "auto": true, "dpr": true, "blur": true, "format": true,
	"fm": true, "resize": true, "ver": true, "v": true,
}

var thumbSuffixRe = regexp.MustCompile(`-\d{2,4}x\d{2,4}(\.[a-z0-9]+)$`)

// Deduper remembers URL and content fingerprints seen during one run. It is
// safe for concurrent use.
type Deduper struct {
	mu      sync.Mutex
	urls    map[uint64]bool
	content map[uint64]bool
}

// NewDeduper creates an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{urls: make(map[uint64]bool), content: make(map[uint64]bool)}
}

// SeenURL records rawURL and reports whether an equivalent URL was seen
// before. Scheme, host case, fragments, sizing parameters and thumbnail
// suffixes do not distinguish URLs.
func (d *Deduper) SeenURL(rawURL string) bool {
	h := xxhash.Sum64String(URLFingerprint(rawURL))
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.urls[h] {
		return true
	}
	d.urls[h] = true
	return false
}

// SeenContent records body and reports whether identical bytes were seen
// before.
func (d *Deduper) SeenContent(body []byte) bool {
	h := xxhash.Sum64(body)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.content[h] {
		return true
	}
	d.content[h] = true
	return false
}

// URLFingerprint canonicalizes rawURL for duplicate detection.
func URLFingerprint(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for k := range q {
		if sizingParams[strings.ToLower(k)] {
			q.Del(k)
		}
	}
	p := thumbSuffixRe.ReplaceAllString(strings.ToLower(u.EscapedPath()), "$1")
	fp := strings.ToLower(u.Hostname()) + p
	if enc := q.Encode(); enc != "" {
		fp += "?" + enc
	}
	return fp
}
