package extract

import (
	"reflect"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// sourcePaths are gjson paths that hold gallery URLs for a known embedded
// payload, keyed by Result.Source (or its prefix before ':').
var sourcePaths = map[string][]string{
	SourceJSONLD: {
		"image", "image.#.url", "image.#.contentUrl", "photo.#.contentUrl", "photo.#.url",
		`\@graph.#.image`, `\@graph.#.image.#.url`, `\@graph.#.photo.#.contentUrl`,
		"video.contentUrl", "video.#.contentUrl",
	},
	SourceJSONScript + ":__NEXT_DATA__": {
		"props.pageProps.property.images.#.url",
		"props.pageProps.property.gallery.#.url",
		"props.pageProps.listing.images.#.url",
		"props.pageProps.listing.medias.#.url",
		"props.pageProps.data.images.#.src",
	},
	SourceVariable + ":__NUXT__": {
		"data.#.property.images.#.url",
		"state.property.gallery.#.url",
		"state.listing.images.#.url",
	},
	SourceVariable + ":__INITIAL_STATE__": {
		"listing.medias.#.url",
		"listing.images.#.url",
		"property.gallery.#.src",
	},
}

// mediaKeys hint that a nested value holds media URLs.
var mediaKeys = []string{
	"image", "img", "photo", "foto", "picture", "gallery", "galeria",
	"media", "midia", "thumbnail", "thumb", "video", "src", "url",
	"planta", "floorplan", "banner", "cover", "capa",
}

// maxWalkDepth bounds the generic deep search.
const maxWalkDepth = 12

// StructuredMediaExtractor pulls media URLs out of a parsed embedded
// payload.
type StructuredMediaExtractor struct {
	MaxDepth int
}

// NewStructuredMediaExtractor creates an extractor with the default depth.
func NewStructuredMediaExtractor() *StructuredMediaExtractor {
	return &StructuredMediaExtractor{MaxDepth: maxWalkDepth}
}

// Extract returns absolute, de-duplicated media URLs from r. Source-specific
// paths are tried first; the generic deep search runs when they find
// nothing.
func (e *StructuredMediaExtractor) Extract(r Result, baseURL string) []string {
	if !r.Success || r.Data == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	add := func(raw string) {
		u := ResolveURL(baseURL, raw)
		if u == "" || seen[u] || !LooksLikeMedia(u) {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	if len(r.Raw) > 0 {
		for _, path := range pathsFor(r.Source) {
			collectGJSON(gjson.GetBytes(r.Raw, path), add)
		}
	}
	if len(out) > 0 {
		return out
	}

	w := walker{visited: make(map[uintptr]bool), maxDepth: e.MaxDepth, add: add}
	if w.maxDepth <= 0 {
		w.maxDepth = maxWalkDepth
	}
	w.walk(r.Data, 0, false)
	return out
}

func pathsFor(source string) []string {
	if p, ok := sourcePaths[source]; ok {
		return p
	}
	prefix, _, _ := strings.Cut(source, ":")
	return sourcePaths[prefix]
}

// collectGJSON adds strings from v, plus url/src/contentUrl members of
// objects.
func collectGJSON(v gjson.Result, add func(string)) {
	switch {
	case v.Type == gjson.String:
		add(v.String())
	case v.IsObject():
		for _, k := range []string{"url", "src", "contentUrl", "href"} {
			if s := v.Get(k); s.Type == gjson.String {
				add(s.String())
			}
		}
	case v.IsArray():
		v.ForEach(func(_, item gjson.Result) bool {
			collectGJSON(item, add)
			return true
		})
	}
}

// walker is a depth-bounded traversal that never revisits a container.
type walker struct {
	visited  map[uintptr]bool
	maxDepth int
	add      func(string)
}

func (w *walker) walk(v any, depth int, mediaContext bool) {
	if depth > w.maxDepth {
		return
	}
	switch t := v.(type) {
	case string:
		if mediaContext || mediaExtRe.MatchString(t) {
			w.add(t)
		}
	case map[string]any:
		if w.seen(t) {
			return
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			w.walk(t[k], depth+1, isMediaKey(k))
		}
	case []any:
		if len(t) == 0 || w.seen(t) {
			return
		}
		for _, item := range t {
			w.walk(item, depth+1, mediaContext)
		}
	}
}

// seen marks a map or slice by identity and reports whether it was already
// visited.
func (w *walker) seen(v any) bool {
	ptr := reflect.ValueOf(v).Pointer()
	if w.visited[ptr] {
		return true
	}
	w.visited[ptr] = true
	return false
}

func isMediaKey(k string) bool {
	k = strings.ToLower(k)
	for _, m := range mediaKeys {
		if strings.Contains(k, m) {
			return true
		}
	}
	return false
}
