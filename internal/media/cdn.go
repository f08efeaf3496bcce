package media

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// LargeWidth is the width requested from CDNs that resize on the fly.
const LargeWidth = 1920

// Transformer rewrites a CDN thumbnail URL to its highest-quality variant.
type Transformer interface {
	Name() string
	Match(u *url.URL) bool
	Transform(u *url.URL) *url.URL
}

// DefaultTransformers returns the built-in transformers, most specific
// first. The query-parameter transformer goes last since it matches
// loosely.
func DefaultTransformers() []Transformer {
	return []Transformer{
		wixTransformer{},
		cloudinaryTransformer{},
		googleTransformer{},
		resizedImgsTransformer{},
		wordpressTransformer{},
		queryParamTransformer{},
	}
}

// Upgrade normalizes protocol-relative URLs to https and applies the first
// matching transformer. Unparseable input is returned unchanged.
func Upgrade(raw string, transformers []Transformer) string {
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	for _, t := range transformers {
		if t.Match(u) {
			return t.Transform(u).String()
		}
	}
	return u.String()
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	return &c
}

// wixTransformer strips the /v1/fill/... rendition suffix so the original
// upload is served.
type wixTransformer struct{}

func (wixTransformer) Name() string { return "wix" }

func (wixTransformer) Match(u *url.URL) bool {
	return strings.HasSuffix(u.Hostname(), "wixstatic.com") && strings.HasPrefix(u.Path, "/media/")
}

func (wixTransformer) Transform(u *url.URL) *url.URL {
	out := cloneURL(u)
	if i := strings.Index(out.Path, "/v1/"); i > 0 {
		out.Path = out.Path[:i]
		out.RawPath = ""
	}
	out.RawQuery = ""
	return out
}

var cloudinaryTransformRe = regexp.MustCompile(`^[a-z]{1,3}_[a-z0-9:\-]+(?:,[a-z]{1,3}_[a-z0-9:\-]+)*$`)

// cloudinaryTransformer drops transformation segments between the delivery
// type and the asset path.
type cloudinaryTransformer struct{}

func (cloudinaryTransformer) Name() string { return "cloudinary" }

func (cloudinaryTransformer) Match(u *url.URL) bool {
	return u.Hostname() == "res.cloudinary.com"
}

func (cloudinaryTransformer) Transform(u *url.URL) *url.URL {
	out := cloneURL(u)
	parts := strings.Split(out.Path, "/")
	kept := make([]string, 0, len(parts))
	stripping, done := false, false
	for _, p := range parts {
		if stripping {
			if cloudinaryTransformRe.MatchString(p) {
				continue
			}
			stripping = false
		}
		kept = append(kept, p)
		if !done && (p == "upload" || p == "fetch") {
			kept = append(kept, "q_auto:best")
			stripping, done = true, true
		}
	}
	out.Path = strings.Join(kept, "/")
	out.RawPath = ""
	return out
}

var googleSizeRe = regexp.MustCompile(`=[swh]\d+[^/]*$`)

// googleTransformer requests the original size from googleusercontent.
type googleTransformer struct{}

func (googleTransformer) Name() string { return "googleusercontent" }

func (googleTransformer) Match(u *url.URL) bool {
	return strings.HasSuffix(u.Hostname(), "googleusercontent.com")
}

func (googleTransformer) Transform(u *url.URL) *url.URL {
	out := cloneURL(u)
	if googleSizeRe.MatchString(out.Path) {
		out.Path = googleSizeRe.ReplaceAllString(out.Path, "=s0")
	} else {
		out.Path += "=s0"
	}
	out.RawPath = ""
	return out
}

var resizedDimRe = regexp.MustCompile(`^/(?:crop|fit-in|resize)/\d+x\d+/`)

// resizedImgsTransformer handles the resizedimgs.* image service used by
// large Brazilian listing portals.
type resizedImgsTransformer struct{}

func (resizedImgsTransformer) Name() string { return "resizedimgs" }

func (resizedImgsTransformer) Match(u *url.URL) bool {
	return strings.HasPrefix(u.Hostname(), "resizedimgs.") && resizedDimRe.MatchString(u.Path)
}

func (resizedImgsTransformer) Transform(u *url.URL) *url.URL {
	out := cloneURL(u)
	out.Path = resizedDimRe.ReplaceAllString(out.Path, "/fit-in/1920x1080/")
	out.RawPath = ""
	return out
}

var wpSizeRe = regexp.MustCompile(`-\d{2,4}x\d{2,4}(\.[A-Za-z0-9]+)$`)

// wordpressTransformer removes the -WxH thumbnail suffix from uploads and
// the resize parameters of the Jetpack image CDN.
type wordpressTransformer struct{}

func (wordpressTransformer) Name() string { return "wordpress" }

func (wordpressTransformer) Match(u *url.URL) bool {
	return strings.Contains(u.Path, "/wp-content/uploads/")
}

func (wordpressTransformer) Transform(u *url.URL) *url.URL {
	out := cloneURL(u)
	out.Path = wpSizeRe.ReplaceAllString(out.Path, "$1")
	out.RawPath = ""
	if strings.HasSuffix(out.Hostname(), ".wp.com") {
		out.RawQuery = ""
	}
	return out
}

var (
	widthParams   = []string{"w", "width", "maxwidth", "mw"}
	heightParams  = []string{"h", "height", "maxheight", "mh"}
	qualityParams = []string{"q", "quality"}
	blurParams    = []string{"blur", "blur-radius"}
)

// queryParamTransformer covers imgix-style CDNs that resize through query
// parameters: width bumped, height dropped to keep the aspect ratio, blur
// removed and quality maximized.
type queryParamTransformer struct{}

func (queryParamTransformer) Name() string { return "query-params" }

func (queryParamTransformer) Match(u *url.URL) bool {
	q := u.Query()
	if strings.HasSuffix(u.Hostname(), "imgix.net") {
		return true
	}
	return hasAny(q, widthParams) || hasAny(q, blurParams)
}

func (queryParamTransformer) Transform(u *url.URL) *url.URL {
	out := cloneURL(u)
	q := out.Query()
	for _, p := range widthParams {
		if q.Has(p) {
			q.Set(p, strconv.Itoa(LargeWidth))
		}
	}
	for _, p := range heightParams {
		q.Del(p)
	}
	for _, p := range blurParams {
		q.Del(p)
	}
	for _, p := range qualityParams {
		if q.Has(p) {
			q.Set(p, "100")
		}
	}
	out.RawQuery = q.Encode()
	return out
}

func hasAny(q url.Values, keys []string) bool {
	for _, k := range keys {
		if q.Has(k) {
			return true
		}
	}
	return false
}
