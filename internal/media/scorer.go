package media

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/kondohub/kondo-scraper/internal/extract"
)

// Component weights of the relevance score.
const (
	weightExtension = 0.2
	weightPath      = 0.4
	weightDomain    = 0.3
	weightShape     = 0.1
)

// definiteKeywords mark URLs that are almost certainly property photos.
var definiteKeywords = []string{
	"fachada", "piscina", "perspectiva", "decorado", "planta", "implantacao",
	"lazer", "facade", "floorplan", "floor-plan",
}

var positiveKeywords = []string{
	"foto", "photo", "image", "imagem", "galeria", "gallery", "media", "uploads",
	"apartamento", "empreendimento", "condominio", "sala", "quarto", "dormitorio",
	"suite", "cozinha", "varanda", "banheiro", "gourmet", "academia", "salao",
	"churrasqueira", "playground", "interior", "exterior", "vista",
}

// negativeKeywords are matched at word starts, so "uploads" is not "ads".
var negativeKeywords = []string{
	"logo", "icon", "favicon", "avatar", "sprite", "placeholder", "loading",
	"spinner", "button", "arrow", "badge", "social", "facebook", "instagram",
	"whatsapp", "twitter", "linkedin", "youtube-icon", "emoji", "flag", "pixel",
	"tracking", "banner-ad", "ads", "selo", "bandeira",
}

var cdnHosts = []string{
	"cloudfront.net", "akamaized.net", "akamaihd.net", "fastly.net", "amazonaws.com",
	"wp.com", "wixstatic.com", "cloudinary.com", "imgix.net", "googleusercontent.com",
	"ctfassets.net", "sanity.io", "azureedge.net", "b-cdn.net", "cdn.",
	"resizedimgs.",
}

var stockHosts = []string{
	"gravatar.com", "shutterstock.com", "istockphoto.com", "gettyimages.com",
	"pexels.com", "freepik.com", "unsplash.com", "placeholder.com", "placehold.co",
	"placehold.it", "dummyimage.com", "picsum.photos", "pravatar.cc",
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Score rates how likely rawURL is a photo of the property, in [0,1].
// propertyDomain is the listing site's host and may be empty. URLs on
// external video platforms always score 0.
func Score(rawURL, propertyDomain string) float64 {
	if extract.IsVideoHost(rawURL) {
		return 0
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	s := weightExtension*extensionScore(u) +
		weightPath*pathScore(u) +
		weightDomain*domainScore(u, propertyDomain) +
		weightShape*shapeScore(rawURL, u)
	return clamp01(s)
}

func extensionScore(u *url.URL) float64 {
	switch strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".") {
	case "jpg", "jpeg", "png", "webp", "avif":
		return 1.0
	case "mp4", "webm", "mov":
		return 0.8
	case "gif":
		return 0.5
	case "":
		return 0.6
	case "svg", "ico", "bmp", "tif", "tiff", "cur":
		return 0.1
	default:
		return 0.3
	}
}

func pathScore(u *url.URL) float64 {
	text := extract.Fold(u.Path + " " + u.RawQuery)
	score := 0.5
	for _, kw := range definiteKeywords {
		if strings.Contains(text, kw) {
			score = 0.9
			break
		}
	}
	for _, kw := range positiveKeywords {
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}
	words := " " + nonAlnumRe.ReplaceAllString(text, " ")
	for _, kw := range negativeKeywords {
		if strings.Contains(words, " "+nonAlnumRe.ReplaceAllString(kw, " ")) {
			score -= 0.5
		}
	}
	if name := path.Base(u.Path); len(name) > 100 {
		score -= 0.1
	}
	if strings.ContainsAny(u.Path, " {}<>|^`") || strings.Contains(u.RawPath, "%20") {
		score -= 0.1
	}
	return clamp01(score)
}

func domainScore(u *url.URL, propertyDomain string) float64 {
	host := strings.ToLower(u.Hostname())
	prop := strings.TrimPrefix(strings.ToLower(propertyDomain), "www.")
	switch {
	case prop != "" && (strings.TrimPrefix(host, "www.") == prop || strings.HasSuffix(host, "."+prop)):
		return 1.0
	case matchesHost(host, stockHosts):
		return 0.1
	case matchesHost(host, cdnHosts):
		return 0.9
	default:
		return 0.5
	}
}

func shapeScore(raw string, u *url.URL) float64 {
	var s float64
	switch n := len(raw); {
	case n <= 100:
		s = 1.0
	case n <= 200:
		s = 0.7
	case n <= 400:
		s = 0.4
	default:
		s = 0.1
	}
	if len(u.Query()) > 5 {
		s -= 0.2
	}
	return clamp01(s)
}

func matchesHost(host string, hosts []string) bool {
	for _, h := range hosts {
		if strings.HasSuffix(h, ".") {
			if strings.HasPrefix(host, h) || strings.Contains(host, "."+h) {
				return true
			}
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
