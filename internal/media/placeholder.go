package media

import (
	"net/url"
	"path"
	"strings"

	"github.com/kondohub/kondo-scraper/internal/extract"
	"github.com/kondohub/kondo-scraper/internal/model"
)

// PlaceholderKeywords mark filenames and alt texts of non-photo images.
var PlaceholderKeywords = []string{
	"placeholder", "blank", "spacer", "pixel", "loading", "lazy", "spinner",
	"logo", "icon", "favicon", "sprite", "avatar", "no-image", "noimage",
	"sem-foto", "semfoto", "sem-imagem", "transparent", "1x1", "dummy",
	"default-image", "coming-soon", "em-breve",
}

// IsPlaceholder reports whether c is a placeholder, icon or logo: either its
// known dimensions are below minW x minH, or its filename or alt text
// contains a placeholder keyword.
func IsPlaceholder(c model.MediaCandidate, minW, minH int) bool {
	if c.Dimensions != nil && (minW > 0 || minH > 0) && !c.Dimensions.Meets(minW, minH) {
		return true
	}
	name := c.URL
	if u, err := url.Parse(c.URL); err == nil {
		name = path.Base(u.Path)
	}
	text := extract.Fold(name + " " + c.Alt)
	for _, kw := range PlaceholderKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
