package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const propertyHost = "construtora.example.com"

func TestScore_VideoHostsAreZero(t *testing.T) {
	for _, u := range []string{
		"https://www.youtube.com/embed/abcdefghijk",
		"https://youtu.be/abcdefghijk",
		"https://player.vimeo.com/video/123",
	} {
		assert.Zero(t, Score(u, propertyHost), u)
	}
}

func TestScore_KeywordsAndDomains(t *testing.T) {
	pool := Score("https://construtora.example.com/fotos/piscina.jpg", propertyHost)
	logo := Score("https://construtora.example.com/images/logo.png", propertyHost)
	stock := Score("https://images.unsplash.com/photo-1.jpg", propertyHost)
	unknown := Score("https://outro-site.example.org/photo-1.jpg", propertyHost)
	svg := Score("https://construtora.example.com/fotos/piscina.svg", propertyHost)

	assert.InDelta(t, 1.0, pool, 0.0001)
	assert.Greater(t, pool-logo, 0.2)
	assert.Less(t, stock, unknown)
	assert.Less(t, svg, pool)
}

func TestScore_Bounds(t *testing.T) {
	long := "https://tracker.example.net/pixel/logo/icon/avatar/sprite.gif?a=1&b=2&c=3&d=4&e=5&f=6"
	s := Score(long, "")
	assert.GreaterOrEqual(t, s, 0.0)
	assert.LessOrEqual(t, s, 1.0)
	assert.Zero(t, Score("://bad url", ""))
}
