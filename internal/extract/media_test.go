package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://construtora.example.com/empreendimentos/jardins"

func TestStructuredMedia_SourcePaths(t *testing.T) {
	raw := `{"@type":"Residence","image":["https://cdn.example.com/a.jpg","/fotos/b.png"],"photo":[{"contentUrl":"https://cdn.example.com/c.webp"}],"url":"https://construtora.example.com/"}`
	r := Result{Success: true, Source: SourceJSONLD, Raw: []byte(raw), Data: map[string]any{"x": 1.0}}

	got := NewStructuredMediaExtractor().Extract(r, base)
	assert.Equal(t, []string{
		"https://cdn.example.com/a.jpg",
		"https://construtora.example.com/fotos/b.png",
		"https://cdn.example.com/c.webp",
	}, got)
}

func TestStructuredMedia_DeepSearch(t *testing.T) {
	data := map[string]any{
		"gallery": []any{map[string]any{"src": "https://static.wixstatic.com/media/abc~mv2"}},
		"logo":    "https://construtora.example.com/logo.svg",
		"nested":  map[string]any{"deep": map[string]any{"foto": "//cdn.example.com/d.jpg"}},
		"site":    "https://construtora.example.com/contato",
	}
	r := Result{Success: true, Source: "variable:propertyData", Data: data}

	got := NewStructuredMediaExtractor().Extract(r, base)
	assert.Equal(t, []string{
		"https://static.wixstatic.com/media/abc~mv2",
		"https://cdn.example.com/d.jpg",
	}, got)
}

func TestStructuredMedia_CycleAndDepth(t *testing.T) {
	cyclic := map[string]any{"image": "https://cdn.example.com/x.jpg"}
	cyclic["self"] = cyclic
	list := []any{cyclic}
	cyclic["list"] = list

	got := NewStructuredMediaExtractor().Extract(Result{Success: true, Data: cyclic}, base)
	assert.Equal(t, []string{"https://cdn.example.com/x.jpg"}, got)

	var deep any = "https://cdn.example.com/bottom.jpg"
	for i := 0; i < 20; i++ {
		deep = map[string]any{"image": deep}
	}
	e := &StructuredMediaExtractor{MaxDepth: 5}
	assert.Empty(t, e.Extract(Result{Success: true, Data: deep}, base))
}

func TestStructuredMedia_FailedResult(t *testing.T) {
	assert.Nil(t, NewStructuredMediaExtractor().Extract(Result{}, base))
}

const galleryHTML = `<html><head>
<meta property="og:image" content="https://cdn.example.com/og.jpg">
</head><body>
<div class="galeria-empreendimento"><a href="/fotos/fachada-full.jpg"><img src="/fotos/fachada-thumb.jpg" alt="Fachada"></a></div>
<img src="data:image/gif;base64,R0lGOD" data-src="/fotos/piscina.jpg" alt="Piscina">
<img srcset="/fotos/sala-480.jpg 480w, /fotos/sala-1080.jpg 1080w, /fotos/sala-768.jpg 768w" alt="Sala">
<picture><source srcset="/fotos/planta.webp 1x, /fotos/planta@2x.webp 2x"><img src="/fotos/planta.jpg"></picture>
<video poster="/fotos/poster.jpg"><source src="/videos/tour.mp4"></video>
<iframe src="https://www.youtube.com/embed/abcdefghijk"></iframe>
<iframe src="https://maps.google.com/embed?q=x"></iframe>
<div style="background-image: url('/fotos/hero.jpg')"></div>
</body></html>`

func TestHTMLMedia_SelectorPass(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(galleryHTML))
	require.NoError(t, err)

	got := NewHTMLMediaExtractor(".galeria-empreendimento").Extract(doc, base)
	urls := make([]string, 0, len(got))
	for _, c := range got {
		urls = append(urls, c.URL)
	}

	require.GreaterOrEqual(t, len(urls), 2)
	assert.ElementsMatch(t, []string{
		"https://construtora.example.com/fotos/fachada-full.jpg",
		"https://construtora.example.com/fotos/fachada-thumb.jpg",
	}, urls[:2])
	assert.Contains(t, urls, "https://cdn.example.com/og.jpg")
	assert.Contains(t, urls, "https://construtora.example.com/fotos/piscina.jpg")
	assert.Contains(t, urls, "https://construtora.example.com/fotos/sala-1080.jpg")
	assert.Contains(t, urls, "https://construtora.example.com/fotos/planta@2x.webp")
	assert.Contains(t, urls, "https://construtora.example.com/fotos/poster.jpg")
	assert.Contains(t, urls, "https://construtora.example.com/videos/tour.mp4")
	assert.Contains(t, urls, "https://www.youtube.com/embed/abcdefghijk")
	assert.Contains(t, urls, "https://construtora.example.com/fotos/hero.jpg")
	assert.NotContains(t, urls, "https://maps.google.com/embed?q=x")
	assert.NotContains(t, urls, "https://construtora.example.com/fotos/sala-480.jpg")
	for _, u := range urls {
		assert.False(t, strings.HasPrefix(u, "data:"))
	}

	for _, c := range got {
		if c.URL == "https://construtora.example.com/fotos/piscina.jpg" {
			assert.Equal(t, "Piscina", c.Alt)
		}
	}
}

func TestHTMLMedia_CatchAllPass(t *testing.T) {
	html := `<html><body><div id="root"></div>
<script>var state = {"photos":["https:\/\/cdn.example.com\/fotos\/x.jpg","\/\/cdn.example.com\/fotos\/y.png"]};</script>
</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	got := NewHTMLMediaExtractor().Extract(doc, base)
	require.Len(t, got, 2)
	assert.Equal(t, "https://cdn.example.com/fotos/x.jpg", got[0].URL)
	assert.Equal(t, "https://cdn.example.com/fotos/y.png", got[1].URL)
}

func TestPickLargestFromSrcset(t *testing.T) {
	assert.Equal(t, "b.jpg", PickLargestFromSrcset("a.jpg 480w, b.jpg 1080w, c.jpg 768w"))
	assert.Equal(t, "b.jpg", PickLargestFromSrcset("a.jpg 1x, b.jpg 2x"))
	assert.Equal(t, "only.jpg", PickLargestFromSrcset("only.jpg"))
	assert.Empty(t, PickLargestFromSrcset(""))
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"/fotos/a.jpg", "https://construtora.example.com/fotos/a.jpg"},
		{"b.jpg", "https://construtora.example.com/empreendimentos/b.jpg"},
		{"//cdn.example.com/c.jpg", "https://cdn.example.com/c.jpg"},
		{`https:\/\/cdn.example.com\/d.jpg`, "https://cdn.example.com/d.jpg"},
		{"data:image/png;base64,xx", ""},
		{"javascript:void(0)", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveURL(base, tt.ref), tt.ref)
	}
}

func TestLooksLikeMedia(t *testing.T) {
	assert.True(t, LooksLikeMedia("https://cdn.example.com/a.JPG?w=100"))
	assert.True(t, LooksLikeMedia("https://static.wixstatic.com/media/abc~mv2"))
	assert.True(t, LooksLikeMedia("https://youtu.be/abcdefghijk"))
	assert.False(t, LooksLikeMedia("https://construtora.example.com/contato"))
	assert.True(t, IsVideoHost("https://player.vimeo.com/video/1"))
	assert.True(t, IsVideoURL("https://cdn.example.com/tour.mp4"))
}

func TestStructuredMedia_JSONLDGraph(t *testing.T) {
	raw := `{"@context":"https://schema.org","@graph":[{"@type":"WebPage"},{"@type":"Residence","image":"https://cdn.example.com/g.jpg"}]}`
	r := Result{Success: true, Source: SourceJSONLD, Raw: []byte(raw), Data: map[string]any{"x": 1.0}}
	assert.Equal(t, []string{"https://cdn.example.com/g.jpg"}, NewStructuredMediaExtractor().Extract(r, base))
}
