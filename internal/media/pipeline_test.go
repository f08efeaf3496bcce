package media

import (
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondohub/kondo-scraper/internal/model"
)

func TestPipeline_Run(t *testing.T) {
	pageURL := "https://construtora.example.com/galeria?page=1"
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><a rel="next" href="?page=2">Próxima</a></body></html>`))
	require.NoError(t, err)

	cands := Candidates([]string{
		"https://images.unsplash.com/photo-1.jpg",
		"https://construtora.example.com/wp-content/uploads/2024/05/fachada-300x200.jpg",
		"https://construtora.example.com/wp-content/uploads/2024/05/fachada.jpg",
		"https://construtora.example.com/images/logo.png",
		"//cdn.example.com/galeria/sala.jpg",
	})

	out := NewPipeline(400, 300).Run(cands, doc, pageURL)

	assert.Equal(t, []string{
		"https://construtora.example.com/wp-content/uploads/2024/05/fachada.jpg",
		"https://cdn.example.com/galeria/sala.jpg",
		"https://images.unsplash.com/photo-1.jpg",
	}, URLs(out.Media))
	assert.Equal(t,
		"https://construtora.example.com/wp-content/uploads/2024/05/fachada-300x200.jpg",
		out.Media[0].OriginalURL)
	for i := 1; i < len(out.Media); i++ {
		assert.GreaterOrEqual(t, out.Media[i-1].RelevanceScore, out.Media[i].RelevanceScore)
	}

	require.Len(t, out.Rejected, 2)
	assert.True(t, out.Rejected[0].IsDuplicate)
	assert.True(t, out.Rejected[1].IsPlaceholder)

	require.NotNil(t, out.Pagination)
	assert.True(t, out.Pagination.HasNext)
	assert.Equal(t, "https://construtora.example.com/galeria?page=2", out.Pagination.NextURL)
	assert.Equal(t, "page", out.Pagination.Param)
	assert.Equal(t, 1, out.Pagination.Current)
}

func TestPipeline_NilDocument(t *testing.T) {
	out := NewPipeline(0, 0).Run(Candidates([]string{"https://cdn.example.com/a.jpg"}), nil, "")
	assert.Len(t, out.Media, 1)
	assert.Nil(t, out.Pagination)
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		name string
		c    model.MediaCandidate
		want bool
	}{
		{"logo filename", model.MediaCandidate{URL: "https://x.example.com/img/logo-construtora.png"}, true},
		{"alt text", model.MediaCandidate{URL: "https://x.example.com/img/a.png", Alt: "Carregando... loading"}, true},
		{"too small", model.MediaCandidate{URL: "https://x.example.com/a.jpg", Dimensions: &model.Dimensions{Width: 50, Height: 50}}, true},
		{"large enough", model.MediaCandidate{URL: "https://x.example.com/a.jpg", Dimensions: &model.Dimensions{Width: 800, Height: 600}}, false},
		{"photo", model.MediaCandidate{URL: "https://x.example.com/fotos/piscina.jpg", Alt: "Piscina"}, false},
		{"keyword in directory only", model.MediaCandidate{URL: "https://x.example.com/icons-set/fachada.jpg"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlaceholder(tt.c, 400, 300))
		})
	}
}

func TestDeduper(t *testing.T) {
	d := NewDeduper()
	assert.False(t, d.SeenURL("https://cdn.example.com/a.jpg?w=300"))
	assert.True(t, d.SeenURL("http://CDN.example.com/a.jpg?w=1920#top"))
	assert.True(t, d.SeenURL("https://cdn.example.com/a-300x200.jpg"))
	assert.False(t, d.SeenURL("https://cdn.example.com/a.jpg?id=2"))

	assert.False(t, d.SeenContent([]byte("abc")))
	assert.True(t, d.SeenContent([]byte("abc")))
	assert.False(t, d.SeenContent([]byte("abd")))
}

func TestDeduper_Concurrent(t *testing.T) {
	d := NewDeduper()
	var wg sync.WaitGroup
	var mu sync.Mutex
	fresh := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !d.SeenContent([]byte("same")) {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, fresh)
}

func TestDetectPagination(t *testing.T) {
	html := `<html><body><ul class="pagination">
<li><a href="/empreendimentos?pagina=1">1</a></li>
<li><a href="/empreendimentos?pagina=2">2</a></li>
<li><a href="/empreendimentos?pagina=3">3</a></li>
</ul><a href="/empreendimentos?pagina=2">Próxima ›</a></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	p := DetectPagination(doc, "https://construtora.example.com/empreendimentos?pagina=1")
	require.NotNil(t, p)
	assert.True(t, p.HasNext)
	assert.Equal(t, "https://construtora.example.com/empreendimentos?pagina=2", p.NextURL)
	assert.Equal(t, "pagina", p.Param)
	assert.Equal(t, 1, p.Current)
	assert.Equal(t, []string{
		"https://construtora.example.com/empreendimentos?pagina=2",
		"https://construtora.example.com/empreendimentos?pagina=3",
	}, p.PageURLs)

	plain, err := goquery.NewDocumentFromReader(strings.NewReader(`<p>sem paginação</p>`))
	require.NoError(t, err)
	assert.Nil(t, DetectPagination(plain, "https://construtora.example.com/"))
}
