package engine

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondohub/kondo-scraper/internal/platform"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestGenericParser_Microdata(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<div itemscope itemtype="https://schema.org/Residence">
  <h2 itemprop="name">Residencial Jardins</h2>
  <div itemprop="address" itemscope>
    <span itemprop="streetAddress">Rua das Flores, 100</span>
    <span itemprop="addressLocality">Campinas</span>
    <span itemprop="addressRegion">SP</span>
  </div>
  <meta itemprop="latitude" content="-22.9056">
  <meta itemprop="longitude" content="-47,0608">
  <span itemprop="price" content="450000">R$ 450 mil</span>
</div></body></html>`)

	fields := NewGenericParser().Parse(doc, &platform.Page{URL: listingURL})

	assert.Equal(t, "Residencial Jardins", fields["name"])
	assert.Equal(t, "Rua das Flores, 100", fields["address_street"])
	assert.Equal(t, "Campinas", fields["city"])
	assert.Equal(t, "SP", fields["state"])
	assert.InDelta(t, -22.9056, fields["latitude"], 1e-9)
	assert.InDelta(t, -47.0608, fields["longitude"], 1e-9)
	assert.InDelta(t, 450000.0, fields["lot_avg_price"], 0.01)
}

func TestParseCommon(t *testing.T) {
	doc := mustDoc(t, `<html><head>
<title>Residencial Jardins | Construtora Exemplo</title>
<meta property="og:description" content="Lançamento em Campinas">
</head><body><main>
<p>Curto.</p>
<p>`+strings.Repeat("Apartamentos amplos com varanda gourmet e vista definitiva. ", 5)+`</p>
<p>Unidades de 2 e 3 dormitórios, de 68 m² a 95,5 m², com 1 ou 2 vagas.
Valores de R$ 420.000,00 até R$ 610.000,00. Condomínio estimado: R$ 650,00.
120 unidades em 2 torres de 15 andares. CEP 13010-100.</p>
<a href="mailto:vendas@construtora.example.com?subject=Jardins">Contato</a>
<a href="tel:1932320000">Telefone</a>
<iframe src="https://www.google.com/maps/embed?q=-22.9056,-47.0608"></iframe>
</main></body></html>`)

	fields := map[string]any{"name": "Já definido"}
	parseCommon(doc, fields)

	assert.Equal(t, "Já definido", fields["name"])
	assert.True(t, strings.HasPrefix(fields["description"].(string), "Apartamentos amplos"))
	assert.Equal(t, 420000.0, fields["lot_min_price"])
	assert.Equal(t, 610000.0, fields["lot_max_price"])
	assert.Equal(t, 515000.0, fields["lot_avg_price"])
	assert.Equal(t, 650.0, fields["condo_fee"])
	assert.Equal(t, 68.0, fields["area_min"])
	assert.Equal(t, 95.5, fields["area_max"])
	assert.Equal(t, 3, fields["bedrooms"])
	assert.Equal(t, 2, fields["parking"])
	assert.Equal(t, 120, fields["units"])
	assert.Equal(t, 2, fields["towers"])
	assert.Equal(t, 15, fields["floors"])
	assert.Equal(t, "13010-100", fields["zip_code"])
	assert.Equal(t, "vendas@construtora.example.com", fields["email"])
	assert.Equal(t, "1932320000", fields["phone"])
	assert.Equal(t, -22.9056, fields["latitude"])
	assert.Equal(t, -47.0608, fields["longitude"])
}

func TestTrimSiteSuffix(t *testing.T) {
	assert.Equal(t, "Residencial Jardins", trimSiteSuffix("Residencial Jardins | Construtora"))
	assert.Equal(t, "Jardins", trimSiteSuffix("Jardins - Lançamento"))
	assert.Equal(t, "Jardins", trimSiteSuffix("Jardins"))
}

const zapNextData = `<html><body><script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"initialProps":{"listing":{
  "title":"Apartamento com 3 quartos em Pinheiros",
  "description":"Apartamento reformado próximo ao metrô.",
  "address":{"street":"Rua dos Pinheiros","streetNumber":"870","neighborhood":"Pinheiros","city":"São Paulo",
    "stateAcronym":"SP","zipCode":"05422-001","point":{"lat":-23.5629,"lon":-46.6835}},
  "pricingInfos":[{"price":"1250000","monthlyCondoFee":"1450"}],
  "usableAreas":[98,120],"bedrooms":[2,3],"parkingSpaces":[2],
  "amenities":["POOL","GYM","PETS_ALLOWED","ELEVATOR"],
  "medias":[{"url":"https://resizedimgs.zapimoveis.com.br/{action}/{width}x{height}/named.images.sp/abc/sala.jpg","type":"IMAGE"},
            {"url":"https://resizedimgs.zapimoveis.com.br/{action}/{width}x{height}/named.images.sp/abc/sala.jpg","type":"IMAGE"}]
}}}}}
</script></body></html>`

func TestGrupoZapParser(t *testing.T) {
	doc := mustDoc(t, zapNextData)
	page := &platform.Page{URL: "https://www.zapimoveis.com.br/imovel/venda-apartamento-3-quartos-pinheiros-id-1/"}
	p := GrupoZapParser{}

	fields := p.Parse(doc, page)
	assert.Equal(t, "Apartamento com 3 quartos em Pinheiros", fields["name"])
	assert.Equal(t, "870", fields["address_number"])
	assert.Equal(t, "SP", fields["state"])
	assert.Equal(t, -23.5629, fields["latitude"])
	assert.Equal(t, -46.6835, fields["longitude"])
	assert.Equal(t, 1250000.0, fields["lot_avg_price"])
	assert.Equal(t, 1450.0, fields["condo_fee"])
	assert.Equal(t, 98.0, fields["area_min"])
	assert.Equal(t, 120.0, fields["area_max"])
	assert.Equal(t, 3, fields["bedrooms"])
	assert.Equal(t, 2, fields["parking"])
	assert.Equal(t, true, fields["has_pool"])
	assert.Equal(t, true, fields["has_gym"])
	assert.Equal(t, true, fields["pet_friendly"])

	urls := p.ParseMedia(doc, page)
	assert.Equal(t, []string{"https://resizedimgs.zapimoveis.com.br/fit-in/1920x1080/named.images.sp/abc/sala.jpg"}, urls)
}

func TestGrupoZapParser_NoPayload(t *testing.T) {
	doc := mustDoc(t, `<html><body><h1>Imóvel</h1></body></html>`)
	assert.Empty(t, GrupoZapParser{}.Parse(doc, &platform.Page{}))
	assert.Nil(t, GrupoZapParser{}.ParseMedia(doc, &platform.Page{}))
}

func TestNextJSParser(t *testing.T) {
	doc := mustDoc(t, `<html><body><div id="__next"></div>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"property":{"nome":"Vila Verde","bairro":"Centro","quartos":"2","precoMedio":"R$ 380.000,00"}}}}
</script></body></html>`)

	fields := NextJSParser{}.Parse(doc, &platform.Page{})
	assert.Equal(t, "Vila Verde", fields["name"])
	assert.Equal(t, "Centro", fields["neighborhood"])
	assert.Equal(t, 2, fields["bedrooms"])
	assert.Equal(t, 380000.0, fields["lot_avg_price"])
}

func TestWixAndWordPressParsers(t *testing.T) {
	long := strings.Repeat("Viva com conforto e segurança em um condomínio completo. ", 3)

	wix := mustDoc(t, `<html><body><div data-testid="richTextElement"><h1>Reserva Wix</h1><p>`+long+`</p></div></body></html>`)
	fields := WixParser{}.Parse(wix, &platform.Page{})
	assert.Equal(t, "Reserva Wix", fields["name"])
	assert.Equal(t, strings.TrimSpace(long), fields["description"])

	wp := mustDoc(t, `<html><body><h1 class="entry-title">Parque WP</h1><div class="entry-content"><p>`+long+`</p></div></body></html>`)
	fields = WordPressParser{}.Parse(wp, &platform.Page{})
	assert.Equal(t, "Parque WP", fields["name"])
	assert.Equal(t, strings.TrimSpace(long), fields["description"])
}
