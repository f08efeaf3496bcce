package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondohub/kondo-scraper/internal/config"
	"github.com/kondohub/kondo-scraper/internal/model"
)

const richJSONLD = `{"@context":"https://schema.org","@type":"Residence",
"name":"Residencial Jardins","description":"Condomínio com apartamentos de 2 e 3 quartos, piscina, academia e lazer completo.",
"address":{"streetAddress":"Rua das Flores, 100","addressLocality":"São Paulo","addressRegion":"SP","bairro":"Moema"},
"offers":{"price":"450000","priceCurrency":"BRL"},"planta":"https://cdn.example.com/planta.jpg","cidade":"São Paulo"}`

func TestManualExtract_Strategies(t *testing.T) {
	m := NewManualExtractor(DefaultWeights(), 0.3)

	tests := []struct {
		name       string
		html       string
		wantOK     bool
		wantSource string
	}{
		{
			name:       "named hydration variable",
			html:       `<script>window.__INITIAL_STATE__ = {"listing":{"name":"Residencial Jardins","descricao":"Condomínio com piscina"}};</script>`,
			wantOK:     true,
			wantSource: "variable:__INITIAL_STATE__",
		},
		{
			name:       "generic data variable",
			html:       `<script>var propertyData = {"quartos": 3, "preco": "R$ 450.000,00"};</script>`,
			wantOK:     true,
			wantSource: "variable:propertyData",
		},
		{
			name:   "json script below minimum",
			html:   `<script type="application/json">{"a":1}</script>`,
			wantOK: false,
		},
		{
			name:       "rich json-ld",
			html:       `<script type="application/ld+json">` + richJSONLD + `</script>`,
			wantOK:     true,
			wantSource: "json-ld",
		},
		{
			name:       "data attribute",
			html:       `<div data-props='{"empreendimento":"Jardins","vagas":2}'></div>`,
			wantOK:     true,
			wantSource: "data-attribute:data-props",
		},
		{
			name:   "javascript literal is not json",
			html:   `<script>window.__NEXT_DATA__ = {props: {page: 1}};</script>`,
			wantOK: false,
		},
		{
			name:   "empty",
			html:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Extract(tt.html)
			assert.Equal(t, tt.wantOK, res.Success)
			assert.Equal(t, model.MethodManual, res.Method)
			if !tt.wantOK {
				assert.Nil(t, res.Data)
				return
			}
			assert.Equal(t, tt.wantSource, res.Source)
			assert.NotEmpty(t, res.Raw)
			assert.Greater(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
		})
	}
}

func TestManualExtract_VariableWinsOverJSONLD(t *testing.T) {
	html := `<script type="application/ld+json">` + richJSONLD + `</script>
<script>window.__APOLLO_STATE__ = {"Property:1":{"name":"Jardins"}};</script>`
	res := NewManualExtractor(DefaultWeights(), 0.3).Extract(html)
	require.True(t, res.Success)
	assert.Equal(t, "variable:__APOLLO_STATE__", res.Source)
}

func TestManualExtract_BracesInsideStrings(t *testing.T) {
	html := `<script>window.__NUXT__ = {"a":"}{ \"quoted\" ]","b":{"c":[1,2]}};var x = 1;</script>`
	res := NewManualExtractor(DefaultWeights(), 0.3).Extract(html)
	require.True(t, res.Success)
	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, `}{ "quoted" ]`, data["a"])
}

func TestManualExtract_NextDataScript(t *testing.T) {
	payload := `{"props":{"pageProps":{"property":{"name":"Jardins","description":"Condomínio com piscina, academia, lazer, área gourmet","address":{"bairro":"Moema","cidade":"São Paulo"},"price":450000,"bedrooms":3,"images":[{"url":"https://cdn.example.com/1.jpg"}]}}}}`
	html := `<script id="__NEXT_DATA__" type="application/json">` + payload + `</script>`
	res := NewManualExtractor(DefaultWeights(), 0.3).Extract(html)
	require.True(t, res.Success)
	assert.Equal(t, "json-script:__NEXT_DATA__", res.Source)
	assert.Greater(t, res.Confidence, 0.3)
}

func TestWeightsScore(t *testing.T) {
	w := DefaultWeights()

	small := w.Score(`{"a":1}`, map[string]any{"a": 1.0})
	rich := w.Score(richJSONLD, map[string]any{"address": map[string]any{"x": map[string]any{"y": 1.0}}})
	assert.Less(t, small, rich)
	assert.LessOrEqual(t, rich, 1.0)

	heavy := Weights{SizeWeight: 1, SizeCap: 1, DepthWeight: 1, DepthCap: 1, KeywordWeight: 1, KeywordCap: 1, Keywords: []string{"a"}}
	assert.InDelta(t, 1.0, heavy.Score(`{"a":{"b":1}}`, map[string]any{"a": map[string]any{"b": 1.0}}), 0.0001)
}

func TestWeightsFromConfig(t *testing.T) {
	w := WeightsFromConfig(config.ConfidenceConfig{SizeWeight: 0.5})
	assert.InDelta(t, 0.5, w.SizeWeight, 0.0001)
	assert.Equal(t, 10000, w.SizeCap)
	assert.Equal(t, 10, w.DepthCap)
	assert.Equal(t, DefaultKeywords, w.Keywords)
}

func TestScanBalanced(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":{"b":[1,2]}} trailing`, `{"a":{"b":[1,2]}}`},
		{`[{"x":"]"}, 2];`, `[{"x":"]"}, 2]`},
		{`{'a': 'it\'s }'}`, `{'a': 'it\'s }'}`},
		{"{`tpl ${x} }`: 1}", "{`tpl ${x} }`: 1}"},
		{`{"open": 1`, ``},
		{`nope`, ``},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scanBalanced(tt.in, 0), tt.in)
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "condominio sao paulo", Fold("Condomínio São Paulo"))
	assert.Equal(t, "salao de festas", Fold("Salão de Festas"))
}
