package detect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func richStaticPage() string {
	desc := strings.Repeat("Apartamentos de 2 e 3 dormitórios com lazer completo, piscina e academia. ", 20)
	return `<html><head><title>Residencial Jardins</title></head><body>
<h1>Residencial Jardins</h1><p>` + desc + `</p>
<script>var __INITIAL_STATE__ = {"listing":{"name":"Residencial Jardins"}};</script>
</body></html>`
}

func TestAnalyze(t *testing.T) {
	d := New(500, 0.5)

	tests := []struct {
		name          string
		html          string
		wantSPA       bool
		wantFramework string
		wantRender    bool
		wantEmptyRoot bool
		wantDataVars  bool
	}{
		{
			name:          "empty react root",
			html:          `<html><body><div id="root"></div><script src="/static/js/main.js"></script></body></html>`,
			wantSPA:       true,
			wantFramework: "react",
			wantRender:    true,
			wantEmptyRoot: true,
		},
		{
			name:          "next.js with hydration data",
			html:          `<html><body><div id="__next"><h1>Condomínio</h1></div><script id="__NEXT_DATA__" type="application/json">{"props":{}}</script></body></html>`,
			wantSPA:       true,
			wantFramework: "nextjs",
			wantRender:    true,
			wantDataVars:  true,
		},
		{
			name:         "rich static page with state",
			html:         richStaticPage(),
			wantSPA:      false,
			wantRender:   false,
			wantDataVars: true,
		},
		{
			name:       "thin static page",
			html:       `<html><body><p>Em breve</p></body></html>`,
			wantSPA:    false,
			wantRender: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := d.Analyze(tt.html)
			assert.Equal(t, tt.wantSPA, a.IsSPA, "confidence %.2f indicators %v", a.Confidence, a.Indicators)
			assert.Equal(t, tt.wantFramework, a.Framework)
			assert.Equal(t, tt.wantRender, a.NeedsJSRendering)
			assert.Equal(t, tt.wantEmptyRoot, a.EmptyRoot)
			assert.Equal(t, tt.wantDataVars, a.HasDataVariables)
			assert.LessOrEqual(t, a.Confidence, 1.0)
		})
	}
}

func TestAnalyze_ConfidenceCapped(t *testing.T) {
	html := `<html><body><div id="__next"></div><script>fetch("/api/listings/1")</script>
<script>window.__NEXT_DATA__ = {}</script></body></html>`
	a := New(500, 0.5).Analyze(html)
	assert.InDelta(t, 1.0, a.Confidence, 0.0001)
	assert.True(t, a.HasAPIEndpoints)
	assert.Contains(t, a.Indicators, "api_endpoints")
}

func TestVisibleTextLength_IgnoresScripts(t *testing.T) {
	html := `<html><body><script>var x = "` + strings.Repeat("a", 5000) + `";</script>
<style>.a{color:red}</style><noscript>enable js</noscript><p>  olá   mundo  </p></body></html>`
	assert.Equal(t, len([]rune("olá mundo")), VisibleTextLength(html))
}

func TestHasDataVariables(t *testing.T) {
	tests := []struct {
		html string
		want bool
	}{
		{`<script>window.__NUXT__ = (function(){})()</script>`, true},
		{`<script>const pageData = {"a":1}</script>`, true},
		{`<script type="application/json">{"a":1}</script>`, true},
		{`<script>self.__remixContext = {}</script>`, true},
		{`<p>pageData is a word here</p>`, false},
		{`<script type="application/ld+json">{}</script>`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasDataVariables(tt.html), tt.html)
	}
}

func TestMatchFramework(t *testing.T) {
	assert.Equal(t, "nuxt", MatchFramework(`<div id="__nuxt"></div>`))
	assert.Equal(t, "angular", MatchFramework(`<app-root ng-version="17.0.0"></app-root>`))
	assert.Equal(t, "vue", MatchFramework(`<div data-v-app></div>`))
	assert.Empty(t, MatchFramework(`<html><body>plain</body></html>`))
}

func TestNew_Defaults(t *testing.T) {
	d := New(0, 0)
	assert.Equal(t, 500, d.MinContentLength)
	assert.InDelta(t, 0.5, d.SPAThreshold, 0.0001)
}
