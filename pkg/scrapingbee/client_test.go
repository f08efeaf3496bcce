package scrapingbee

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Equal(t, "https://condo.example.com/", q.Get("url"))
		assert.Equal(t, "true", q.Get("render_js"))
		assert.Equal(t, "true", q.Get("premium_proxy"))
		assert.Equal(t, "br", q.Get("country_code"))
		assert.Equal(t, "3000", q.Get("wait"))
		assert.Equal(t, "true", q.Get("block_ads"))

		w.Header().Set("Spb-Cost", "25")
		w.Header().Set("Spb-Initial-Status-Code", "200")
		w.Header().Set("Spb-Resolved-Url", "https://condo.example.com/home")
		_, _ = w.Write([]byte("<html>rendered</html>"))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL+"/"))
	resp, err := c.Fetch(context.Background(), FetchRequest{
		URL:          "https://condo.example.com/",
		RenderJS:     true,
		PremiumProxy: true,
		CountryCode:  "br",
		WaitMs:       3000,
		Extra:        map[string]string{"block_ads": "true"},
	})

	require.NoError(t, err)
	assert.Equal(t, "<html>rendered</html>", resp.HTML)
	assert.Equal(t, 200, resp.StatusCode)
	assert.InDelta(t, 25.0, resp.Cost, 0.001)
	assert.Equal(t, "https://condo.example.com/home", resp.ResolvedURL)
}

func TestFetch_StaticOmitsWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "false", q.Get("render_js"))
		assert.Empty(t, q.Get("wait"))
		assert.Empty(t, q.Get("premium_proxy"))
		_, _ = w.Write([]byte("<html>static</html>"))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL+"/"))
	resp, err := c.Fetch(context.Background(), FetchRequest{URL: "https://a.example", WaitMs: 5000})
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", resp.ResolvedURL)
	assert.Zero(t, resp.Cost)
}

func TestFetch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid api key"}`))
	}))
	defer srv.Close()

	c := NewClient("bad", WithBaseURL(srv.URL+"/"))
	_, err := c.Fetch(context.Background(), FetchRequest{URL: "https://a.example"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "Invalid api key")
}
