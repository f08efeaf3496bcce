package jina

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_Success(t *testing.T) {
	t.Parallel()

	want := ReadResponse{
		Code: 200,
		Data: ReadData{
			Title: "Residencial Jardins",
			URL:   "https://condo.example.com",
			HTML:  "<html><body><h1>Residencial Jardins</h1></body></html>",
			Usage: ReadUsage{Tokens: 2150},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "html", r.Header.Get("X-Return-Format"))
		assert.Equal(t, "browser", r.Header.Get("X-Engine"))
		assert.Equal(t, "pt-BR", r.Header.Get("X-Locale"))
		assert.Equal(t, "30", r.Header.Get("X-Timeout"))
		assert.Equal(t, "/https://condo.example.com", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.Read(context.Background(), "https://condo.example.com", ReadOptions{
		Browser:     true,
		Locale:      "pt-BR",
		TimeoutSecs: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, want.Data.HTML, got.Data.Body())
	assert.Equal(t, 2150, got.Data.Usage.Tokens)
}

func TestRead_DirectEngineWithoutKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "direct", r.Header.Get("X-Engine"))
		assert.Equal(t, "http://proxy.local:8080", r.Header.Get("X-Proxy-Url"))
		_, _ = w.Write([]byte(`{"code":200,"data":{"content":"<p>fallback</p>"}}`))
	}))
	defer srv.Close()

	client := NewClient("", WithBaseURL(srv.URL))
	got, err := client.Read(context.Background(), "https://condo.example.com", ReadOptions{ProxyURL: "http://proxy.local:8080"})

	require.NoError(t, err)
	assert.Equal(t, "<p>fallback</p>", got.Data.Body())
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad key"}`, 401},
		{"server error", http.StatusBadGateway, `bad gateway`, 502},
		{"malformed body", http.StatusOK, `{`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("k", WithBaseURL(srv.URL))
			_, err := client.Read(context.Background(), "https://condo.example.com", ReadOptions{})
			require.Error(t, err)

			var apiErr *APIError
			if tt.wantStatus == 0 {
				assert.False(t, errors.As(err, &apiErr))
				return
			}
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
		})
	}
}
