// Package scrapingbee provides a client for the ScrapingBee HTML API.
package scrapingbee

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://app.scrapingbee.com/api/v1/"

// Response headers ScrapingBee sets on every successful call.
const (
	headerCost          = "Spb-Cost"
	headerInitialStatus = "Spb-Initial-Status-Code"
	headerResolvedURL   = "Spb-Resolved-Url"
)

// Client defines the ScrapingBee operations.
type Client interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error)
}

// FetchRequest describes a single page fetch.
type FetchRequest struct {
	URL          string
	RenderJS     bool
	PremiumProxy bool
	CountryCode  string
	WaitMs       int
	// Extra is passed through as additional query parameters.
	Extra map[string]string
}

// FetchResponse is the page body plus ScrapingBee's response metadata.
type FetchResponse struct {
	HTML        string
	StatusCode  int
	Cost        float64
	ResolvedURL string
}

// APIError is returned when ScrapingBee responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scrapingbee: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new ScrapingBee client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 90 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Fetch(ctx context.Context, fr FetchRequest) (*FetchResponse, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("url", fr.URL)
	q.Set("render_js", strconv.FormatBool(fr.RenderJS))
	if fr.PremiumProxy {
		q.Set("premium_proxy", "true")
	}
	if fr.CountryCode != "" {
		q.Set("country_code", fr.CountryCode)
	}
	if fr.RenderJS && fr.WaitMs > 0 {
		q.Set("wait", strconv.Itoa(fr.WaitMs))
	}
	for k, v := range fr.Extra {
		q.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrapingbee: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrapingbee: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "scrapingbee: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	out := &FetchResponse{
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		ResolvedURL: resp.Header.Get(headerResolvedURL),
	}
	if v := resp.Header.Get(headerInitialStatus); v != "" {
		if code, convErr := strconv.Atoi(v); convErr == nil {
			out.StatusCode = code
		}
	}
	if v := resp.Header.Get(headerCost); v != "" {
		if cost, convErr := strconv.ParseFloat(v, 64); convErr == nil {
			out.Cost = cost
		}
	}
	if out.ResolvedURL == "" {
		out.ResolvedURL = fr.URL
	}
	return out, nil
}
