package platform

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kondohub/kondo-scraper/internal/model"
)

const defaultMaxBodyBytes = 5 * 1024 * 1024

// LocalProvider fetches HTML via net/http. Free, static only; it cannot
// render, so the chain skips it for rendered fetches.
type LocalProvider struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewLocalProvider creates a LocalProvider with sensible defaults.
func NewLocalProvider(userAgent string, maxBodyBytes int64) *LocalProvider {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; KondoBot/1.0)"
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &LocalProvider{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
	}
}

// Name implements Provider.
func (l *LocalProvider) Name() string { return "local" }

// SupportsRendering implements Provider.
func (l *LocalProvider) SupportsRendering() bool { return false }

// FetchHTML fetches a URL, decodes the body and checks for bot blocks.
func (l *LocalProvider) FetchHTML(ctx context.Context, targetURL string, opts Options) (*Page, error) {
	if opts.RenderJS {
		return nil, &FetchError{Provider: l.Name(), Class: ClassClient, Err: eris.New("rendering not supported")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.6")
	req.Header.Set("Accept-Encoding", acceptEncoding)

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, newNetworkError(l.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	reader, closeReader, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, &FetchError{Provider: l.Name(), Class: ClassClient, StatusCode: resp.StatusCode, Err: err}
	}
	defer closeReader()

	body, err := io.ReadAll(io.LimitReader(reader, l.maxBodyBytes))
	if err != nil {
		return nil, newNetworkError(l.Name(), eris.Wrap(err, "read body"))
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, &FetchError{
			Provider:   l.Name(),
			Class:      ClassBlocked,
			StatusCode: resp.StatusCode,
			Err:        eris.Errorf("blocked (%s)", blockType),
		}
	}
	if resp.StatusCode >= 400 {
		return nil, newStatusError(l.Name(), resp.StatusCode, nil)
	}

	return &Page{
		URL:      targetURL,
		FinalURL: resp.Request.URL.String(),
		HTML:     string(toUTF8(body, resp.Header.Get("Content-Type"))),
		Metadata: model.PlatformMetadata{
			Provider:       l.Name(),
			StatusCode:     resp.StatusCode,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			RenderedJS:     false,
		},
	}, nil
}

// HeadETag issues a HEAD request and returns the ETag and Last-Modified
// headers. Used by the change cache to skip unchanged sites.
func (l *LocalProvider) HeadETag(ctx context.Context, targetURL string) (etag, lastModified string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, targetURL, nil)
	if err != nil {
		return "", "", eris.Wrap(err, "local: create head request")
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", "", newNetworkError(l.Name(), err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", "", newStatusError(l.Name(), resp.StatusCode, nil)
	}
	return resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), nil
}
