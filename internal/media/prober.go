package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kondohub/kondo-scraper/internal/model"
)

// DefaultProbeBytes covers the headers of every supported format, including
// JPEGs with large EXIF blocks ahead of the frame header.
const DefaultProbeBytes = 64 * 1024

// DimensionProber fetches the first bytes of an image with a ranged GET and
// parses its dimensions.
type DimensionProber struct {
	client    *http.Client
	maxBytes  int
	userAgent string
}

// NewDimensionProber creates a prober. A nil client gets a 15s timeout.
func NewDimensionProber(client *http.Client, maxBytes int, userAgent string) *DimensionProber {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultProbeBytes
	}
	return &DimensionProber{client: client, maxBytes: maxBytes, userAgent: userAgent}
}

// Probe returns the dimensions of the image at rawURL. Unsupported formats
// yield (nil, nil); only transport failures and error statuses are errors.
func (p *DimensionProber) Probe(ctx context.Context, rawURL string) (*model.Dimensions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "probe: create request")
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", p.maxBytes-1))
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "probe: request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, eris.Errorf("probe: unexpected status %d", resp.StatusCode)
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, int64(p.maxBytes)))
	if err != nil {
		return nil, eris.Wrap(err, "probe: read")
	}
	return ParseDimensions(head), nil
}
