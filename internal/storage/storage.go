// Package storage downloads accepted media and writes it to object storage.
package storage

import (
	"context"
	"strings"

	"github.com/kondohub/kondo-scraper/internal/config"
	"github.com/kondohub/kondo-scraper/internal/model"
)

// Requirements a downloaded asset must meet before it is stored.
type Requirements struct {
	MinSizeKB        int
	MaxSizeMB        int
	MinWidth         int
	MinHeight        int
	SupportedFormats []string
}

// RequirementsFromConfig builds Requirements from media config.
func RequirementsFromConfig(cfg config.MediaConfig) Requirements {
	return Requirements{
		MinSizeKB:        cfg.MinSizeKB,
		MaxSizeMB:        cfg.MaxSizeMB,
		MinWidth:         cfg.MinWidth,
		MinHeight:        cfg.MinHeight,
		SupportedFormats: cfg.SupportedFormats,
	}
}

// Supports reports whether format is allowed. An empty list allows all.
func (r Requirements) Supports(format string) bool {
	if len(r.SupportedFormats) == 0 {
		return true
	}
	format = strings.ToLower(format)
	for _, f := range r.SupportedFormats {
		f = strings.ToLower(f)
		if f == format || (f == "jpg" && format == "jpeg") || (f == "jpeg" && format == "jpg") {
			return true
		}
	}
	return false
}

// Upload describes a stored asset.
type Upload struct {
	Filename    string            `json:"filename"`
	URL         string            `json:"url"`
	Type        model.MediaType   `json:"type"`
	Format      string            `json:"format"`
	Bytes       int64             `json:"bytes"`
	Dimensions  *model.Dimensions `json:"dimensions,omitempty"`
	ContentHash string            `json:"content_hash"`
}

// Downloader fetches a media URL and stores it for a listing. A nil Upload
// with a nil error means the asset was rejected and no media record should
// be created.
type Downloader interface {
	DownloadAndUpload(ctx context.Context, url string, listingID int64, req Requirements) (*Upload, error)
}

// Forgetter is implemented by downloaders that remember per-listing content
// fingerprints. Callers forget a listing once its scrape has finished with
// its media.
type Forgetter interface {
	Forget(listingID int64)
}
