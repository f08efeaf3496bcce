package model

import "time"

// MediaType is the kind of a stored media asset.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaStatus values for persisted media rows.
const (
	MediaStatusActive  = "active"
	MediaStatusPending = "pending"
)

// Dimensions are the true pixel dimensions of an image.
type Dimensions struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format,omitempty"`
}

// Meets reports whether d is at least minW x minH.
func (d *Dimensions) Meets(minW, minH int) bool {
	return d != nil && d.Width >= minW && d.Height >= minH
}

// MediaCandidate is a discovered media URL moving through the media pipeline.
type MediaCandidate struct {
	URL            string      `json:"url"`
	OriginalURL    string      `json:"original_url,omitempty"`
	Alt            string      `json:"alt,omitempty"`
	RelevanceScore float64     `json:"relevance_score"`
	Dimensions     *Dimensions `json:"dimensions,omitempty"`
	IsDuplicate    bool        `json:"is_duplicate"`
	IsPlaceholder  bool        `json:"is_placeholder"`
}

// MediaRecord is a persisted media row attached to a listing.
type MediaRecord struct {
	ID         int64     `json:"id"`
	ListingID  int64     `json:"listing_id"`
	Filename   string    `json:"filename"`
	StorageURL string    `json:"storage_url"`
	SourceURL  string    `json:"source_url"`
	Type       MediaType `json:"type"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
