package model

import "time"

// ExtractionMethod identifies how a scrape obtained its data.
type ExtractionMethod string

const (
	MethodManual     ExtractionMethod = "manual"
	MethodJSRendered ExtractionMethod = "js-rendered"
)

// ExtractionAttempt is the per-scrape state threaded through the generic
// engine's phases. Its method, source, confidence and raw data end up on the
// listing as provenance fields.
type ExtractionAttempt struct {
	URL           string           `json:"url"`
	Method        ExtractionMethod `json:"method"`
	Source        string           `json:"source,omitempty"`
	Confidence    float64          `json:"confidence"`
	RawData       any              `json:"raw_data,omitempty"`
	HTMLSizeBytes int              `json:"html_size_bytes"`
	Phases        []string         `json:"phases,omitempty"`
	NeedsRender   bool             `json:"needs_render"`
	Framework     string           `json:"framework,omitempty"`
}

// PlatformMetadata describes the fetch provider response behind a scrape.
type PlatformMetadata struct {
	Provider       string  `json:"provider"`
	StatusCode     int     `json:"status_code"`
	ResponseTimeMs int64   `json:"response_time_ms"`
	CostUnits      float64 `json:"cost_units,omitempty"`
	RenderedJS     bool    `json:"rendered_js"`
	// Fetches lists each paid fetch when the scrape needed more than one.
	Fetches []FetchCost `json:"fetches,omitempty"`
}

// FetchCost is what one provider fetch cost.
type FetchCost struct {
	Provider  string  `json:"provider"`
	CostUnits float64 `json:"cost_units"`
}

// Costs returns the cost of every fetch behind the scrape.
func (p PlatformMetadata) Costs() []FetchCost {
	if len(p.Fetches) > 0 {
		return p.Fetches
	}
	return []FetchCost{{Provider: p.Provider, CostUnits: p.CostUnits}}
}

// Pagination is the page-navigation metadata detected on a scraped page.
// It is informational; the pipeline never follows it.
type Pagination struct {
	HasNext  bool     `json:"has_next"`
	NextURL  string   `json:"next_url,omitempty"`
	Param    string   `json:"param,omitempty"`
	Current  int      `json:"current,omitempty"`
	PageURLs []string `json:"page_urls,omitempty"`
}

// ScrapedData is the sparse partial listing produced by one engine run.
type ScrapedData struct {
	URL          string            `json:"url"`
	Engine       string            `json:"engine"`
	Fields       map[string]any    `json:"fields"`
	Medias       []string          `json:"medias"`
	Candidates   []MediaCandidate  `json:"media_candidates,omitempty"`
	Platform     PlatformMetadata  `json:"platform_metadata"`
	Attempt      ExtractionAttempt `json:"attempt"`
	Pagination   *Pagination       `json:"pagination,omitempty"`
	HTMLChecksum string            `json:"html_checksum,omitempty"`
	ScrapedAt    time.Time         `json:"scraped_at"`
}

// FieldRejection records a scraped value the merge declined to apply.
type FieldRejection struct {
	Field          string `json:"field"`
	Reason         string `json:"reason"`
	ExistingValue  any    `json:"existing_value"`
	AttemptedValue any    `json:"attempted_value"`
}

// FieldAcceptance records a scraped value the merge applied.
type FieldAcceptance struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Value  any    `json:"value"`
}

// ProtectMode controls how a protected field may be overwritten.
type ProtectMode string

const (
	ProtectNever        ProtectMode = "never"
	ProtectIfEmpty      ProtectMode = "if-empty"
	ProtectQualityCheck ProtectMode = "quality-check"
)

// Valid reports whether m is a known protection mode.
func (m ProtectMode) Valid() bool {
	switch m {
	case ProtectNever, ProtectIfEmpty, ProtectQualityCheck:
		return true
	}
	return false
}

// ProtectedField pairs a listing column with its protection mode.
type ProtectedField struct {
	Field string      `json:"field" yaml:"field" mapstructure:"field"`
	Mode  ProtectMode `json:"mode" yaml:"mode" mapstructure:"mode"`
}
