package model

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Provenance field keys written alongside accepted field updates.
const (
	FieldScrapedRawData              = "scraped_raw_data"
	FieldScrapedDataSource           = "scraped_data_source"
	FieldScrapedExtractionMethod     = "scraped_extraction_method"
	FieldScrapedExtractionConfidence = "scraped_extraction_confidence"
	FieldScrapedAt                   = "scraped_at"
	FieldFeaturedImage               = "featured_image"
)

// Listing is a condominium ("Kondo") record as persisted by the listing store.
type Listing struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	URL           string `json:"url"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Website       string `json:"website"`
	AddressStreet string `json:"address_street"`
	AddressNumber string `json:"address_number"`
	Neighborhood  string `json:"neighborhood"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zip_code"`
	DeliveryDate  string `json:"delivery_date"`

	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	LotAvgPrice float64 `json:"lot_avg_price"`
	LotMinPrice float64 `json:"lot_min_price"`
	LotMaxPrice float64 `json:"lot_max_price"`
	CondoFee    float64 `json:"condo_fee"`
	AreaMin     float64 `json:"area_min"`
	AreaMax     float64 `json:"area_max"`
	Units       int     `json:"units"`
	Floors      int     `json:"floors"`
	Towers      int     `json:"towers"`
	Bedrooms    int     `json:"bedrooms"`
	Parking     int     `json:"parking"`

	HasPool         bool `json:"has_pool"`
	HasGym          bool `json:"has_gym"`
	HasPlayground   bool `json:"has_playground"`
	HasPartyHall    bool `json:"has_party_hall"`
	HasBarbecue     bool `json:"has_barbecue"`
	HasSauna        bool `json:"has_sauna"`
	HasSportsCourt  bool `json:"has_sports_court"`
	HasConcierge    bool `json:"has_concierge"`
	HasCoworking    bool `json:"has_coworking"`
	HasGourmetSpace bool `json:"has_gourmet_space"`
	PetFriendly     bool `json:"pet_friendly"`

	FeaturedImage string `json:"featured_image"`

	ScrapedRawData              json.RawMessage `json:"scraped_raw_data,omitempty"`
	ScrapedDataSource           string          `json:"scraped_data_source"`
	ScrapedExtractionMethod     string          `json:"scraped_extraction_method"`
	ScrapedExtractionConfidence float64         `json:"scraped_extraction_confidence"`
	ScrapedAt                   *time.Time      `json:"scraped_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ColumnKind is the logical type of an updatable listing column.
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindFloat
	KindInt
	KindBool
	KindJSON
	KindTime
)

// listingColumns lists every column a partial update may touch.
var listingColumns = map[string]ColumnKind{
	"name":              KindString,
	"description":       KindString,
	"url":               KindString,
	"type":              KindString,
	"status":            KindString,
	"phone":             KindString,
	"email":             KindString,
	"website":           KindString,
	"address_street":    KindString,
	"address_number":    KindString,
	"neighborhood":      KindString,
	"city":              KindString,
	"state":             KindString,
	"zip_code":          KindString,
	"delivery_date":     KindString,
	"latitude":          KindFloat,
	"longitude":         KindFloat,
	"lot_avg_price":     KindFloat,
	"lot_min_price":     KindFloat,
	"lot_max_price":     KindFloat,
	"condo_fee":         KindFloat,
	"area_min":          KindFloat,
	"area_max":          KindFloat,
	"units":             KindInt,
	"floors":            KindInt,
	"towers":            KindInt,
	"bedrooms":          KindInt,
	"parking":           KindInt,
	"has_pool":          KindBool,
	"has_gym":           KindBool,
	"has_playground":    KindBool,
	"has_party_hall":    KindBool,
	"has_barbecue":      KindBool,
	"has_sauna":         KindBool,
	"has_sports_court":  KindBool,
	"has_concierge":     KindBool,
	"has_coworking":     KindBool,
	"has_gourmet_space": KindBool,
	"pet_friendly":      KindBool,
	FieldFeaturedImage:  KindString,

	FieldScrapedRawData:              KindJSON,
	FieldScrapedDataSource:           KindString,
	FieldScrapedExtractionMethod:     KindString,
	FieldScrapedExtractionConfidence: KindFloat,
	FieldScrapedAt:                   KindTime,
}

// IsUpdatableColumn reports whether key names a column a partial update may write.
func IsUpdatableColumn(key string) bool {
	_, ok := listingColumns[key]
	return ok
}

// KindOf returns the kind of an updatable column.
func KindOf(key string) (ColumnKind, bool) {
	k, ok := listingColumns[key]
	return k, ok
}

// Columns returns every updatable column name, sorted.
func Columns() []string {
	out := make([]string, 0, len(listingColumns))
	for k := range listingColumns {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsProvenanceField reports whether key is one of the scrape provenance columns.
func IsProvenanceField(key string) bool {
	switch key {
	case FieldScrapedRawData, FieldScrapedDataSource, FieldScrapedExtractionMethod,
		FieldScrapedExtractionConfidence, FieldScrapedAt:
		return true
	}
	return false
}

// Fields returns the scrape-mergeable scalar fields keyed by column name.
// Provenance columns are excluded; they are never merge candidates.
func (l *Listing) Fields() map[string]any {
	return map[string]any{
		"name":              l.Name,
		"description":       l.Description,
		"url":               l.URL,
		"type":              l.Type,
		"status":            l.Status,
		"phone":             l.Phone,
		"email":             l.Email,
		"website":           l.Website,
		"address_street":    l.AddressStreet,
		"address_number":    l.AddressNumber,
		"neighborhood":      l.Neighborhood,
		"city":              l.City,
		"state":             l.State,
		"zip_code":          l.ZipCode,
		"delivery_date":     l.DeliveryDate,
		"latitude":          l.Latitude,
		"longitude":         l.Longitude,
		"lot_avg_price":     l.LotAvgPrice,
		"lot_min_price":     l.LotMinPrice,
		"lot_max_price":     l.LotMaxPrice,
		"condo_fee":         l.CondoFee,
		"area_min":          l.AreaMin,
		"area_max":          l.AreaMax,
		"units":             l.Units,
		"floors":            l.Floors,
		"towers":            l.Towers,
		"bedrooms":          l.Bedrooms,
		"parking":           l.Parking,
		"has_pool":          l.HasPool,
		"has_gym":           l.HasGym,
		"has_playground":    l.HasPlayground,
		"has_party_hall":    l.HasPartyHall,
		"has_barbecue":      l.HasBarbecue,
		"has_sauna":         l.HasSauna,
		"has_sports_court":  l.HasSportsCourt,
		"has_concierge":     l.HasConcierge,
		"has_coworking":     l.HasCoworking,
		"has_gourmet_space": l.HasGourmetSpace,
		"pet_friendly":      l.PetFriendly,
		FieldFeaturedImage:  l.FeaturedImage,
	}
}

// Apply writes a partial update onto the listing. Unknown keys and values
// that cannot be converted to the column type return an error and leave
// the listing partially updated up to that key.
func (l *Listing) Apply(updates map[string]any) error {
	for key, v := range updates {
		kind, ok := listingColumns[key]
		if !ok {
			return eris.Errorf("listing: unknown column %q", key)
		}
		if err := l.applyField(key, kind, v); err != nil {
			return eris.Wrapf(err, "listing: apply %s", key)
		}
	}
	return nil
}

func (l *Listing) applyField(key string, kind ColumnKind, v any) error {
	switch kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return eris.Errorf("expected string, got %T", v)
		}
		*l.stringField(key) = s
	case KindFloat:
		f, ok := ToFloat64(v)
		if !ok {
			return eris.Errorf("expected number, got %T", v)
		}
		if key == FieldScrapedExtractionConfidence {
			l.ScrapedExtractionConfidence = f
			return nil
		}
		*l.floatField(key) = f
	case KindInt:
		f, ok := ToFloat64(v)
		if !ok {
			return eris.Errorf("expected number, got %T", v)
		}
		*l.intField(key) = int(math.Round(f))
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return eris.Errorf("expected bool, got %T", v)
		}
		*l.boolField(key) = b
	case KindJSON:
		raw, err := ToRawJSON(v)
		if err != nil {
			return err
		}
		l.ScrapedRawData = raw
	case KindTime:
		t, ok := v.(time.Time)
		if !ok {
			return eris.Errorf("expected time, got %T", v)
		}
		l.ScrapedAt = &t
	}
	return nil
}

func (l *Listing) stringField(key string) *string {
	switch key {
	case "name":
		return &l.Name
	case "description":
		return &l.Description
	case "url":
		return &l.URL
	case "type":
		return &l.Type
	case "status":
		return &l.Status
	case "phone":
		return &l.Phone
	case "email":
		return &l.Email
	case "website":
		return &l.Website
	case "address_street":
		return &l.AddressStreet
	case "address_number":
		return &l.AddressNumber
	case "neighborhood":
		return &l.Neighborhood
	case "city":
		return &l.City
	case "state":
		return &l.State
	case "zip_code":
		return &l.ZipCode
	case "delivery_date":
		return &l.DeliveryDate
	case FieldFeaturedImage:
		return &l.FeaturedImage
	case FieldScrapedDataSource:
		return &l.ScrapedDataSource
	default:
		return &l.ScrapedExtractionMethod
	}
}

func (l *Listing) floatField(key string) *float64 {
	switch key {
	case "latitude":
		return &l.Latitude
	case "longitude":
		return &l.Longitude
	case "lot_avg_price":
		return &l.LotAvgPrice
	case "lot_min_price":
		return &l.LotMinPrice
	case "lot_max_price":
		return &l.LotMaxPrice
	case "condo_fee":
		return &l.CondoFee
	case "area_min":
		return &l.AreaMin
	default:
		return &l.AreaMax
	}
}

func (l *Listing) intField(key string) *int {
	switch key {
	case "units":
		return &l.Units
	case "floors":
		return &l.Floors
	case "towers":
		return &l.Towers
	case "bedrooms":
		return &l.Bedrooms
	default:
		return &l.Parking
	}
}

func (l *Listing) boolField(key string) *bool {
	switch key {
	case "has_pool":
		return &l.HasPool
	case "has_gym":
		return &l.HasGym
	case "has_playground":
		return &l.HasPlayground
	case "has_party_hall":
		return &l.HasPartyHall
	case "has_barbecue":
		return &l.HasBarbecue
	case "has_sauna":
		return &l.HasSauna
	case "has_sports_court":
		return &l.HasSportsCourt
	case "has_concierge":
		return &l.HasConcierge
	case "has_coworking":
		return &l.HasCoworking
	case "has_gourmet_space":
		return &l.HasGourmetSpace
	default:
		return &l.PetFriendly
	}
}

// ToFloat64 converts any numeric representation (including numeric strings
// and json.Number) to float64.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Coerce converts v to the canonical Go type of column key: string, float64,
// int or bool. It reports false for unknown columns and values that do not
// convert.
func Coerce(key string, v any) (any, bool) {
	kind, ok := listingColumns[key]
	if !ok || v == nil {
		return nil, false
	}
	switch kind {
	case KindString:
		switch s := v.(type) {
		case string:
			return strings.TrimSpace(s), true
		case float64, int, int64, json.Number:
			f, _ := ToFloat64(s)
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
	case KindFloat:
		if f, ok := ToFloat64(v); ok {
			return f, true
		}
	case KindInt:
		if f, ok := ToFloat64(v); ok {
			return int(math.Round(f)), true
		}
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
				return parsed, true
			}
		}
	}
	return nil, false
}

// ToRawJSON marshals v unless it already is encoded JSON.
func ToRawJSON(v any) (json.RawMessage, error) {
	switch raw := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return raw, nil
	case []byte:
		return json.RawMessage(raw), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrap(err, "marshal raw data")
		}
		return b, nil
	}
}
