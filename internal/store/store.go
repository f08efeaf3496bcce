// Package store persists listings and their media.
package store

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kondohub/kondo-scraper/internal/config"
	"github.com/kondohub/kondo-scraper/internal/model"
)

// ErrNotFound is returned for unknown listing ids.
var ErrNotFound = eris.New("store: not found")

// ListingFilter specifies criteria for listing listings.
type ListingFilter struct {
	IDs           []int64   `json:"ids,omitempty"`
	WithURL       bool      `json:"with_url,omitempty"`
	ScrapedBefore time.Time `json:"scraped_before,omitempty"` // includes never-scraped listings
	Limit         int       `json:"limit,omitempty"`
	Offset        int       `json:"offset,omitempty"`
}

// Store is the listing and media persistence interface used by the scraper.
type Store interface {
	// Listings
	CreateListing(ctx context.Context, fields map[string]any) (int64, error)
	GetListing(ctx context.Context, id int64) (*model.Listing, error)
	UpdateListing(ctx context.Context, id int64, updates map[string]any) error
	ListListings(ctx context.Context, filter ListingFilter) ([]model.Listing, error)

	// Media
	CreateMedia(ctx context.Context, records []model.MediaRecord) (int, error)
	ListMedia(ctx context.Context, listingID int64) ([]model.MediaRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(ctx, cfg.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}

const defaultListLimit = 100

var mediaColumns = []string{"listing_id", "filename", "storage_url", "source_url", "type", "status", "created_at"}

// listingColumns are the selected columns in scan order.
func listingColumns() []string {
	return append(append([]string{"id"}, model.Columns()...), "created_at", "updated_at")
}

// columnDDL renders the listings column definitions for a dialect.
func columnDDL(types map[model.ColumnKind]string) string {
	var b strings.Builder
	for _, col := range model.Columns() {
		kind, _ := model.KindOf(col)
		b.WriteString(",\n\t")
		b.WriteString(col)
		b.WriteString(" ")
		b.WriteString(types[kind])
	}
	return b.String()
}

// sortedUpdates validates keys and converts values to driver values in
// column order.
func sortedUpdates(updates map[string]any) ([]string, []any, error) {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys))
	for _, k := range keys {
		v, err := dbValue(k, updates[k])
		if err != nil {
			return nil, nil, err
		}
		args = append(args, v)
	}
	return keys, args, nil
}

// dbValue converts v to the driver representation of column key.
func dbValue(key string, v any) (any, error) {
	kind, ok := model.KindOf(key)
	if !ok {
		return nil, eris.Errorf("store: unknown listing column %q", key)
	}
	switch kind {
	case model.KindJSON:
		raw, err := model.ToRawJSON(v)
		if err != nil || raw == nil {
			return nil, err
		}
		return string(raw), nil
	case model.KindTime:
		switch t := v.(type) {
		case nil:
			return nil, nil
		case time.Time:
			return t.UTC(), nil
		case *time.Time:
			if t == nil {
				return nil, nil
			}
			return t.UTC(), nil
		}
		return nil, eris.Errorf("store: %s expects a time, got %T", key, v)
	case model.KindInt:
		c, ok := model.Coerce(key, v)
		if !ok {
			return nil, eris.Errorf("store: %s expects a number, got %T", key, v)
		}
		return int64(c.(int)), nil
	default:
		c, ok := model.Coerce(key, v)
		if !ok {
			return nil, eris.Errorf("store: invalid value %T for %s", v, key)
		}
		return c, nil
	}
}

// loadValue converts a scanned driver value for column key into the form
// Listing.Apply accepts. A nil result means the column is unset.
func loadValue(key string, v any) any {
	if v == nil {
		return nil
	}
	kind, _ := model.KindOf(key)
	switch kind {
	case model.KindString:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
	case model.KindBool:
		switch b := v.(type) {
		case int64:
			return b != 0
		case int32:
			return b != 0
		}
	case model.KindInt:
		if f, ok := model.ToFloat64(v); ok {
			return int(math.Round(f))
		}
	case model.KindJSON:
		switch raw := v.(type) {
		case string:
			return json.RawMessage(raw)
		case []byte:
			return json.RawMessage(append([]byte(nil), raw...))
		}
	case model.KindTime:
		if s, ok := v.(string); ok {
			return parseTime(s)
		}
	}
	return v
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

func parseTime(s string) any {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanListing scans one row selected with listingColumns.
func scanListing(row scannable) (*model.Listing, error) {
	cols := model.Columns()
	var l model.Listing
	vals := make([]any, len(cols))
	dest := make([]any, 0, len(cols)+3)
	dest = append(dest, &l.ID)
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	dest = append(dest, &l.CreatedAt, &l.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(cols))
	for i, col := range cols {
		if v := loadValue(col, vals[i]); v != nil {
			fields[col] = v
		}
	}
	if err := l.Apply(fields); err != nil {
		return nil, eris.Wrapf(err, "store: load listing %d", l.ID)
	}
	return &l, nil
}
