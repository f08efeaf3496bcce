package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/kondohub/kondo-scraper/internal/db"
	"github.com/kondohub/kondo-scraper/internal/model"
)

// PostgresStore implements Store using a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects a PostgresStore.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var postgresTypes = map[model.ColumnKind]string{
	model.KindString: "TEXT NOT NULL DEFAULT ''",
	model.KindFloat:  "DOUBLE PRECISION NOT NULL DEFAULT 0",
	model.KindInt:    "INTEGER NOT NULL DEFAULT 0",
	model.KindBool:   "BOOLEAN NOT NULL DEFAULT false",
	model.KindJSON:   "JSONB",
	model.KindTime:   "TIMESTAMPTZ",
}

func postgresMigration() string {
	return `
CREATE TABLE IF NOT EXISTS listings (
	id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY` + columnDDL(postgresTypes) + `,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS media (
	id          BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	listing_id  BIGINT NOT NULL REFERENCES listings(id),
	filename    TEXT NOT NULL,
	storage_url TEXT NOT NULL,
	source_url  TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'active',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_listings_scraped_at ON listings(scraped_at);
CREATE INDEX IF NOT EXISTS idx_media_listing_id ON media(listing_id);
`
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration())
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateListing(ctx context.Context, fields map[string]any) (int64, error) {
	keys, args, err := sortedUpdates(fields)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	keys = append(keys, "created_at", "updated_at")
	args = append(args, now, now)

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO listings (`+strings.Join(keys, ", ")+`) VALUES (`+dollarPlaceholders(1, len(keys))+`) RETURNING id`,
		args...,
	).Scan(&id)
	return id, eris.Wrap(err, "postgres: insert listing")
}

func (s *PostgresStore) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+strings.Join(listingColumns(), ", ")+` FROM listings WHERE id = $1`,
		id,
	)
	l, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "listing %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get listing %d", id)
	}
	return l, nil
}

func (s *PostgresStore) UpdateListing(ctx context.Context, id int64, updates map[string]any) error {
	keys, args, err := sortedUpdates(updates)
	if err != nil {
		return err
	}
	sets := make([]string, 0, len(keys)+1)
	for i, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i+1))
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(keys)+1))
	args = append(args, time.Now().UTC(), id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE listings SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update listing %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "listing %d", id)
	}
	return nil
}

func (s *PostgresStore) ListListings(ctx context.Context, filter ListingFilter) ([]model.Listing, error) {
	query := `SELECT ` + strings.Join(listingColumns(), ", ") + ` FROM listings WHERE true`
	args := []any{}
	argIdx := 1

	if len(filter.IDs) > 0 {
		query += fmt.Sprintf(` AND id = ANY($%d)`, argIdx)
		args = append(args, filter.IDs)
		argIdx++
	}
	if filter.WithURL {
		query += ` AND url <> ''`
	}
	if !filter.ScrapedBefore.IsZero() {
		query += fmt.Sprintf(` AND (scraped_at IS NULL OR scraped_at < $%d)`, argIdx)
		args = append(args, filter.ScrapedBefore.UTC())
		argIdx++
	}
	query += ` ORDER BY id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list listings")
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan listing")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list listings iterate")
}

// CreateMedia appends media rows with COPY.
func (s *PostgresStore) CreateMedia(ctx context.Context, records []model.MediaRecord) (int, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, mediaRow(r))
	}
	n, err := db.CopyFrom(ctx, s.pool, "media", mediaColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: create media")
	}
	return int(n), nil
}

func (s *PostgresStore) ListMedia(ctx context.Context, listingID int64) ([]model.MediaRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, `+strings.Join(mediaColumns, ", ")+` FROM media WHERE listing_id = $1 ORDER BY id`,
		listingID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list media %d", listingID)
	}
	defer rows.Close()

	var out []model.MediaRecord
	for rows.Next() {
		var r model.MediaRecord
		var typ string
		if err := rows.Scan(&r.ID, &r.ListingID, &r.Filename, &r.StorageURL, &r.SourceURL, &typ, &r.Status, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan media")
		}
		r.Type = model.MediaType(typ)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list media iterate")
}

func dollarPlaceholders(start, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ps, ", ")
}
