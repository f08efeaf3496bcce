package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/kondohub/kondo-scraper/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

var sqliteTypes = map[model.ColumnKind]string{
	model.KindString: "TEXT NOT NULL DEFAULT ''",
	model.KindFloat:  "REAL NOT NULL DEFAULT 0",
	model.KindInt:    "INTEGER NOT NULL DEFAULT 0",
	model.KindBool:   "BOOLEAN NOT NULL DEFAULT 0",
	model.KindJSON:   "TEXT",
	model.KindTime:   "DATETIME",
}

func sqliteMigration() string {
	return `
CREATE TABLE IF NOT EXISTS listings (
	id INTEGER PRIMARY KEY AUTOINCREMENT` + columnDDL(sqliteTypes) + `,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS media (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	listing_id  INTEGER NOT NULL REFERENCES listings(id),
	filename    TEXT NOT NULL,
	storage_url TEXT NOT NULL,
	source_url  TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'active',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_listings_scraped_at ON listings(scraped_at);
CREATE INDEX IF NOT EXISTS idx_media_listing_id ON media(listing_id);
`
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration())
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateListing(ctx context.Context, fields map[string]any) (int64, error) {
	keys, args, err := sortedUpdates(fields)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	keys = append(keys, "created_at", "updated_at")
	args = append(args, now, now)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO listings (`+strings.Join(keys, ", ")+`) VALUES (`+placeholders(len(keys))+`)`,
		args...,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert listing")
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: last insert id")
}

func (s *SQLiteStore) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+strings.Join(listingColumns(), ", ")+` FROM listings WHERE id = ?`,
		id,
	)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "listing %d", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get listing %d", id)
	}
	return l, nil
}

func (s *SQLiteStore) UpdateListing(ctx context.Context, id int64, updates map[string]any) error {
	keys, args, err := sortedUpdates(updates)
	if err != nil {
		return err
	}
	sets := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		sets = append(sets, k+" = ?")
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update listing %d", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) ListListings(ctx context.Context, filter ListingFilter) ([]model.Listing, error) {
	query := `SELECT ` + strings.Join(listingColumns(), ", ") + ` FROM listings WHERE 1=1`
	var args []any

	if len(filter.IDs) > 0 {
		query += ` AND id IN (` + placeholders(len(filter.IDs)) + `)`
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.WithURL {
		query += ` AND url <> ''`
	}
	if !filter.ScrapedBefore.IsZero() {
		query += ` AND (scraped_at IS NULL OR scraped_at < ?)`
		args = append(args, filter.ScrapedBefore.UTC())
	}
	query += ` ORDER BY id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list listings")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan listing")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list listings iterate")
}

func (s *SQLiteStore) CreateMedia(ctx context.Context, records []model.MediaRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin media tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO media (`+strings.Join(mediaColumns, ", ")+`) VALUES (`+placeholders(len(mediaColumns))+`)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare media insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, mediaRow(r)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert media for listing %d", r.ListingID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit media")
	}
	return len(records), nil
}

func (s *SQLiteStore) ListMedia(ctx context.Context, listingID int64) ([]model.MediaRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, `+strings.Join(mediaColumns, ", ")+` FROM media WHERE listing_id = ? ORDER BY id`,
		listingID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list media %d", listingID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.MediaRecord
	for rows.Next() {
		var r model.MediaRecord
		if err := rows.Scan(&r.ID, &r.ListingID, &r.Filename, &r.StorageURL, &r.SourceURL, &r.Type, &r.Status, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan media")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list media iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "listing %d", id)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func mediaRow(r model.MediaRecord) []any {
	status := r.Status
	if status == "" {
		status = model.MediaStatusActive
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return []any{r.ListingID, r.Filename, r.StorageURL, r.SourceURL, string(r.Type), status, created.UTC()}
}
