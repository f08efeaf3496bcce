package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondohub/kondo-scraper/internal/config"
	"github.com/kondohub/kondo-scraper/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS listings`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateListing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO listings \(name, url, created_at, updated_at\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING id`).
		WithArgs("Vista Sul", "https://vistasul.example", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))

	id, err := s.CreateListing(context.Background(), map[string]any{"url": "https://vistasul.example", "name": "Vista Sul"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetListing_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, .* FROM listings WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetListing(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateListing(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	scrapedAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE listings SET description = \$1, scraped_at = \$2, scraped_raw_data = \$3, updated_at = \$4 WHERE id = \$5`).
		WithArgs("Condomínio clube", scrapedAt, `{"a":1}`, pgxmock.AnyArg(), int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateListing(context.Background(), 9, map[string]any{
		"description":             "Condomínio clube",
		model.FieldScrapedAt:      scrapedAt,
		model.FieldScrapedRawData: map[string]any{"a": 1},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateListing_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE listings SET name = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("x", pgxmock.AnyArg(), int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateListing(context.Background(), 404, map[string]any{"name": "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListListings_ByIDs(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM listings WHERE true AND id = ANY\(\$1\) AND url <> '' ORDER BY id LIMIT \$2`).
		WithArgs([]int64{3, 4}, 100).
		WillReturnRows(pgxmock.NewRows(listingColumns()))

	got, err := s.ListListings(context.Background(), ListingFilter{IDs: []int64{3, 4}, WithURL: true})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateMedia(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"media"}, mediaColumns).WillReturnResult(2)

	n, err := s.CreateMedia(context.Background(), []model.MediaRecord{
		{ListingID: 9, Filename: "a.jpg", StorageURL: "https://cdn.example/9/a.jpg", Type: model.MediaImage},
		{ListingID: 9, Filename: "b.jpg", StorageURL: "https://cdn.example/9/b.jpg", Type: model.MediaImage},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListMedia(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, listing_id, filename, storage_url, source_url, type, status, created_at FROM media WHERE listing_id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "listing_id", "filename", "storage_url", "source_url", "type", "status", "created_at"}).
			AddRow(int64(1), int64(9), "a.jpg", "https://cdn.example/9/a.jpg", "", "image", "active", created))

	got, err := s.ListMedia(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.MediaImage, got[0].Type)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mongo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
