package sitecache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondohub/kondo-scraper/internal/config"
)

func TestDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.Construtora.example.com/jardins", "construtora.example.com"},
		{"http://vivareal.com.br:8080/x", "vivareal.com.br"},
		{"not a url", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Domain(tt.in))
		})
	}
}

func TestEntry_Unchanged(t *testing.T) {
	e := &Entry{URL: "https://a.example/x", HTMLChecksum: "abc"}
	assert.True(t, e.Unchanged("https://a.example/x", "abc"))
	assert.False(t, e.Unchanged("https://a.example/y", "abc"))
	assert.False(t, e.Unchanged("https://a.example/x", "def"))
	assert.False(t, e.Unchanged("https://a.example/x", ""))

	var missing *Entry
	assert.False(t, missing.Unchanged("https://a.example/x", "abc"))
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c := NewFileCache(t.TempDir(), time.Hour)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	got, err := c.Get(ctx, "construtora.example.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Put(ctx, "construtora.example.com", Entry{
		URL:          "https://construtora.example.com/jardins",
		HTMLChecksum: "9f2c",
		Engine:       "generic",
		ScrapedAt:    now.Add(-30 * time.Minute),
	}))
	got, err = c.Get(ctx, "construtora.example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "construtora.example.com", got.Domain)
	assert.Equal(t, "9f2c", got.HTMLChecksum)

	require.NoError(t, c.Put(ctx, "construtora.example.com", Entry{HTMLChecksum: "a1b2", ScrapedAt: now}))
	got, err = c.Get(ctx, "construtora.example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1b2", got.HTMLChecksum)

	now = now.Add(2 * time.Hour)
	got, err = c.Get(ctx, "construtora.example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

type fakeRedis struct {
	data map[string]string
	ttl  time.Duration
	err  error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{data: map[string]string{}}
	c := &RedisCache{client: fake, ttl: 24 * time.Hour}

	got, err := c.Get(ctx, "vivareal.com.br")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Put(ctx, "vivareal.com.br", Entry{URL: "https://www.vivareal.com.br/imovel/1", HTMLChecksum: "77"}))
	assert.Equal(t, 24*time.Hour, fake.ttl)

	var stored Entry
	require.NoError(t, json.Unmarshal([]byte(fake.data["kondo:sitecache:vivareal.com.br"]), &stored))
	assert.Equal(t, "vivareal.com.br", stored.Domain)

	got, err = c.Get(ctx, "vivareal.com.br")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "77", got.HTMLChecksum)

	fake.err = errors.New("connection refused")
	_, err = c.Get(ctx, "vivareal.com.br")
	assert.Error(t, err)
	assert.Error(t, c.Put(ctx, "vivareal.com.br", Entry{}))
}

func TestNew(t *testing.T) {
	tests := []struct {
		driver  string
		want    any
		wantErr bool
	}{
		{"file", &FileCache{}, false},
		{"redis", &RedisCache{}, false},
		{"none", NopCache{}, false},
		{"memcached", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			c, err := New(config.CacheConfig{Driver: tt.driver, Dir: t.TempDir(), RedisAddr: "localhost:6379", TTLHours: 1})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, c)
		})
	}
}

func TestNopCache(t *testing.T) {
	var c NopCache
	require.NoError(t, c.Put(context.Background(), "a", Entry{}))
	got, err := c.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}
