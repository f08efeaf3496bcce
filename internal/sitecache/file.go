package sitecache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
)

var unsafeNameRe = regexp.MustCompile(`[^a-z0-9._-]+`)

// FileCache keeps one JSON file per domain under Dir.
type FileCache struct {
	Dir string
	TTL time.Duration

	now func() time.Time
}

// NewFileCache creates a FileCache. A zero ttl keeps entries forever.
func NewFileCache(dir string, ttl time.Duration) *FileCache {
	return &FileCache{Dir: dir, TTL: ttl, now: time.Now}
}

func (c *FileCache) path(domain string) string {
	return filepath.Join(c.Dir, unsafeNameRe.ReplaceAllString(domain, "_")+".json")
}

func (c *FileCache) Get(_ context.Context, domain string) (*Entry, error) {
	data, err := os.ReadFile(c.path(domain))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sitecache: read %s", domain)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, eris.Wrapf(err, "sitecache: decode %s", domain)
	}
	if expired(&e, c.TTL, c.now()) {
		return nil, nil
	}
	return &e, nil
}

// Put overwrites the domain's entry through a temp file and rename.
func (c *FileCache) Put(_ context.Context, domain string, e Entry) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return eris.Wrap(err, "sitecache: create dir")
	}
	e.Domain = domain
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return eris.Wrap(err, "sitecache: encode entry")
	}
	dst := c.path(domain)
	tmp, err := os.CreateTemp(c.Dir, ".entry-*")
	if err != nil {
		return eris.Wrap(err, "sitecache: create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return eris.Wrap(err, "sitecache: write entry")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return eris.Wrap(err, "sitecache: close entry")
	}
	return eris.Wrapf(os.Rename(tmp.Name(), dst), "sitecache: replace %s", dst)
}
