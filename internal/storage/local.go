package storage

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/extract"
	"github.com/kondohub/kondo-scraper/internal/media"
	"github.com/kondohub/kondo-scraper/internal/model"
)

var videoContentTypes = map[string]string{
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
}

// LocalStore writes media under a directory served at PublicBaseURL, as
// <listingID>/<uuid>.<ext>.
type LocalStore struct {
	Dir           string
	PublicBaseURL string

	client *HTTPClient
	mu     sync.Mutex
	seen   map[int64]*media.Deduper
}

// NewLocalStore creates a LocalStore. A nil client gets default options.
func NewLocalStore(dir, publicBaseURL string, client *HTTPClient) *LocalStore {
	if client == nil {
		client = NewHTTPClient(HTTPOptions{})
	}
	return &LocalStore{
		Dir:           dir,
		PublicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		client:        client,
		seen:          make(map[int64]*media.Deduper),
	}
}

// DownloadAndUpload downloads rawURL, checks it against req and writes it.
// Assets that fail a check, or whose bytes were already stored for the
// listing since its last Forget, are rejected with (nil, nil).
func (s *LocalStore) DownloadAndUpload(ctx context.Context, rawURL string, listingID int64, req Requirements) (*Upload, error) {
	log := zap.L().With(zap.String("url", rawURL), zap.Int64("listing_id", listingID))

	resp, err := s.client.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	limit := int64(req.MaxSizeMB) << 20
	if limit <= 0 {
		limit = 50 << 20
	}
	body, ok, err := drain(resp.Body, limit)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Debug("storage: rejected, larger than max size", zap.Int("max_size_mb", req.MaxSizeMB))
		return nil, nil
	}
	if len(body) < req.MinSizeKB*1024 {
		log.Debug("storage: rejected, smaller than min size", zap.Int("bytes", len(body)))
		return nil, nil
	}

	up := &Upload{Bytes: int64(len(body)), ContentHash: strconv.FormatUint(xxhash.Sum64(body), 16)}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0]))
	if format, isVideo := videoFormat(contentType, rawURL); isVideo {
		up.Type = model.MediaVideo
		up.Format = format
	} else {
		d := media.ParseDimensions(body)
		if d == nil {
			log.Debug("storage: rejected, unrecognized image", zap.String("content_type", contentType))
			return nil, nil
		}
		if !d.Meets(req.MinWidth, req.MinHeight) {
			log.Debug("storage: rejected, below min resolution",
				zap.Int("width", d.Width),
				zap.Int("height", d.Height),
			)
			return nil, nil
		}
		up.Type = model.MediaImage
		up.Format = d.Format
		up.Dimensions = d
	}
	if !req.Supports(up.Format) {
		log.Debug("storage: rejected, unsupported format", zap.String("format", up.Format))
		return nil, nil
	}

	if s.deduper(listingID).SeenContent(body) {
		log.Debug("storage: rejected, duplicate content", zap.String("hash", up.ContentHash))
		return nil, nil
	}

	up.Filename = uuid.New().String() + "." + extension(up.Format)
	rel := path.Join(strconv.FormatInt(listingID, 10), up.Filename)
	dst := filepath.Join(s.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, eris.Wrap(err, "storage: create listing dir")
	}
	if err := os.WriteFile(dst, body, 0o644); err != nil {
		return nil, eris.Wrapf(err, "storage: write %s", dst)
	}

	up.URL = s.PublicBaseURL + "/" + rel
	log.Debug("storage: stored media", zap.String("filename", up.Filename), zap.Int64("bytes", up.Bytes))
	return up, nil
}

// Forget drops the content fingerprints remembered for a listing.
func (s *LocalStore) Forget(listingID int64) {
	s.mu.Lock()
	delete(s.seen, listingID)
	s.mu.Unlock()
}

func (s *LocalStore) deduper(listingID int64) *media.Deduper {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.seen[listingID]
	if !ok {
		d = media.NewDeduper()
		s.seen[listingID] = d
	}
	return d
}

func videoFormat(contentType, rawURL string) (string, bool) {
	if f, ok := videoContentTypes[contentType]; ok {
		return f, true
	}
	if strings.HasPrefix(contentType, "image/") || !extract.IsVideoURL(rawURL) {
		return "", false
	}
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	return strings.TrimPrefix(strings.ToLower(path.Ext(p)), "."), true
}

func extension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
