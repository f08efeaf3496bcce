package platform

import (
	"compress/gzip"
	"io"
	"mime"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// acceptEncoding is advertised by the local provider. Setting it by hand
// turns off net/http's transparent gzip, so decodeBody handles all three.
const acceptEncoding = "gzip, br, zstd"

// decodeBody wraps r with a decompressor for the given Content-Encoding.
// The returned close func releases decoder resources.
func decodeBody(r io.Reader, contentEncoding string) (io.Reader, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		return r, noop, nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, eris.Wrap(err, "local: gzip reader")
		}
		return gz, func() { _ = gz.Close() }, nil
	case "br":
		return brotli.NewReader(r), noop, nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, noop, eris.Wrap(err, "local: zstd reader")
		}
		return zr, zr.Close, nil
	default:
		return nil, noop, eris.Errorf("local: unsupported content encoding %q", contentEncoding)
	}
}

// toUTF8 transcodes body to UTF-8 using the charset parameter of the
// Content-Type header. Unknown or missing charsets leave body unchanged.
func toUTF8(body []byte, contentType string) []byte {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	charset := strings.ToLower(params["charset"])
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return body
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return out
}
