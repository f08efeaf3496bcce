package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("listing has no url"), false},
		{"explicit", NewTransientError(errors.New("provider overloaded"), 503), true},
		{"wrapped with fmt", fmt.Errorf("fetch: %w", NewTransientError(errors.New("slow down"), 429)), true},
		{"wrapped with eris", eris.Wrap(NewTransientError(errors.New("bad gateway"), 502), "platform: all providers failed"), true},
		{"connection reset", fmt.Errorf("read tcp: %w", syscall.ECONNRESET), true},
		{"connection refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"dns timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"provider deadline", fmt.Errorf("jina: %w", context.DeadlineExceeded), true},
		{"caller canceled", fmt.Errorf("fetch: %w", context.Canceled), false},
		{"canceled transient", NewTransientError(context.Canceled, 0), false},
		{"message only", errors.New("Get \"https://condo.example.com\": TLS handshake timeout"), true},
		{"unexpected eof", errors.New("scrapingbee: unexpected EOF"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 425, 429, 500, 502, 503, 504, 520, 522, 524} {
		assert.True(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 402, 403, 404, 410, 422, 501} {
		assert.False(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
}

func TestTransientError(t *testing.T) {
	inner := errors.New("upstream returned 503")
	te := NewTransientError(inner, 503)

	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "upstream returned 503", te.Error())
	assert.Equal(t, 503, te.StatusCode)
}
