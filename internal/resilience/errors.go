package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks a fetch failure worth re-running later: a rate limit,
// a provider outage or a dropped connection.
type TransientError struct {
	Err        error
	StatusCode int
}

// NewTransientError wraps err as transient. statusCode is 0 for transport
// failures.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// transientStatus lists the HTTP statuses a provider may answer differently
// on a later request.
var transientStatus = map[int]bool{
	408: true,
	425: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
	520: true,
	522: true,
	524: true,
}

// IsTransientHTTPStatus reports whether code is worth retrying.
func IsTransientHTTPStatus(code int) bool {
	return transientStatus[code]
}

// transportFailures are substrings of wrapped net/http errors that lose their
// typed cause on the way up.
var transportFailures = []string{
	"connection reset by peer",
	"broken pipe",
	"no such host",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err is a TransientError, a network timeout, a
// refused or reset connection, or a provider deadline. Caller cancellation is
// never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range transportFailures {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// ClassifyError labels an error for batch summaries: "transient" for errors
// worth re-running later, "permanent" otherwise.
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
