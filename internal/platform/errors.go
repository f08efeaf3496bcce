package platform

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/kondohub/kondo-scraper/internal/resilience"
)

// ErrorClass distinguishes fetch failures for logging and metrics. The
// scrape pipeline retries all of them alike.
type ErrorClass string

const (
	ClassAuth        ErrorClass = "auth"
	ClassRateLimited ErrorClass = "rate_limited"
	ClassBlocked     ErrorClass = "blocked"
	ClassNetwork     ErrorClass = "network"
	ClassServer      ErrorClass = "server"
	ClassClient      ErrorClass = "client"
)

// ErrExcluded is returned when a URL matches an excluded path pattern.
var ErrExcluded = eris.New("platform: url excluded by path matcher")

// FetchError is a classified provider failure.
type FetchError struct {
	Provider   string
	Class      ErrorClass
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %v", e.Provider, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Class, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ClassifyStatus maps an HTTP status code to an error class.
func ClassifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusPaymentRequired:
		return ClassAuth
	case code == http.StatusTooManyRequests:
		return ClassRateLimited
	case code == http.StatusForbidden:
		return ClassBlocked
	case code >= 500:
		return ClassServer
	default:
		return ClassClient
	}
}

// newStatusError builds a FetchError from an HTTP status. Rate-limited and
// server failures are marked transient.
func newStatusError(provider string, code int, err error) *FetchError {
	if err == nil {
		err = eris.Errorf("unexpected status %d", code)
	}
	if resilience.IsTransientHTTPStatus(code) {
		err = resilience.NewTransientError(err, code)
	}
	return &FetchError{Provider: provider, Class: ClassifyStatus(code), StatusCode: code, Err: err}
}

// newNetworkError wraps a transport failure.
func newNetworkError(provider string, err error) *FetchError {
	return &FetchError{Provider: provider, Class: ClassNetwork, Err: resilience.NewTransientError(err, 0)}
}

// ClassOf returns the class of a FetchError anywhere in err's chain, or ""
// when err carries none.
func ClassOf(err error) ErrorClass {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ""
}
