package fetcher

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// ErrInvalidURL marks a candidate whose URL is malformed. Never retried.
var ErrInvalidURL = errors.New("invalid URL")

// ErrTooLarge marks a document over the configured size cap. Never retried.
var ErrTooLarge = errors.New("document exceeds size limit")

// HTTPStatusError reports a non-2xx response from the document host.
type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP status %d", e.Code)
}

// IsTransient reports whether a fetch error is worth retrying: timeouts,
// connection failures, rate limiting, and 5xx responses. Malformed URLs,
// other 4xx responses, and oversized documents are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrTooLarge) {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// classifyMessage renders the error-class prefix recorded in the
// download log so failures are greppable by kind.
func classifyMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL):
		return fmt.Sprintf("InvalidURL: %v", err)
	case errors.Is(err, ErrTooLarge):
		return fmt.Sprintf("FileTooLarge: %v", err)
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("HTTPStatusError{%d}", statusErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("Timeout: %v", err)
	}
	return fmt.Sprintf("NetworkError: %v", err)
}
