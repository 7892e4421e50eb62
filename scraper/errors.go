package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/alexnv/09-online-library-parser/parser"
)

// ErrNotFound indicates the site redirected instead of serving the
// requested resource, which is how tululu reports unknown ids.
type ErrNotFound struct {
	URL string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("not_found: %s redirected", e.URL)
}

// ErrTransport indicates a network failure or a non-2xx response.
type ErrTransport struct {
	URL        string
	StatusCode int
	Err        error
}

func (e ErrTransport) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s: http status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

func (e ErrTransport) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var notFound ErrNotFound
	return errors.As(err, &notFound)
}

// IsTransient reports whether err is worth retrying after a cooldown.
func IsTransient(err error) bool {
	var transport ErrTransport
	return errors.As(err, &transport)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var malformed parser.ErrMalformedPage
	if errors.As(err, &malformed) {
		return "malformed"
	}
	var transport ErrTransport
	if errors.As(err, &transport) {
		if transport.StatusCode != 0 {
			return "http_status"
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "timeout"
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "timeout"
		}
		return "connection"
	}
	return "other"
}
