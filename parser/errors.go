package parser

import "fmt"

// ErrMalformedPage indicates a page was fetched but lacks a required
// structural anchor.
type ErrMalformedPage struct {
	Anchor string
	Reason string
}

func (e ErrMalformedPage) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("malformed page: missing %s", e.Anchor)
	}
	return fmt.Sprintf("malformed page: %s: %s", e.Anchor, e.Reason)
}
