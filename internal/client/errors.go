package client

import (
	"errors"
	"fmt"
)

// BlockedPageError indicates an anti-automation interstitial that survived
// the single bounded re-check.
type BlockedPageError struct {
	URL string
}

func (e BlockedPageError) Error() string {
	return fmt.Sprintf("blocked page: %s", e.URL)
}

// FetchTimeoutError indicates a network fetch that timed out.
type FetchTimeoutError struct {
	URL string
	Err error
}

func (e FetchTimeoutError) Error() string {
	return fmt.Sprintf("fetch timeout: %s: %v", e.URL, e.Err)
}

func (e FetchTimeoutError) Unwrap() error {
	return e.Err
}

// MalformedPageError indicates a page missing every structure the extractor
// knows how to read: no structured data, no title and no fallback heading.
type MalformedPageError struct {
	URL    string
	Reason string
}

func (e MalformedPageError) Error() string {
	return fmt.Sprintf("malformed page: %s: %s", e.URL, e.Reason)
}

// PaginationDesyncError indicates a compatibility sub-table whose pagination
// control reported more pages than it actually served.
type PaginationDesyncError struct {
	Reported int
	Served   int
}

func (e PaginationDesyncError) Error() string {
	return fmt.Sprintf("pagination desync: control reported %d pages, served %d", e.Reported, e.Served)
}

// ErrorLabel maps an error to a stable label for metrics and summaries.
func ErrorLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var blocked BlockedPageError
	if errors.As(err, &blocked) {
		return "blocked_page"
	}
	var timeout FetchTimeoutError
	if errors.As(err, &timeout) {
		return "fetch_timeout"
	}
	var malformed MalformedPageError
	if errors.As(err, &malformed) {
		return "malformed_page"
	}
	var desync PaginationDesyncError
	if errors.As(err, &desync) {
		return "pagination_desync"
	}
	return "other"
}
