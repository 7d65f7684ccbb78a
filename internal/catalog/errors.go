package catalog

import "errors"

var (
	// ErrUnexpectedStatus is returned for non-2xx storefront responses.
	ErrUnexpectedStatus = errors.New("unexpected storefront response")

	// ErrTooManyPages is returned when a collection does not end within
	// the page limit.
	ErrTooManyPages = errors.New("collection exceeds page limit")
)
