package types

import (
	"errors"
	"net/url"
)

// Location is the navigable location the console reads scope from and writes
// scope back to. The core never owns routing; it only reads the query and asks
// the location to navigate.
type Location interface {
	// Path returns the current route path (e.g. /merchant/products).
	Path() string

	// Query returns a copy of the current query parameters.
	Query() url.Values

	// Navigate replaces the current location.
	Navigate(path string, query url.Values) error
}

// View lifecycle errors.
var (
	ErrViewUnmounted = errors.New("view is unmounted")
	ErrNotConfirmed  = errors.New("delete requires confirmation")
	ErrNoDraft       = errors.New("no draft is open")
	ErrInvalidScope  = errors.New("invalid scope selection")
	ErrValidation    = errors.New("validation failed")
)
