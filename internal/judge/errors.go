package judge

import (
	"errors"
	"fmt"
)

var (
	// ErrCatalogEmpty is returned when a listing page yields no problems.
	ErrCatalogEmpty = errors.New("no problems found on listing page")
	// ErrStatusURL is returned for status URLs the paged fetcher cannot split.
	ErrStatusURL = errors.New("unrecognized status URL")
	// ErrTooManyPages is returned when pagination does not end within the page cap.
	ErrTooManyPages = errors.New("status pagination did not end")
)

// AuthError reports a rejected login.
type AuthError struct {
	Status   int
	Location string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login failed (status=%d, location=%q)", e.Status, e.Location)
}

// CatalogParseError reports an unreachable or empty listing page.
type CatalogParseError struct {
	URL string
	Err error
}

func (e *CatalogParseError) Error() string {
	return fmt.Sprintf("failed to read problem list %s: %v", e.URL, e.Err)
}

func (e *CatalogParseError) Unwrap() error {
	return e.Err
}

// FetchError reports a status page that could not be loaded or parsed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
