package domain

import "errors"

var (
	// ErrClientUnavailable means the platform client is not configured;
	// login cannot even start.
	ErrClientUnavailable = errors.New("platform client unavailable")

	// ErrAuthorizationDenied means the user declined the login dialog or the
	// platform returned no authorization.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrPageFetchFailed means the page list could not be fetched; the cached
	// list is left unchanged.
	ErrPageFetchFailed = errors.New("failed to fetch page list")

	// ErrStatsFetchFailed means the insights fetch returned an error or an
	// empty response; prior stats are left unchanged.
	ErrStatsFetchFailed = errors.New("no data found for searched date range")
)
