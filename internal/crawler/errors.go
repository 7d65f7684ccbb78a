package crawler

import "errors"

// Discovery errors.
// The engine wraps every failure it reports in one of these so that the
// pipeline driver and the CLI can classify runs with errors.Is.
var (
	// ErrAuthenticationFailed is returned when the content surface still
	// shows a login page after the single retry, or when a manual login
	// could not be completed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNavigationFailed is returned when the browser could not load the
	// content surface or lost the page while discovering.
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrDiscoveryTimeout is returned when a browser operation did not
	// finish within the operation timeout. Posts collected before the
	// timeout are still persisted.
	ErrDiscoveryTimeout = errors.New("content surface unresponsive")

	// ErrBrowserUnavailable is returned when the browser could not be
	// started.
	ErrBrowserUnavailable = errors.New("browser unavailable")

	// ErrInvalidState is returned when an engine method is called out of
	// order, for example Discover before Navigate.
	ErrInvalidState = errors.New("invalid engine state")
)
