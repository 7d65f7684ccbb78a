package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate and Settings.Validate so
// callers can use errors.Is to tell them apart.
var (
	// ErrNoTarget is returned when no surface name or URL is given.
	ErrNoTarget = errors.New("no target specified: provide a surface name or URL")

	// ErrUnknownSurface is returned when a target is neither a URL nor a
	// surface defined in the configuration file.
	ErrUnknownSurface = errors.New("unknown surface")

	// ErrUnknownProfile is returned when a surface or flag names a profile
	// that is neither built in nor defined in the configuration file.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrInvalidURL is returned when a surface URL is not an absolute
	// http or https URL.
	ErrInvalidURL = errors.New("invalid surface URL: must be an absolute http or https URL")

	// ErrInvalidIterations is returned when the scroll pass count is not positive.
	ErrInvalidIterations = errors.New("invalid iterations: must be positive")

	// ErrInvalidMinTextLength is returned when the minimum text length is negative.
	ErrInvalidMinTextLength = errors.New("invalid minimum text length: must be non-negative")

	// ErrInvalidExcerptLength is returned when the excerpt length is negative.
	// Zero keeps the whole post.
	ErrInvalidExcerptLength = errors.New("invalid excerpt length: must be non-negative")

	// ErrInvalidDelay is returned when a delay is negative or the maximum
	// delay is below the minimum.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative with max >= min")

	// ErrInvalidScroll is returned when a scroll distance is negative or the
	// maximum is below the minimum. A maximum of zero scrolls to the bottom.
	ErrInvalidScroll = errors.New("invalid scroll distance: must be non-negative with max >= min")

	// ErrInvalidTimeout is returned when the operation timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidSchedule is returned when --schedule is not a cron expression.
	ErrInvalidSchedule = errors.New("invalid schedule: must be a cron expression")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one stdout format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
