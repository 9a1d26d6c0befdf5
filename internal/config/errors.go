package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoEAN is returned when no identifier is specified.
	ErrNoEAN = errors.New("no EAN specified: provide at least one barcode number")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetries is returned when the retry count is not positive.
	// At least one attempt is required for any request to happen at all.
	ErrInvalidRetries = errors.New("invalid retries: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	// Zero workers would mean no searching.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidLimit is returned when a per-source result cap is not positive.
	ErrInvalidLimit = errors.New("invalid result limit: max-results and max-snapshots must be positive")

	// ErrInvalidContextWindow is returned when the context window is not positive.
	ErrInvalidContextWindow = errors.New("invalid context window: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when more than one of
	// --json, --markdown, and --csv is specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: choose at most one of --json, --markdown, --csv")
)
