package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors.
// These are returned by Config.Validate() and describe what is wrong
// with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic handling while still providing
// human-readable messages.
var (
	// ErrNoSeeds is returned when no seed URL is provided.
	// The crawl command requires at least one positional URL argument.
	ErrNoSeeds = errors.New("no seed URLs specified: provide at least one URL to crawl")

	// ErrInvalidConcurrency is returned when the concurrency limit is not
	// positive. Zero concurrency would mean no fetches can ever start.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidRateLimit is returned when the rate-limit interval is
	// negative. Use 0 to disable global rate limiting.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not
	// positive. A zero timeout would fail every request immediately.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRetries is returned when the retry count is negative.
	// Use 0 for a single attempt with no retries.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidMaxPages is returned when the page budget is negative.
	// Use 0 for an unlimited crawl.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to apply the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)

// InvalidURLError is returned when a seed or proxy URL does not parse as
// an absolute URL with a supported scheme.
type InvalidURLError struct {
	// URL is the offending value.
	URL string

	// Proxy is true when the value came from the proxy option rather
	// than the seed list.
	Proxy bool
}

// Error implements the error interface.
func (e *InvalidURLError) Error() string {
	if e.Proxy {
		return fmt.Sprintf("invalid proxy URL %q: expected http://, https:// or socks5:// with a host", e.URL)
	}
	return fmt.Sprintf("invalid URL %q: expected an absolute http or https URL", e.URL)
}
