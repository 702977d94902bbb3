package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These mirror the CLI flag defaults and are chosen for polite crawling
// of public web servers.
const (
	// DefaultConcurrency is the global cap on in-flight fetches.
	// 50 keeps throughput high without exhausting file descriptors on
	// typical systems. The cap is process-wide, not per-domain.
	DefaultConcurrency = 50

	// DefaultTimeout is the per-request timeout. 30 seconds accommodates
	// slow origins without letting a single hung connection stall a
	// concurrency permit for long.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of additional attempts after the
	// first failed fetch. Three retries with exponential backoff covers
	// most transient errors without hammering a struggling server.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the backoff base: attempt N waits
	// base * 2^(N-1), so 1s, 2s, 4s with the default.
	DefaultRetryBaseDelay = 1 * time.Second

	// DefaultUserAgent identifies webcrawl in HTTP requests.
	// A descriptive User-Agent lets operators identify crawler traffic
	// and address robots.txt rules to it.
	DefaultUserAgent = "webcrawl/0.1.0"

	// DefaultMaxBodySize limits the response body bytes read per page.
	// 5MB is ample for HTML while bounding memory on hostile or
	// misconfigured origins.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultRobotsTimeout is the timeout for robots.txt fetches.
	// Shorter than the page timeout because a slow robots.txt should not
	// delay the whole domain; failure degrades to allow-everything.
	DefaultRobotsTimeout = 10 * time.Second

	// AppName is the application name used for XDG directory paths.
	AppName = "webcrawl"
)

// Config holds all configuration options for a crawl.
// It is populated from CLI flags (optionally pre-seeded from the .webcrawl
// config file), validated once before the crawl starts, and shared
// read-only by every worker for the crawl's duration.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity; the option count is manageable and nesting would add
// indirection without benefit.
type Config struct {
	// Seeds is the ordered list of URLs the crawl starts from.
	// Each must parse as an absolute http or https URL.
	Seeds []string

	// Concurrency is the maximum number of in-flight fetches across the
	// whole process. Must be positive.
	Concurrency int

	// RateLimit is the minimum interval between request dispatches
	// process-wide. Zero disables global rate limiting. Per-domain
	// crawl-delay from robots.txt is enforced in addition to this.
	RateLimit time.Duration

	// Proxy is an optional proxy URL. Supported schemes are http, https
	// and socks5. Empty means direct connections.
	Proxy string

	// MaxPages caps the number of results in the aggregate output.
	// Zero means unlimited.
	MaxPages int

	// MaxDepth caps the breadth-first traversal depth. Seeds are depth 0.
	// Negative means unlimited; zero crawls only the seeds.
	MaxDepth int

	// UserAgent is sent as the User-Agent header and matched against
	// robots.txt user-agent groups.
	UserAgent string

	// Timeout is the per-request timeout, retries excluded.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after a transient
	// failure (network error, 429, or 5xx).
	MaxRetries int

	// RetryBaseDelay is the exponential backoff base for retries.
	// Zero means DefaultRetryBaseDelay.
	RetryBaseDelay time.Duration

	// RespectRobots enables robots.txt compliance: disallowed URLs are
	// skipped and per-domain crawl-delay directives are honored.
	RespectRobots bool

	// FollowRedirects enables following HTTP redirects (up to 10 hops).
	// When false, 3xx responses are recorded as terminal results.
	FollowRedirects bool

	// MaxBodySize is the maximum response body size in bytes to read.
	// Zero means DefaultMaxBodySize.
	MaxBodySize int64

	// Verbose enables debug-level log output.
	Verbose bool

	// JSONReport selects JSON report output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output. Mutually exclusive
	// with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to this path instead of stdout.
	ReportFile string

	// DBDir is the directory holding the crawl-history SQLite database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB controls whether results are archived to the database.
	// The crawl itself never reads the database; frontier and visited
	// state are memory-resident only.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero values
// because most defaults are non-zero, and the constructor documents them.
func NewConfig() *Config {
	return &Config{
		Concurrency:     DefaultConcurrency,
		MaxDepth:        -1,
		UserAgent:       DefaultUserAgent,
		Timeout:         DefaultTimeout,
		MaxRetries:      DefaultMaxRetries,
		RetryBaseDelay:  DefaultRetryBaseDelay,
		RespectRobots:   true,
		FollowRedirects: true,
		MaxBodySize:     DefaultMaxBodySize,
		SaveToDB:        true,
		DBDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for webcrawl.
// On Linux: ~/.local/share/webcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webcrawl.
// On Linux: ~/.config/webcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first error found; fixing one error often makes
// others irrelevant. Called once after CLI parsing, before the
// crawl begins; nothing is validated again mid-crawl.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}
	for _, seed := range c.Seeds {
		if !isValidCrawlURL(seed) {
			return &InvalidURLError{URL: seed}
		}
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.Proxy != "" {
		if _, err := url.Parse(c.Proxy); err != nil || !hasProxyScheme(c.Proxy) {
			return &InvalidURLError{URL: c.Proxy, Proxy: true}
		}
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// isValidCrawlURL reports whether raw parses as an absolute http(s) URL.
func isValidCrawlURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// hasProxyScheme reports whether raw parses with a supported proxy scheme.
func hasProxyScheme(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "socks5":
		return true
	}
	return false
}
