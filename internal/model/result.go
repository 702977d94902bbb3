package model

import (
	"fmt"
	"time"
)

// CrawlResult represents the outcome of one page fetch.
// It is immutable once produced: the crawler creates exactly one result
// per dispatched URL and never mutates it afterwards.
//
// Design decision: Failures are encoded in the result rather than returned
// as errors because one bad page must never abort an otherwise-successful
// crawl. A StatusCode of 0 means the request never completed (network
// failure or robots denial); the Disallowed flag distinguishes the two.
type CrawlResult struct {
	// URL is the URL that was dispatched for fetching.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	// 0 means the request never completed: either every attempt failed at
	// the network level, or the URL was disallowed by robots.txt and no
	// request was issued at all.
	StatusCode int `json:"status_code"`

	// Title is the text of the first <title> element, trimmed.
	// Empty if the page had no title or the fetch failed.
	Title string `json:"title,omitempty"`

	// Links contains the absolute http/https URLs discovered on the page,
	// in document order with duplicates removed (first occurrence kept).
	Links []string `json:"links,omitempty"`

	// Depth is the breadth-first level at which the URL was discovered.
	// Seed URLs are depth 0.
	Depth int `json:"depth"`

	// Duration is the measured wall-clock time of the fetch, including
	// retries and politeness delays.
	Duration time.Duration `json:"duration"`

	// Disallowed is true when robots.txt denied the URL for the configured
	// user agent. No HTTP request was issued in that case.
	Disallowed bool `json:"disallowed,omitempty"`

	// Err holds the last network-level error message when every attempt
	// failed without an HTTP response. Empty otherwise.
	Err string `json:"error,omitempty"`
}

// FormatOutput renders the result as a single human-readable line.
// This is the per-page line the simple report writer prints.
func (r *CrawlResult) FormatOutput() string {
	title := r.Title
	if title == "" {
		title = "No title"
	}
	return fmt.Sprintf("%s - %d - %s (%dms)", r.URL, r.StatusCode, title, r.Duration.Milliseconds())
}

// OK reports whether the fetch completed with a 2xx status.
func (r *CrawlResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
