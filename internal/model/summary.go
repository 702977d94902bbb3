package model

import (
	"sort"
	"time"
)

// Summary aggregates a crawl's results into the statistics rendered by the
// report writers and exposed to callers as advisory progress counters.
type Summary struct {
	// Seeds are the URLs the crawl started from, in the order given.
	Seeds []string `json:"seeds"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the total wall-clock duration of the crawl.
	Elapsed time.Duration `json:"elapsed"`

	// PagesCrawled is the number of results in the aggregate output.
	PagesCrawled int `json:"pages_crawled"`

	// URLsSeen is the number of unique URLs scheduled (visited-set size).
	// Always >= PagesCrawled because scheduling can stop at the page budget.
	URLsSeen int `json:"urls_seen"`

	// Disallowed is the number of URLs skipped due to robots.txt.
	Disallowed int `json:"disallowed"`

	// AvgDuration is the mean fetch duration across all results.
	AvgDuration time.Duration `json:"avg_duration"`

	// StatusCounts maps HTTP status code to the number of results with
	// that code. Code 0 counts requests that never completed.
	StatusCounts map[int]int `json:"status_counts"`
}

// NewSummary computes a Summary from a slice of results.
// The results slice is read, never retained or mutated.
func NewSummary(seeds []string, results []*CrawlResult, startedAt time.Time, elapsed time.Duration, urlsSeen int) *Summary {
	s := &Summary{
		Seeds:        seeds,
		StartedAt:    startedAt,
		Elapsed:      elapsed,
		PagesCrawled: len(results),
		URLsSeen:     urlsSeen,
		StatusCounts: make(map[int]int),
	}

	var total time.Duration
	for _, r := range results {
		s.StatusCounts[r.StatusCode]++
		if r.Disallowed {
			s.Disallowed++
		}
		total += r.Duration
	}
	if len(results) > 0 {
		s.AvgDuration = total / time.Duration(len(results))
	}

	return s
}

// SortedStatusCodes returns the status codes present in the summary in
// ascending order. Report writers use this for deterministic output.
func (s *Summary) SortedStatusCodes() []int {
	codes := make([]int, 0, len(s.StatusCounts))
	for code := range s.StatusCounts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}
