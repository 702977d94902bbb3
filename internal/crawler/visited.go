package crawler

import (
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
)

// visitedSet tracks canonicalized URLs already scheduled for fetching.
//
// Design decision: We use sync.Map rather than a mutex-guarded map because
// the access pattern is check-and-insert from many concurrent workers, and
// LoadOrStore gives us the required atomicity in a single call. No two
// workers can both observe "not present" for the same URL.
type visitedSet struct {
	m    sync.Map
	size atomic.Int64
}

// TryAdd atomically inserts the URL and reports whether it was absent.
// A true return means the caller owns the URL and may schedule its fetch;
// every later call for the same URL returns false.
func (v *visitedSet) TryAdd(rawURL string) bool {
	_, loaded := v.m.LoadOrStore(normalizeURL(rawURL), struct{}{})
	if !loaded {
		v.size.Add(1)
	}
	return !loaded
}

// Len returns the number of unique URLs seen so far.
func (v *visitedSet) Len() int {
	return int(v.size.Load())
}

// normalizeURL canonicalizes a URL for deduplication.
//
// Design decision: We normalize URLs because:
//  1. Same page can have different URL representations
//  2. Fragment (#anchor) doesn't change content
//  3. An empty path and "/" refer to the same resource
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
