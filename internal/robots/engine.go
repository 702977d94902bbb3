package robots

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	// defaultFetchTimeout bounds a single robots.txt fetch. Shorter than
	// the page timeout because a slow robots.txt should not stall its
	// whole domain; failure degrades to allow-everything.
	defaultFetchTimeout = 10 * time.Second

	// maxRobotsBody caps the robots.txt bytes read. Google's crawler
	// uses a 500KB limit.
	maxRobotsBody = 512 * 1024
)

// domainInfo is the cached robots state for one domain.
// group is nil when the fetch failed or the body was empty, which means
// everything is permitted and no crawl-delay applies.
type domainInfo struct {
	group      *robotstxt.Group
	crawlDelay time.Duration

	// mu guards lastAccess. Per-domain so that delay bookkeeping on one
	// domain never blocks workers touching another.
	mu         sync.Mutex
	lastAccess time.Time
}

// Engine evaluates robots.txt rules with per-domain caching and
// crawl-delay bookkeeping. It is safe for concurrent use by any number
// of workers.
//
// Design decision: The cache never expires and a domain is never
// re-fetched once populated, including the fetch-failed outcome. A crawl
// is short-lived relative to robots.txt change frequency, and stable
// answers within one crawl are worth more than freshness.
type Engine struct {
	client       *http.Client
	userAgent    string
	fetchTimeout time.Duration
	logger       *slog.Logger

	mu    sync.RWMutex
	cache map[string]*domainInfo
}

// NewEngine creates a robots compliance engine.
// The client is used only for robots.txt fetches; pass the same client the
// crawl uses so proxy settings apply. If client is nil a default client is
// used. If logger is nil, slog.Default() is used.
func NewEngine(client *http.Client, userAgent string, logger *slog.Logger) *Engine {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:       client,
		userAgent:    userAgent,
		fetchTimeout: defaultFetchTimeout,
		logger:       logger,
		cache:        make(map[string]*domainInfo),
	}
}

// domainKey canonicalizes a URL to its robots-cache key.
func domainKey(u *url.URL) string {
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// Allowed reports whether the URL's path may be fetched as the configured
// user agent. The first call for a domain fetches and caches robots.txt;
// any failure to obtain rules permits the fetch.
func (e *Engine) Allowed(ctx context.Context, u *url.URL) bool {
	info := e.info(ctx, u)
	if info.group == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return info.group.Test(path)
}

// CrawlDelay returns the effective crawl-delay for the URL's domain.
// Zero means no per-domain delay beyond the global rate limit.
func (e *Engine) CrawlDelay(ctx context.Context, u *url.URL) time.Duration {
	return e.info(ctx, u).crawlDelay
}

// DelayIfNeeded blocks until the domain's crawl-delay interval has elapsed
// since the last recorded access, then claims the dispatch slot by updating
// the recorded timestamp. Returns early with ctx.Err() if the context is
// canceled while waiting.
//
// The read-compute-claim sequence runs under the domain's lock, and the
// wait loop rechecks after sleeping, so two workers can never both observe
// "no wait needed" for the same domain.
func (e *Engine) DelayIfNeeded(ctx context.Context, u *url.URL) error {
	info := e.info(ctx, u)
	if info.crawlDelay <= 0 {
		return nil
	}

	for {
		info.mu.Lock()
		now := time.Now()
		if info.lastAccess.IsZero() || now.Sub(info.lastAccess) >= info.crawlDelay {
			info.lastAccess = now
			info.mu.Unlock()
			return nil
		}
		wait := info.crawlDelay - now.Sub(info.lastAccess)
		info.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Another worker may have claimed the slot while we slept.
		}
	}
}

// UpdateLastAccess records that a request to the URL's domain just
// completed. Called by the worker after every fetch attempt regardless of
// status, so the crawl-delay clock measures from the most recent request.
// A no-op for domains the engine has not seen.
func (e *Engine) UpdateLastAccess(u *url.URL) {
	e.mu.RLock()
	info, ok := e.cache[domainKey(u)]
	e.mu.RUnlock()
	if !ok {
		return
	}

	info.mu.Lock()
	info.lastAccess = time.Now()
	info.mu.Unlock()
}

// info returns the cached domain state, fetching robots.txt on first
// access. Duplicate concurrent first-accesses may each fetch, but only one
// result is kept; the fetch is idempotent so no global fetch lock is held
// across network I/O.
func (e *Engine) info(ctx context.Context, u *url.URL) *domainInfo {
	key := domainKey(u)

	e.mu.RLock()
	info, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return info
	}

	fetched := e.fetch(ctx, u)

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.cache[key]; ok {
		// Lost the race; the first stored entry wins.
		return existing
	}
	e.cache[key] = fetched
	return fetched
}

// fetch retrieves and parses robots.txt for the URL's origin.
// Every failure path returns the permit-everything state.
func (e *Engine) fetch(ctx context.Context, u *url.URL) *domainInfo {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return &domainInfo{}
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Debug("robots.txt unreachable, permitting all",
			"url", robotsURL, "error", err)
		return &domainInfo{}
	}
	defer resp.Body.Close() //nolint:errcheck // Best-effort close on read path

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.logger.Debug("robots.txt not available, permitting all",
			"url", robotsURL, "status", resp.StatusCode)
		return &domainInfo{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil || len(body) == 0 {
		return &domainInfo{}
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		e.logger.Debug("robots.txt parse failed, permitting all",
			"url", robotsURL, "error", err)
		return &domainInfo{}
	}

	group := data.FindGroup(e.userAgent)
	if group == nil {
		return &domainInfo{}
	}

	e.logger.Debug("robots.txt loaded",
		"url", robotsURL, "crawl_delay", group.CrawlDelay)
	return &domainInfo{group: group, crawlDelay: group.CrawlDelay}
}
