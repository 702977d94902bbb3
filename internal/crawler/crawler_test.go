package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/webcrawl-dev/webcrawl/internal/config"
	"github.com/webcrawl-dev/webcrawl/internal/model"
)

// newTestConfig returns a Config suitable for fast tests against httptest
// servers.
func newTestConfig(seeds ...string) *config.Config {
	cfg := config.NewConfig()
	cfg.Seeds = seeds
	cfg.Concurrency = 5
	cfg.MaxRetries = 0
	cfg.RetryBaseDelay = 20 * time.Millisecond
	cfg.Timeout = 5 * time.Second
	return cfg
}

// resultByPath indexes crawl results by their URL path.
func resultByPath(t *testing.T, results []*model.CrawlResult) map[string]*model.CrawlResult {
	t.Helper()

	byPath := make(map[string]*model.CrawlResult, len(results))
	for _, r := range results {
		path := "/"
		if i := strings.Index(strings.TrimPrefix(r.URL, "http://"), "/"); i >= 0 {
			path = strings.TrimPrefix(r.URL, "http://")[i:]
		}
		byPath[path] = r
	}
	return byPath
}

// TestCrawlerCrawl_EndToEnd tests the breadth-first scenario: a seed page
// linking to two children, crawled with max depth 1.
func TestCrawlerCrawl_EndToEnd(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><title>Root</title></head><body><a href="/a">a</a> <a href="/b">b</a></body></html>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Page A</title></head><body></body></html>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Page B</title></head><body></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := newTestConfig(srv.URL)
	cfg.MaxDepth = 1
	cfg.MaxPages = 10

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	byPath := resultByPath(t, results)

	root, ok := byPath["/"]
	if !ok {
		t.Fatal("expected a result for /")
	}
	if root.Depth != 0 {
		t.Errorf("expected / at depth 0, got %d", root.Depth)
	}
	if root.Title != "Root" {
		t.Errorf("expected title Root, got %q", root.Title)
	}
	if len(root.Links) != 2 {
		t.Errorf("expected 2 links on /, got %v", root.Links)
	}

	for _, path := range []string{"/a", "/b"} {
		child, ok := byPath[path]
		if !ok {
			t.Fatalf("expected a result for %s", path)
		}
		if child.Depth != 1 {
			t.Errorf("expected %s at depth 1, got %d", path, child.Depth)
		}
		if child.StatusCode != http.StatusOK {
			t.Errorf("expected %s status 200, got %d", path, child.StatusCode)
		}
	}
}

// TestCrawlerCrawl_Dedup tests that each URL appears at most once in the
// aggregate even with cyclic and repeated links.
func TestCrawlerCrawl_Dedup(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		// /a is linked twice; /a links back to /.
		fmt.Fprint(w, `<html><body><a href="/a">1</a><a href="/a">2</a></body></html>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/">home</a></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := newTestConfig(srv.URL)
	cfg.MaxPages = 10

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	seen := make(map[string]int)
	for _, r := range results {
		seen[normalizeURL(r.URL)]++
	}
	for u, n := range seen {
		if n > 1 {
			t.Errorf("URL %s appears %d times in aggregate", u, n)
		}
	}
	if len(results) != 2 {
		t.Errorf("expected 2 unique pages, got %d", len(results))
	}
}

// TestCrawlerCrawl_DepthZero tests that max depth 0 crawls only the seeds.
func TestCrawlerCrawl_DepthZero(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/child">child</a></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := newTestConfig(srv.URL)
	cfg.MaxDepth = 0

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected only the seed at depth 0, got %d results", len(results))
	}
	if results[0].Depth != 0 {
		t.Errorf("expected depth 0, got %d", results[0].Depth)
	}
}

// TestCrawlerCrawl_MaxPages tests the hard page-budget clamp.
func TestCrawlerCrawl_MaxPages(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			fmt.Fprint(w, `<html><body>leaf</body></html>`)
			return
		}
		var sb strings.Builder
		sb.WriteString("<html><body>")
		for i := 0; i < 20; i++ {
			fmt.Fprintf(&sb, `<a href="/page/%d">p%d</a>`, i, i)
		}
		sb.WriteString("</body></html>")
		fmt.Fprint(w, sb.String())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := newTestConfig(srv.URL)
	cfg.MaxPages = 5

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if len(results) > 5 {
		t.Errorf("expected at most 5 results, got %d", len(results))
	}
}

// TestCrawlerCrawl_RetryTiming tests the exponential backoff schedule
// against an endpoint that returns 503 twice and then 200.
func TestCrawlerCrawl_RetryTiming(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var attempts []time.Time

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		attempts = append(attempts, time.Now())
		n := len(attempts)
		mu.Unlock()

		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `<html><head><title>Recovered</title></head></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	base := 60 * time.Millisecond
	cfg := newTestConfig(srv.URL)
	cfg.MaxRetries = 2
	cfg.RetryBaseDelay = base
	cfg.MaxDepth = 0

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].StatusCode != http.StatusOK {
		t.Errorf("expected final status 200, got %d", results[0].StatusCode)
	}
	if results[0].Title != "Recovered" {
		t.Errorf("expected title from the successful attempt, got %q", results[0].Title)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}

	// Schedule is base, base*2 with no jitter; allow scheduling slack.
	if gap := attempts[1].Sub(attempts[0]); gap < base-10*time.Millisecond {
		t.Errorf("expected first retry after >=%v, got %v", base, gap)
	}
	if gap := attempts[2].Sub(attempts[1]); gap < 2*base-10*time.Millisecond {
		t.Errorf("expected second retry after >=%v, got %v", 2*base, gap)
	}
}

// TestCrawlerCrawl_NoRetryOnTerminalStatus tests that 4xx responses other
// than 429 are never retried.
func TestCrawlerCrawl_NoRetryOnTerminalStatus(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := newTestConfig(srv.URL)
	cfg.MaxRetries = 3

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if len(results) != 1 || results[0].StatusCode != http.StatusNotFound {
		t.Fatalf("expected a single 404 result, got %+v", results)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected exactly 1 request for a terminal status, got %d", calls)
	}
}

// TestCrawlerCrawl_RobotsDisallowed tests that disallowed URLs are skipped
// with a distinct marker and no HTTP request.
func TestCrawlerCrawl_RobotsDisallowed(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	privateHits := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><a href="/private/x">p</a><a href="/public">q</a></body></html>`)
	})
	mux.HandleFunc("/public", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Public</title></head></html>`)
	})
	mux.HandleFunc("/private/", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		privateHits++
		mu.Unlock()
		fmt.Fprint(w, `<html><head><title>Private</title></head></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := newTestConfig(srv.URL)
	cfg.MaxDepth = 1

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	byPath := resultByPath(t, results)

	private, ok := byPath["/private/x"]
	if !ok {
		t.Fatal("expected a result recording the disallowed URL")
	}
	if !private.Disallowed {
		t.Error("expected Disallowed marker on the skipped result")
	}
	if private.StatusCode != 0 {
		t.Errorf("expected status 0 for disallowed URL, got %d", private.StatusCode)
	}
	if private.Title != "" || len(private.Links) != 0 {
		t.Error("expected no title or links for disallowed URL")
	}

	public, ok := byPath["/public"]
	if !ok {
		t.Fatal("expected the allowed sibling to be fetched")
	}
	if public.StatusCode != http.StatusOK || public.Title != "Public" {
		t.Errorf("unexpected public result: %+v", public)
	}

	mu.Lock()
	defer mu.Unlock()
	if privateHits != 0 {
		t.Errorf("expected no HTTP request to the disallowed path, got %d", privateHits)
	}
}

// TestCrawlerCrawl_RedirectPolicy tests follow vs record-terminal redirects.
func TestCrawlerCrawl_RedirectPolicy(t *testing.T) {
	t.Parallel()

	newServer := func() *httptest.Server {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			http.Redirect(w, r, "/target", http.StatusFound)
		})
		mux.HandleFunc("/target", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><head><title>Target</title></head><body><a href="relative">r</a></body></html>`)
		})
		return httptest.NewServer(mux)
	}

	t.Run("redirects followed by default", func(t *testing.T) {
		t.Parallel()

		srv := newServer()
		t.Cleanup(srv.Close)

		cfg := newTestConfig(srv.URL)
		cfg.MaxDepth = 0

		c, err := New(cfg)
		if err != nil {
			t.Fatalf("failed to create crawler: %v", err)
		}
		results, err := c.Crawl(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if results[0].StatusCode != http.StatusOK || results[0].Title != "Target" {
			t.Errorf("expected followed redirect to land on target, got %+v", results[0])
		}
		// Relative links must resolve against the post-redirect URL.
		if len(results[0].Links) != 1 || !strings.HasSuffix(results[0].Links[0], "/relative") {
			t.Errorf("expected link resolved against final URL, got %v", results[0].Links)
		}
	})

	t.Run("redirects recorded as terminal when disabled", func(t *testing.T) {
		t.Parallel()

		srv := newServer()
		t.Cleanup(srv.Close)

		cfg := newTestConfig(srv.URL)
		cfg.MaxDepth = 0
		cfg.FollowRedirects = false

		c, err := New(cfg)
		if err != nil {
			t.Fatalf("failed to create crawler: %v", err)
		}
		results, err := c.Crawl(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if results[0].StatusCode != http.StatusFound {
			t.Errorf("expected terminal 302, got %d", results[0].StatusCode)
		}
		if len(results[0].Links) != 0 {
			t.Errorf("expected no links from an unfollowed redirect, got %v", results[0].Links)
		}
	})
}

// TestCrawlerCrawl_NetworkFailure tests that an unreachable seed is
// recorded, not escalated.
func TestCrawlerCrawl_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // Connections now fail.

	cfg := newTestConfig(srv.URL)

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}

	results, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("expected per-page failure to be contained, got %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].StatusCode != 0 {
		t.Errorf("expected status 0 for network failure, got %d", results[0].StatusCode)
	}
	if results[0].Err == "" {
		t.Error("expected error message recorded in the result")
	}
}

// TestNew_InvalidProxy tests that an unusable proxy is a construction error.
func TestNew_InvalidProxy(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig("https://example.com")
	cfg.Proxy = "ftp://proxy.example.com:3128"

	if _, err := New(cfg); err == nil {
		t.Error("expected construction error for unsupported proxy scheme")
	}
}

// TestCrawlerStats tests the advisory progress counters.
func TestCrawlerStats(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><a href="/missing">m</a></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := newTestConfig(srv.URL)

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}
	if _, err := c.Crawl(context.Background()); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	stats := c.Stats()
	if stats.PagesCrawled != 2 {
		t.Errorf("expected 2 pages crawled, got %d", stats.PagesCrawled)
	}
	if stats.URLsSeen != 2 {
		t.Errorf("expected 2 unique URLs seen, got %d", stats.URLsSeen)
	}
	if stats.StatusCounts[http.StatusOK] != 1 || stats.StatusCounts[http.StatusNotFound] != 1 {
		t.Errorf("unexpected status distribution: %v", stats.StatusCounts)
	}
}
