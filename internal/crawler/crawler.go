package crawler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/webcrawl-dev/webcrawl/internal/config"
	"github.com/webcrawl-dev/webcrawl/internal/model"
	"github.com/webcrawl-dev/webcrawl/internal/robots"
)

// frontierEntry is a URL queued for fetching together with its discovery
// depth. Entries exist only for the duration of one traversal level.
type frontierEntry struct {
	url   string
	depth int
}

// Crawler drives a breadth-first crawl from a set of seed URLs.
// Construct one per crawl with New; a Crawler is not reusable across
// crawls because its visited set and robots cache persist.
type Crawler struct {
	// cfg is shared read-only by every worker for the crawl's duration.
	cfg *config.Config

	// client is the HTTP client all fetches go through, configured with
	// the proxy, timeout, and redirect policy from cfg.
	client *http.Client

	// robots answers allow/deny and crawl-delay questions per domain.
	robots *robots.Engine

	// limiter caps in-flight fetches and spaces out dispatches.
	limiter *limiter

	// visited guarantees each URL is fetched at most once.
	visited *visitedSet

	logger *slog.Logger

	// Advisory progress counters, readable mid-crawl via Stats.
	pagesCrawled atomic.Int64
	statusMu     sync.Mutex
	statusCounts map[int]int
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets a custom logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client built from the configuration.
// Intended for tests that need to inject transport behavior.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		c.client = client
	}
}

// New creates a Crawler for the given validated configuration.
// It fails only if the HTTP client cannot be constructed, e.g. when the
// proxy specification cannot be turned into a transport. Per-URL
// problems never surface here.
func New(cfg *config.Config, opts ...Option) (*Crawler, error) {
	c := &Crawler{
		cfg:          cfg,
		visited:      &visitedSet{},
		statusCounts: make(map[int]int),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	if c.client == nil {
		client, err := newHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
		c.client = client
	}

	c.limiter = newLimiter(cfg.Concurrency, cfg.RateLimit)
	c.robots = robots.NewEngine(c.client, cfg.UserAgent, c.logger)

	return c, nil
}

// Crawl runs the breadth-first traversal and returns one CrawlResult per
// fetched (or robots-skipped) URL. Per-page failures are recorded inside
// their results; the only error Crawl itself returns is context
// cancellation, and even then the results gathered so far are returned.
//
// The aggregate is clamped to MaxPages. Within a level, result order is
// completion order across concurrent workers, not discovery order.
func (c *Crawler) Crawl(ctx context.Context) ([]*model.CrawlResult, error) {
	level := make([]frontierEntry, 0, len(c.cfg.Seeds))
	for _, seed := range c.cfg.Seeds {
		if c.visited.TryAdd(seed) {
			level = append(level, frontierEntry{url: seed, depth: 0})
		}
	}

	results := make([]*model.CrawlResult, 0, len(level))

	for len(level) > 0 {
		depth := level[0].depth
		if c.cfg.MaxPages > 0 && len(results) >= c.cfg.MaxPages {
			c.logger.Debug("page budget reached", "pages", len(results))
			break
		}
		if c.cfg.MaxDepth >= 0 && depth > c.cfg.MaxDepth {
			c.logger.Debug("depth limit reached", "depth", depth)
			break
		}

		c.logger.Debug("crawling level", "depth", depth, "urls", len(level))

		levelResults := c.crawlLevel(ctx, level)
		results = append(results, levelResults...)
		if c.cfg.MaxPages > 0 && len(results) > c.cfg.MaxPages {
			results = results[:c.cfg.MaxPages]
		}

		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		level = c.nextLevel(levelResults)
	}

	return results, nil
}

// crawlLevel dispatches one worker per entry and waits for all of them.
// The wait is the breadth-first barrier: the next level's composition
// depends on every result from this one.
//
// Design decision: We spawn one goroutine per entry under errgroup and
// let the permit pool do the bounding, rather than errgroup.SetLimit.
// The permit pool caps network I/O process-wide (the property the
// politeness contract cares about) while queued goroutines cost little.
func (c *Crawler) crawlLevel(ctx context.Context, level []frontierEntry) []*model.CrawlResult {
	levelResults := make([]*model.CrawlResult, 0, len(level))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, entry := range level {
		entry := entry
		g.Go(func() error {
			result := c.fetchOne(gctx, entry)

			mu.Lock()
			levelResults = append(levelResults, result)
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; failures live inside their results.
	g.Wait() //nolint:errcheck // Always nil by construction

	return levelResults
}

// nextLevel builds the following level from the links discovered across
// the given results, inserting each survivor into the visited set before
// it is scheduled. The atomic check-and-insert prevents duplicate
// scheduling when sibling pages at the same level link to the same URL.
func (c *Crawler) nextLevel(levelResults []*model.CrawlResult) []frontierEntry {
	var next []frontierEntry
	for _, result := range levelResults {
		for _, link := range result.Links {
			if c.visited.TryAdd(link) {
				next = append(next, frontierEntry{url: link, depth: result.Depth + 1})
			}
		}
	}
	return next
}

// recordResult updates the advisory progress counters.
func (c *Crawler) recordResult(result *model.CrawlResult) {
	c.pagesCrawled.Add(1)

	c.statusMu.Lock()
	c.statusCounts[result.StatusCode]++
	c.statusMu.Unlock()

	c.logger.Debug("page crawled",
		"url", result.URL,
		"status", result.StatusCode,
		"depth", result.Depth,
		"links", len(result.Links),
		"duration", result.Duration.Round(time.Millisecond),
	)
}

// Stats is a point-in-time snapshot of crawl progress. Advisory only:
// a caller polling mid-crawl sees values that may already be stale.
type Stats struct {
	// PagesCrawled is the number of completed fetch attempts, including
	// failures and robots-skipped URLs.
	PagesCrawled int

	// URLsSeen is the number of unique URLs entered into the visited set.
	URLsSeen int

	// StatusCounts maps HTTP status codes to occurrence counts.
	// Key 0 counts robots-skipped URLs and pure network failures.
	StatusCounts map[int]int
}

// Stats returns current crawl statistics.
func (c *Crawler) Stats() Stats {
	c.statusMu.Lock()
	counts := make(map[int]int, len(c.statusCounts))
	for code, n := range c.statusCounts {
		counts[code] = n
	}
	c.statusMu.Unlock()

	return Stats{
		PagesCrawled: int(c.pagesCrawled.Load()),
		URLsSeen:     c.visited.Len(),
		StatusCounts: counts,
	}
}
