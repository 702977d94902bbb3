// Package crawler implements the breadth-first crawl engine.
//
// The Crawler walks the web level by level from a set of seed URLs. Each
// level dispatches one fetch worker per URL, bounded by a global
// concurrency permit pool, and waits for the whole level to complete
// before building the next one from the discovered links. This barrier
// keeps traversal strictly breadth-first: no page at depth N+1 is fetched
// before every depth-N fetch has finished.
//
// Politeness is enforced in three layers, all applied before any request
// leaves the process:
//   - the permit pool caps total in-flight fetches
//   - an optional global rate limiter spaces out dispatches process-wide
//   - per-domain robots.txt rules and Crawl-delay directives are honored
//     through the robots package
//
// Per-page failures never abort the crawl. Timeouts, connection errors,
// 429 and 5xx responses are retried with exponential backoff; whatever
// remains after retry exhaustion is recorded in the page's CrawlResult.
// Only HTTP client construction (a malformed proxy, for instance) fails
// the crawl as a whole.
//
// Result ordering reflects completion order within a level, not discovery
// order. Callers that need discovery order must sort by depth and track
// links themselves; this non-guarantee is deliberate and keeps workers
// free of cross-worker sequencing.
package crawler
