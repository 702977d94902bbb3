// Package robots implements per-domain robots.txt compliance for the crawler.
//
// The Engine lazily fetches robots.txt the first time a domain is touched,
// parses it with github.com/temoto/robotstxt, and caches the outcome for the
// lifetime of the crawl. A fetch failure, a non-2xx response, or an empty
// body is cached as "permit everything, no delay": a missing or unreachable
// robots.txt must never block crawling.
//
// Two questions are answered per URL:
//   - Allowed: may this path be fetched as the configured user agent?
//   - DelayIfNeeded: must the caller wait before the next request to this
//     domain, per the matched group's Crawl-delay directive?
//
// Allow/Disallow precedence follows the Google robots.txt specification as
// implemented by robotstxt: the longest matching rule wins, and Allow wins
// exact-length ties. Given "Disallow: /a" and "Allow: /a/public", the path
// /a/public/page is permitted and /a/private is denied.
//
// Domains are keyed by lowercased scheme://host, so http://Example.com and
// http://example.com share one cache entry while http and https origins
// remain distinct.
package robots
