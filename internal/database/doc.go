// Package database provides SQLite-based storage for crawl history.
//
// Each completed crawl is archived as a session row plus one row per
// CrawlResult, letting users compare runs over time. The crawl engine
// itself never reads the database: frontier and visited state are
// memory-resident only, and archiving happens once after the crawl
// returns.
//
// Design decision: We use modernc.org/sqlite (a pure-Go SQLite port)
// rather than mattn/go-sqlite3 because it needs no cgo, which keeps
// cross-compilation trivial.
package database
