package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/webcrawl-dev/webcrawl/internal/model"
)

// dbFileName is the SQLite file created inside the data directory.
const dbFileName = "webcrawl.db"

// CrawlDB provides SQLite-based storage for crawl sessions and results.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all crawls rather
// than one file per session. This keeps history queries (compare runs,
// find a URL across sessions) in one place and simplifies backups.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses URI-style modes: rwc allows creation, rw
	// requires an existing file.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per completed crawl
	CREATE TABLE IF NOT EXISTS crawl_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seeds TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		pages_crawled INTEGER NOT NULL,
		urls_seen INTEGER NOT NULL,
		disallowed INTEGER NOT NULL,
		avg_duration_ms INTEGER NOT NULL,
		status_counts TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_created ON crawl_sessions(created_at);

	-- One row per fetched (or robots-skipped) URL
	CREATE TABLE IF NOT EXISTS crawl_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES crawl_sessions(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		title TEXT,
		links TEXT,
		depth INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		disallowed INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_results_session ON crawl_results(session_id);
	CREATE INDEX IF NOT EXISTS idx_results_url ON crawl_results(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SessionRecord is a stored crawl session.
type SessionRecord struct {
	// ID is the session's database identifier.
	ID int64

	// Summary holds the crawl-wide aggregates as archived.
	Summary *model.Summary

	// CreatedAt is when the session was archived.
	CreatedAt time.Time
}

// SaveCrawl archives a completed crawl as a session plus its results.
// The whole write is transactional: either the session and every result
// land, or nothing does. Returns the new session's ID.
func (cdb *CrawlDB) SaveCrawl(ctx context.Context, summary *model.Summary, results []*model.CrawlResult) (int64, error) {
	if summary == nil {
		return 0, errors.New("nil summary")
	}

	seedsJSON, err := json.Marshal(summary.Seeds)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize seeds: %w", err)
	}
	countsJSON, err := json.Marshal(summary.StatusCounts)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize status counts: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO crawl_sessions (seeds, started_at, elapsed_ms, pages_crawled, urls_seen, disallowed, avg_duration_ms, status_counts)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(seedsJSON),
		summary.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		summary.Elapsed.Milliseconds(),
		summary.PagesCrawled,
		summary.URLsSeen,
		summary.Disallowed,
		summary.AvgDuration.Milliseconds(),
		string(countsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	sessionID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO crawl_results (session_id, url, status_code, title, links, depth, duration_ms, disallowed, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // Best-effort close

	for _, r := range results {
		linksJSON, err := json.Marshal(r.Links)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize links: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			sessionID,
			r.URL,
			r.StatusCode,
			r.Title,
			string(linksJSON),
			r.Depth,
			r.Duration.Milliseconds(),
			r.Disallowed,
			r.Err,
		); err != nil {
			return 0, fmt.Errorf("failed to insert result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit session: %w", err)
	}

	return sessionID, nil
}

// ListSessions returns the most recent sessions, newest first.
// A non-positive limit returns all sessions.
func (cdb *CrawlDB) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	query := `
	SELECT id, seeds, started_at, elapsed_ms, pages_crawled, urls_seen, disallowed, avg_duration_ms, status_counts, created_at
	FROM crawl_sessions
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best-effort close

	var sessions []SessionRecord
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, record)
	}

	return sessions, rows.Err()
}

// LatestSession returns the most recently archived session, or nil when
// the database is empty.
func (cdb *CrawlDB) LatestSession(ctx context.Context) (*SessionRecord, error) {
	sessions, err := cdb.ListSessions(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// SessionResults returns the stored results for a session in insert order.
func (cdb *CrawlDB) SessionResults(ctx context.Context, sessionID int64) ([]*model.CrawlResult, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, status_code, title, links, depth, duration_ms, disallowed, error
	FROM crawl_results
	WHERE session_id = ?
	ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best-effort close

	var results []*model.CrawlResult
	for rows.Next() {
		var r model.CrawlResult
		var linksJSON sql.NullString
		var durationMS int64

		if err := rows.Scan(&r.URL, &r.StatusCode, &r.Title, &linksJSON, &r.Depth, &durationMS, &r.Disallowed, &r.Err); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		r.Duration = time.Duration(durationMS) * time.Millisecond
		if linksJSON.Valid && linksJSON.String != "" {
			if err := json.Unmarshal([]byte(linksJSON.String), &r.Links); err != nil {
				return nil, fmt.Errorf("failed to parse links: %w", err)
			}
		}

		results = append(results, &r)
	}

	return results, rows.Err()
}

// HasRecentCrawl checks if a URL was crawled within the specified duration,
// across all sessions.
func (cdb *CrawlDB) HasRecentCrawl(ctx context.Context, url string, window time.Duration) (bool, error) {
	query := `
	SELECT COUNT(*) FROM crawl_results
	WHERE url = ? AND fetched_at > datetime('now', ?)
	`

	// SQLite datetime modifier format
	modifier := fmt.Sprintf("-%d seconds", int(window.Seconds()))

	var count int
	if err := cdb.db.QueryRowContext(ctx, query, url, modifier).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check recent crawl: %w", err)
	}

	return count > 0, nil
}

// scanSession decodes one crawl_sessions row into a SessionRecord.
func scanSession(rows *sql.Rows) (SessionRecord, error) {
	var (
		record        SessionRecord
		seedsJSON     string
		countsJSON    string
		startedAt     string
		createdAt     string
		elapsedMS     int64
		avgDurationMS int64
	)

	summary := &model.Summary{}
	if err := rows.Scan(
		&record.ID,
		&seedsJSON,
		&startedAt,
		&elapsedMS,
		&summary.PagesCrawled,
		&summary.URLsSeen,
		&summary.Disallowed,
		&avgDurationMS,
		&countsJSON,
		&createdAt,
	); err != nil {
		return SessionRecord{}, fmt.Errorf("failed to scan session: %w", err)
	}

	summary.StartedAt = parseTimestamp(startedAt)
	summary.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	summary.AvgDuration = time.Duration(avgDurationMS) * time.Millisecond

	if err := json.Unmarshal([]byte(seedsJSON), &summary.Seeds); err != nil {
		return SessionRecord{}, fmt.Errorf("failed to parse seeds: %w", err)
	}
	if err := json.Unmarshal([]byte(countsJSON), &summary.StatusCounts); err != nil {
		return SessionRecord{}, fmt.Errorf("failed to parse status counts: %w", err)
	}

	record.Summary = summary
	record.CreatedAt = parseTimestamp(createdAt)
	return record, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
