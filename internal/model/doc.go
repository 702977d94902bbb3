// Package model defines the data structures shared across the crawler,
// the report writers, and the database layer.
//
// The central type is CrawlResult, the immutable record produced for every
// URL the crawler dispatches. Summary aggregates a result slice into the
// statistics the report writers render.
package model
