package report

import (
	"io"

	"github.com/webcrawl-dev/webcrawl/internal/model"
)

// Report bundles everything a writer needs to render one crawl.
//
// Design decision: We wrap summary and results in a single struct rather
// than passing them separately because it gives the JSON writer a stable
// top-level schema and lets output-specific metadata (the version field)
// live outside the core model types.
type Report struct {
	// Version is the webcrawl version that produced this report.
	Version string `json:"version"`

	// Summary holds the crawl-wide aggregates.
	Summary *model.Summary `json:"summary"`

	// Results are the per-page outcomes in aggregate order.
	Results []*model.CrawlResult `json:"results"`
}

// New creates a Report for the given crawl output.
func New(version string, summary *model.Summary, results []*model.CrawlResult) *Report {
	return &Report{
		Version: version,
		Summary: summary,
		Results: results,
	}
}

// Writer defines the interface for report output.
// Implementations render crawl results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *Report) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
