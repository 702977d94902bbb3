package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/webcrawl-dev/webcrawl/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display: one line per crawled
// page followed by a summary block.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showErrors controls whether failed fetches include their error text.
	showErrors bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowErrors appends the recorded error message to failed-fetch lines.
func WithShowErrors(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showErrors = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *Report) (int, error) {
	var sb strings.Builder

	w.writeResults(&sb, report.Results)
	w.writeSummary(&sb, report.Summary)

	return w.output.Write([]byte(sb.String()))
}

// writeResults writes one line per crawl result.
func (w *SimpleWriter) writeResults(sb *strings.Builder, results []*model.CrawlResult) {
	for _, r := range results {
		sb.WriteString(r.FormatOutput())
		switch {
		case r.Disallowed:
			sb.WriteString(" [robots disallowed]")
		case w.showErrors && r.Err != "":
			sb.WriteString(" [" + r.Err + "]")
		}
		sb.WriteString("\n")
	}
}

// writeSummary writes the crawl-wide statistics block.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *model.Summary) {
	if summary == nil {
		return
	}

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Seeds:          %s\n", strings.Join(summary.Seeds, ", ")))
	sb.WriteString(fmt.Sprintf("Started:        %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Elapsed:        %s\n", summary.Elapsed.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Pages Crawled:  %d\n", summary.PagesCrawled))
	sb.WriteString(fmt.Sprintf("URLs Seen:      %d\n", summary.URLsSeen))
	if summary.Disallowed > 0 {
		sb.WriteString(fmt.Sprintf("Disallowed:     %d\n", summary.Disallowed))
	}
	sb.WriteString(fmt.Sprintf("Avg Response:   %dms\n", summary.AvgDuration.Milliseconds()))

	sb.WriteString("\nStatus Distribution:\n")
	for _, code := range summary.SortedStatusCodes() {
		label := fmt.Sprintf("%d", code)
		if code == 0 {
			label = "no response"
		}
		sb.WriteString(fmt.Sprintf("  %-12s %d\n", label, summary.StatusCounts[code]))
	}
}
