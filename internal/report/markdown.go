package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/webcrawl-dev/webcrawl/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeStatusDistribution(md, report.Summary)
	w.writePages(md, report.Results)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl-wide information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	md.H1("Crawl Report")
	md.PlainText("")

	summary := report.Summary
	if summary == nil {
		return
	}

	seeds := make([]string, 0, len(summary.Seeds))
	for _, seed := range summary.Seeds {
		seeds = append(seeds, "`"+seed+"`")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seeds", strings.Join(seeds, ", ")},
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", summary.Elapsed.Round(time.Millisecond).String()},
			{"Pages Crawled", strconv.Itoa(summary.PagesCrawled)},
			{"URLs Seen", strconv.Itoa(summary.URLsSeen)},
			{"Robots Disallowed", strconv.Itoa(summary.Disallowed)},
			{"Avg Response", fmt.Sprintf("%dms", summary.AvgDuration.Milliseconds())},
			{"Version", report.Version},
		},
	})
	md.PlainText("")
}

// writeStatusDistribution writes the status-code table and pie chart.
func (w *MarkdownWriter) writeStatusDistribution(md *markdown.Markdown, summary *model.Summary) {
	if summary == nil || len(summary.StatusCounts) == 0 {
		return
	}

	md.H2("Status Distribution")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.StatusCounts))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("HTTP Status Distribution"),
		piechart.WithShowData(true),
	)
	for _, code := range summary.SortedStatusCodes() {
		label := strconv.Itoa(code)
		if code == 0 {
			label = "no response"
		}
		count := summary.StatusCounts[code]
		rows = append(rows, []string{label, strconv.Itoa(count)})
		chart.LabelAndIntValue(label, uint64(count))
	}

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes the per-page results table.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, results []*model.CrawlResult) {
	md.H2("Pages")
	md.PlainText("")

	if len(results) == 0 {
		md.PlainText("No pages crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := strconv.Itoa(r.StatusCode)
		if r.Disallowed {
			status = "disallowed"
		}
		title := r.Title
		if title == "" {
			title = "-"
		}
		rows = append(rows, []string{
			"`" + r.URL + "`",
			status,
			strconv.Itoa(r.Depth),
			title,
			fmt.Sprintf("%dms", r.Duration.Milliseconds()),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Depth", "Title", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")
}
