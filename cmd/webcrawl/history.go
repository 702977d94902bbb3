package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/webcrawl-dev/webcrawl/internal/config"
	"github.com/webcrawl-dev/webcrawl/internal/database"
)

// NewHistoryCmd creates the history command.
// This command inspects crawl sessions archived in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect archived crawl sessions",
		Long: `History lists crawl sessions archived in the local database and
shows the per-page results of individual sessions.

Every crawl is archived automatically unless --no-db was passed, so the
history accumulates across runs. Sessions are listed newest first.

Examples:
  # List the most recent sessions
  webcrawl history

  # List the last 50 sessions
  webcrawl history --limit 50

  # Show the per-page results of a session
  webcrawl history --session 3

  # Show the most recent session as JSON
  webcrawl history --last --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", 10,
		"Maximum number of sessions to list (0 = all)")
	cmd.Flags().Int64P("session", "s", 0,
		"Show per-page results for the session with this ID")
	cmd.Flags().Bool("last", false,
		"Show per-page results for the most recent session")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	sessionID, err := cmd.Flags().GetInt64("session")
	if err != nil {
		return err
	}
	last, err := cmd.Flags().GetBool("last")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	// Use XDG data directory for database
	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if last {
		latest, err := db.LatestSession(ctx)
		if err != nil {
			return fmt.Errorf("failed to load latest session: %w", err)
		}
		if latest == nil {
			fmt.Fprintln(out, "No archived crawls found.")
			fmt.Fprintln(out, "\nUse 'webcrawl crawl <url>' to crawl and archive a site.")
			return nil
		}
		sessionID = latest.ID
	}

	if sessionID > 0 {
		return showSession(ctx, db, sessionID, out, jsonOutput)
	}

	return listSessions(ctx, db, limit, out, jsonOutput)
}

// listSessions lists archived crawl sessions, newest first.
func listSessions(ctx context.Context, db *database.CrawlDB, limit int, out io.Writer, jsonOutput bool) error {
	sessions, err := db.ListSessions(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(sessions)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No archived crawls found.")
		fmt.Fprintln(out, "\nUse 'webcrawl crawl <url>' to crawl and archive a site.")
		return nil
	}

	fmt.Fprintf(out, "Archived crawls (%d):\n\n", len(sessions))
	fmt.Fprintf(out, "  %-6s  %-20s  %-7s  %-9s  %s\n", "ID", "Date", "Pages", "Elapsed", "Seeds")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, session := range sessions {
		fmt.Fprintf(out, "  %-6d  %-20s  %-7d  %-9s  %s\n",
			session.ID,
			session.Summary.StartedAt.Local().Format("2006-01-02 15:04:05"),
			session.Summary.PagesCrawled,
			session.Summary.Elapsed.Round(time.Millisecond),
			strings.Join(session.Summary.Seeds, ", "),
		)
	}

	fmt.Fprintln(out, "\nUse 'webcrawl history --session <id>' to see per-page results.")

	return nil
}

// showSession prints the per-page results of one archived session.
func showSession(ctx context.Context, db *database.CrawlDB, sessionID int64, out io.Writer, jsonOutput bool) error {
	results, err := db.SessionResults(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session %d: %w", sessionID, err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "No results found for session %d.\n", sessionID)
		fmt.Fprintln(out, "\nUse 'webcrawl history' to list archived sessions.")
		return nil
	}

	fmt.Fprintf(out, "Session %d (%d pages):\n\n", sessionID, len(results))
	for _, result := range results {
		line := result.FormatOutput()
		if result.Disallowed {
			line += " [robots disallowed]"
		}
		fmt.Fprintln(out, line)
	}

	return nil
}
