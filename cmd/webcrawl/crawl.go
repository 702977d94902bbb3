package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/webcrawl-dev/webcrawl/internal/config"
	"github.com/webcrawl-dev/webcrawl/internal/crawler"
	"github.com/webcrawl-dev/webcrawl/internal/database"
	"github.com/webcrawl-dev/webcrawl/internal/log"
	"github.com/webcrawl-dev/webcrawl/internal/model"
	"github.com/webcrawl-dev/webcrawl/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl the web breadth-first from one or more seed URLs",
		Long: `Crawl fetches pages breadth-first starting from the given seed URLs.

For each page it records the HTTP status, the <title> text, and every
same-scheme link, then follows the discovered links level by level.
Robots.txt rules and crawl-delay directives are honored per domain,
and transient failures (network errors, 429, 5xx) are retried with
exponential backoff.

Examples:
  # Crawl a single site
  webcrawl crawl https://example.com

  # Crawl multiple seeds with a global rate limit
  webcrawl crawl -r 200ms https://example.com https://example.org

  # Limit the crawl to 100 pages at most two levels deep
  webcrawl crawl -m 100 -d 2 https://example.com

  # Crawl through a SOCKS5 proxy
  webcrawl crawl -p socks5://127.0.0.1:9050 https://example.com

  # Output a JSON report to a file
  webcrawl crawl -j -o report.json https://example.com

Configuration file (.webcrawl) example:
  user_agent: "mycrawler/1.0"
  concurrency: 20
  rate: 250ms
  max_depth: 3
  seeds:
    - https://example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Maximum number of in-flight fetches across the whole crawl")
	cmd.Flags().DurationP("rate", "r", 0,
		"Global minimum interval between requests (e.g. 200ms; 0 disables)")
	cmd.Flags().IntP("max-pages", "m", 0,
		"Maximum number of pages in the aggregate result (0 = unlimited)")
	cmd.Flags().IntP("max-depth", "d", -1,
		"Maximum crawl depth; seeds are depth 0 (-1 = unlimited)")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header and robots.txt agent name")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout, retries excluded")
	cmd.Flags().Int("retries", config.DefaultMaxRetries,
		"Additional attempts after a transient failure (network error, 429, 5xx)")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryBaseDelay,
		"Exponential backoff base for retries")
	cmd.Flags().StringP("proxy", "p", "",
		"Proxy URL (http, https, or socks5 scheme)")
	cmd.Flags().Bool("respect-robots", true,
		"Honor robots.txt rules and crawl-delay directives")
	cmd.Flags().Bool("follow-redirects", true,
		"Follow HTTP redirects (up to 10 hops)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body bytes to read per page")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .webcrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().Bool("markdown", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-db", false,
		"Skip archiving the crawl to the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags and optional config file
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	cfg.Verbose = getVerboseFlag(cmd)
	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
// Precedence, lowest to highest: built-in defaults, the .webcrawl config
// file, explicitly set CLI flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Positional arguments come first; config-file seeds are appended after.
	cfg.Seeds = args

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently skip when no file is found.
	explicitConfigPath := configPath != ""
	foundPath := config.FindConfigFile(configPath)

	if foundPath != "" {
		file, err := config.LoadConfigFile(foundPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", foundPath, err)
		}
		file.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	// Explicitly set flags override config-file values. Flags left at
	// their defaults are skipped so the file's values survive.
	flags := cmd.Flags()

	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate") {
		if cfg.RateLimit, err = flags.GetDuration("rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-depth") {
		if cfg.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("retries") {
		if cfg.MaxRetries, err = flags.GetInt("retries"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("retry-delay") {
		if cfg.RetryBaseDelay, err = flags.GetDuration("retry-delay"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("respect-robots") {
		if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("follow-redirects") {
		if cfg.FollowRedirects, err = flags.GetBool("follow-redirects"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-body-size") {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return nil, err
		}
	}

	cfg.JSONReport, err = flags.GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = flags.GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = flags.GetString("output")
	if err != nil {
		return nil, err
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	return cfg, nil
}

// setupLogger creates a structured logger based on verbosity setting.
// The handler masks credentials embedded in logged URLs (proxy
// authentication in particular) before they reach the terminal.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// runCrawl executes the crawl and reports the results.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"concurrency", cfg.Concurrency,
		"maxPages", cfg.MaxPages,
		"maxDepth", cfg.MaxDepth,
		"respectRobots", cfg.RespectRobots,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if archiving is enabled
	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	c, err := crawler.New(cfg, crawler.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create crawler: %w", err)
	}

	startTime := time.Now()
	results, crawlErr := c.Crawl(ctx)
	elapsed := time.Since(startTime)

	// An interrupted crawl still reports and archives the pages gathered
	// so far; the cancellation error is surfaced after both.
	if crawlErr != nil {
		logger.Warn("crawl interrupted", "error", crawlErr, "pages", len(results))
	}

	stats := c.Stats()
	summary := model.NewSummary(cfg.Seeds, results, startTime, elapsed, stats.URLsSeen)
	rep := report.New(getVersion(), summary, results)

	if err := outputReport(cfg, rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if err := saveCrawl(ctx, db, summary, results, logger); err != nil {
		logger.Error("failed to archive crawl", "error", err)
	}

	return crawlErr
}

// outputReport outputs the crawl report in the requested format.
func outputReport(cfg *config.Config, rep *report.Report) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithShowErrors(cfg.Verbose))
	}

	_, err := w.Write(rep)
	return err
}

// saveCrawl archives the crawl to the history database.
// If db is nil, this function is a no-op.
func saveCrawl(ctx context.Context, db *database.CrawlDB, summary *model.Summary, results []*model.CrawlResult, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	// Archiving happens after the crawl, so a cancelled crawl context must
	// not prevent the partial results from being stored.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}

	sessionID, err := db.SaveCrawl(ctx, summary, results)
	if err != nil {
		return err
	}

	logger.Info("crawl archived", "sessionID", sessionID, "pages", len(results))
	return nil
}
