package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/proxy"

	"github.com/webcrawl-dev/webcrawl/internal/config"
	"github.com/webcrawl-dev/webcrawl/internal/model"
)

// newHTTPClient builds the crawl's HTTP client from the configuration.
// This is the only place a crawl can fail outright: a proxy that cannot
// be turned into a working transport is a construction error, reported
// before any fetch is attempted.
func newHTTPClient(cfg *config.Config) (*http.Client, error) {
	transport := &http.Transport{}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, &config.InvalidURLError{URL: cfg.Proxy, Proxy: true}
		}

		switch proxyURL.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(proxyURL)
		case "socks5":
			var auth *proxy.Auth
			if proxyURL.User != nil {
				password, _ := proxyURL.User.Password()
				auth = &proxy.Auth{User: proxyURL.User.Username(), Password: password}
			}
			dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
			}
			contextDialer, ok := dialer.(proxy.ContextDialer)
			if !ok {
				return nil, errors.New("SOCKS5 dialer does not support context dialing")
			}
			transport.DialContext = contextDialer.DialContext
		default:
			return nil, &config.InvalidURLError{URL: cfg.Proxy, Proxy: true}
		}
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}

	if !cfg.FollowRedirects {
		// Record 3xx responses as terminal results instead of chasing them.
		client.CheckRedirect = func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return client, nil
}

// transientStatusError marks an HTTP status worth retrying (429 or 5xx).
// It carries the status code so retry exhaustion can still record the
// last-observed status in the result.
type transientStatusError struct {
	statusCode int
}

// Error implements the error interface.
func (e *transientStatusError) Error() string {
	return fmt.Sprintf("transient HTTP status %d", e.statusCode)
}

// isTransientStatus reports whether the status code warrants a retry.
// Everything else, including 3xx and non-429 4xx, is terminal.
func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// fetchOne performs one logical page fetch and always produces exactly
// one CrawlResult; no failure escapes past this boundary.
//
// Steps, in order: acquire a concurrency permit, consult robots.txt (the
// disallowed outcome short-circuits with no HTTP request), then attempt
// the GET under the retry policy. Each attempt re-waits the per-domain
// crawl-delay and the global rate limit, so retries are as polite as
// first attempts.
func (c *Crawler) fetchOne(ctx context.Context, entry frontierEntry) *model.CrawlResult {
	result := &model.CrawlResult{
		URL:   entry.url,
		Depth: entry.depth,
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		c.recordResult(result)
	}()

	if err := c.limiter.Acquire(ctx); err != nil {
		result.Err = err.Error()
		return result
	}
	defer c.limiter.Release()

	pageURL, err := url.Parse(entry.url)
	if err != nil {
		result.Err = fmt.Sprintf("invalid URL: %v", err)
		return result
	}

	if c.cfg.RespectRobots && !c.robots.Allowed(ctx, pageURL) {
		c.logger.Debug("robots.txt disallows URL", "url", entry.url)
		result.Disallowed = true
		return result
	}

	var (
		statusCode int
		finalURL   string
		body       []byte
	)

	attempt := 0
	operation := func() error {
		attempt++

		if c.cfg.RespectRobots {
			if err := c.robots.DelayIfNeeded(ctx, pageURL); err != nil {
				return backoff.Permanent(err)
			}
		}
		if err := c.limiter.WaitDispatch(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		resp, err := c.client.Do(req)
		if c.cfg.RespectRobots {
			// The crawl-delay clock measures from the most recent
			// request, successful or not.
			c.robots.UpdateLastAccess(pageURL)
		}
		if err != nil {
			c.logger.Debug("fetch attempt failed",
				"url", entry.url, "attempt", attempt, "error", err)
			return err
		}
		defer resp.Body.Close() //nolint:errcheck // Best-effort close on read path

		if isTransientStatus(resp.StatusCode) {
			statusCode = resp.StatusCode
			c.logger.Debug("transient status, will retry",
				"url", entry.url, "attempt", attempt, "status", resp.StatusCode)
			return &transientStatusError{statusCode: resp.StatusCode}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodySize))
		if err != nil {
			return err
		}

		statusCode = resp.StatusCode
		finalURL = resp.Request.URL.String()
		if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
			body = data
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(c.newBackOff(), uint64(c.cfg.MaxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		var transient *transientStatusError
		switch {
		case errors.As(err, &transient):
			// Retries exhausted on 429/5xx; the last status is the result.
			result.StatusCode = transient.statusCode
		default:
			result.Err = err.Error()
		}
		return result
	}

	result.StatusCode = statusCode

	if result.OK() && body != nil {
		parser, err := NewParser(finalURL)
		if err == nil {
			parsed := parser.Parse(strings.NewReader(string(body)))
			result.Title = parsed.Title
			result.Links = parsed.Links
		}
	}

	return result
}

// newBackOff builds the per-fetch retry schedule: base, base*2, base*4
// and so on, with no jitter.
//
// Design decision: Jitter is deliberately disabled. A single crawler
// process gains little from it, and a deterministic schedule keeps retry
// timing observable in tests and logs.
func (c *Crawler) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryBaseDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = config.DefaultRetryBaseDelay
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 5 * time.Minute
	b.MaxElapsedTime = 0 // Bounded by retry count, not wall clock.
	return b
}
