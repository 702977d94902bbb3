package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected
// default values. This serves as living documentation of the defaults;
// changes to a default will fail here and must be intentional.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Concurrency is 50", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 50 {
			t.Errorf("expected Concurrency to be 50, got %d", cfg.Concurrency)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default MaxRetries is 3", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxRetries != 3 {
			t.Errorf("expected MaxRetries to be 3, got %d", cfg.MaxRetries)
		}
	})

	t.Run("default RetryBaseDelay is 1 second", func(t *testing.T) {
		t.Parallel()
		if cfg.RetryBaseDelay != time.Second {
			t.Errorf("expected RetryBaseDelay to be 1s, got %v", cfg.RetryBaseDelay)
		}
	})

	t.Run("default MaxDepth is unlimited", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxDepth != -1 {
			t.Errorf("expected MaxDepth to be -1 (unlimited), got %d", cfg.MaxDepth)
		}
	})

	t.Run("default RespectRobots is true", func(t *testing.T) {
		t.Parallel()
		if !cfg.RespectRobots {
			t.Error("expected RespectRobots to be true")
		}
	})

	t.Run("default FollowRedirects is true", func(t *testing.T) {
		t.Parallel()
		if !cfg.FollowRedirects {
			t.Error("expected FollowRedirects to be true")
		}
	})

	t.Run("default UserAgent identifies webcrawl", func(t *testing.T) {
		t.Parallel()
		if cfg.UserAgent != "webcrawl/0.1.0" {
			t.Errorf("expected UserAgent 'webcrawl/0.1.0', got %q", cfg.UserAgent)
		}
	})

	t.Run("default MaxBodySize is 5MB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxBodySize != 5*1024*1024 {
			t.Errorf("expected MaxBodySize to be 5MB, got %d", cfg.MaxBodySize)
		}
	})
}

// TestConfigValidate tests configuration validation rules.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	// valid returns a Config that passes validation; tests mutate one field.
	valid := func() *Config {
		cfg := NewConfig()
		cfg.Seeds = []string{"https://example.com"}
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		t.Parallel()
		if err := valid().Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("no seeds", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Seeds = nil
		if err := cfg.Validate(); !errors.Is(err, ErrNoSeeds) {
			t.Errorf("expected ErrNoSeeds, got %v", err)
		}
	})

	t.Run("malformed seed URL", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Seeds = []string{"not-a-valid-url"}
		var invalidURL *InvalidURLError
		if err := cfg.Validate(); !errors.As(err, &invalidURL) {
			t.Errorf("expected InvalidURLError, got %v", err)
		}
	})

	t.Run("ftp seed is rejected", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Seeds = []string{"ftp://example.com/file"}
		var invalidURL *InvalidURLError
		if err := cfg.Validate(); !errors.As(err, &invalidURL) {
			t.Errorf("expected InvalidURLError, got %v", err)
		}
	})

	t.Run("zero concurrency", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Concurrency = 0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConcurrency) {
			t.Errorf("expected ErrInvalidConcurrency, got %v", err)
		}
	})

	t.Run("negative rate limit", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.RateLimit = -time.Second
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidRateLimit) {
			t.Errorf("expected ErrInvalidRateLimit, got %v", err)
		}
	})

	t.Run("zero timeout", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Timeout = 0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("expected ErrInvalidTimeout, got %v", err)
		}
	})

	t.Run("negative retries", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.MaxRetries = -1
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidMaxRetries) {
			t.Errorf("expected ErrInvalidMaxRetries, got %v", err)
		}
	})

	t.Run("malformed proxy", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Proxy = "::not-a-proxy"
		var invalidURL *InvalidURLError
		if err := cfg.Validate(); !errors.As(err, &invalidURL) {
			t.Errorf("expected InvalidURLError, got %v", err)
		}
	})

	t.Run("socks5 proxy is accepted", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Proxy = "socks5://127.0.0.1:9050"
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected socks5 proxy to validate, got %v", err)
		}
	})

	t.Run("conflicting report formats", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.JSONReport = true
		cfg.MarkdownReport = true
		if err := cfg.Validate(); !errors.Is(err, ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})
}

// TestLoadConfigFile tests YAML config file loading and application.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loads and applies values", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `
user_agent: "custom/2.0"
concurrency: 8
rate: 250ms
max_depth: 2
respect_robots: false
seeds:
  - https://example.com
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		cfg := NewConfig()
		cf.Apply(cfg)

		if cfg.UserAgent != "custom/2.0" {
			t.Errorf("expected user agent override, got %q", cfg.UserAgent)
		}
		if cfg.Concurrency != 8 {
			t.Errorf("expected concurrency 8, got %d", cfg.Concurrency)
		}
		if cfg.RateLimit != 250*time.Millisecond {
			t.Errorf("expected rate 250ms, got %v", cfg.RateLimit)
		}
		if cfg.MaxDepth != 2 {
			t.Errorf("expected max depth 2, got %d", cfg.MaxDepth)
		}
		if cfg.RespectRobots {
			t.Error("expected respect_robots false to apply")
		}
		if len(cfg.Seeds) != 1 || cfg.Seeds[0] != "https://example.com" {
			t.Errorf("expected file seeds to apply, got %v", cfg.Seeds)
		}
	})

	t.Run("invalid yaml fails", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("concurrency: [not an int"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error for invalid yaml")
		}
	})

	t.Run("nil file apply is a no-op", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		var cf *File
		cf.Apply(cfg)
		if cfg.Concurrency != DefaultConcurrency {
			t.Errorf("expected defaults untouched, got %d", cfg.Concurrency)
		}
	})
}

// TestFindConfigFile tests explicit-path handling.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path is returned", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "conf.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit missing path returns empty", func(t *testing.T) {
		t.Parallel()
		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})
}
