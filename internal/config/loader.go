package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".webcrawl"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the optional .webcrawl YAML configuration file.
// Every field is a default: explicitly set CLI flags always win.
//
// Example:
//
//	user_agent: "mycrawler/1.0"
//	concurrency: 20
//	rate: 250ms
//	respect_robots: true
//	seeds:
//	  - https://example.com
type File struct {
	// Seeds is an optional list of URLs to crawl, appended after any
	// positional arguments.
	Seeds []string `yaml:"seeds"`

	// UserAgent overrides the default User-Agent string.
	UserAgent string `yaml:"user_agent"`

	// Concurrency overrides the default concurrency limit when positive.
	Concurrency int `yaml:"concurrency"`

	// Rate is the global minimum interval between requests
	// (a Go duration string, e.g. "200ms", or numeric seconds).
	Rate Duration `yaml:"rate"`

	// Timeout overrides the per-request timeout when positive.
	Timeout Duration `yaml:"timeout"`

	// MaxRetries overrides the retry count when non-negative.
	// Nil (absent) leaves the default in place.
	MaxRetries *int `yaml:"max_retries"`

	// MaxPages overrides the page budget when positive.
	MaxPages int `yaml:"max_pages"`

	// MaxDepth overrides the depth limit. Nil (absent) leaves the
	// default in place; 0 is a valid value meaning seeds only.
	MaxDepth *int `yaml:"max_depth"`

	// Proxy is a proxy URL applied when the flag is not set.
	Proxy string `yaml:"proxy"`

	// RespectRobots overrides robots.txt compliance when present.
	RespectRobots *bool `yaml:"respect_robots"`

	// FollowRedirects overrides redirect following when present.
	FollowRedirects *bool `yaml:"follow_redirects"`
}

// LoadConfigFile loads crawl defaults from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound. Callers should
// handle this based on whether the path was explicitly specified.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
//  1. If configPath is specified, use it directly
//  2. Look for .webcrawl in the current directory
//  3. Look for .webcrawl in the user's home directory
//
// Returns the path if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply copies the file's values onto cfg.
// Only fields actually present in the file (non-zero, or non-nil for
// pointer fields) are applied; the caller then overrides with any
// explicitly set CLI flags.
func (f *File) Apply(cfg *Config) {
	if f == nil {
		return
	}

	if len(f.Seeds) > 0 {
		cfg.Seeds = append(cfg.Seeds, f.Seeds...)
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Rate.Duration > 0 {
		cfg.RateLimit = f.Rate.Duration
	}
	if f.Timeout.Duration > 0 {
		cfg.Timeout = f.Timeout.Duration
	}
	if f.MaxRetries != nil && *f.MaxRetries >= 0 {
		cfg.MaxRetries = *f.MaxRetries
	}
	if f.MaxPages > 0 {
		cfg.MaxPages = f.MaxPages
	}
	if f.MaxDepth != nil {
		cfg.MaxDepth = *f.MaxDepth
	}
	if f.Proxy != "" {
		cfg.Proxy = f.Proxy
	}
	if f.RespectRobots != nil {
		cfg.RespectRobots = *f.RespectRobots
	}
	if f.FollowRedirects != nil {
		cfg.FollowRedirects = *f.FollowRedirects
	}
}
