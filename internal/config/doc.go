// Package config provides configuration structures and utilities for the
// webcrawl CLI. It defines the crawl behavior options (concurrency, rate
// limiting, retry policy, robots compliance) and report generation
// preferences, plus loading of the optional .webcrawl YAML file.
package config
