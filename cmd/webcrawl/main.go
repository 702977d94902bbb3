// Package main is the webcrawl command-line interface.
//
// webcrawl is a polite, concurrent, breadth-first web crawler. It fetches
// pages starting from one or more seed URLs, extracts titles and links,
// honors robots.txt rules and crawl-delay directives, and produces
// human-readable, JSON, or Markdown reports.
package main

// main is the entry point for webcrawl.
func main() {
	Execute()
}
