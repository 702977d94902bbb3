package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the title and outbound links from HTML content.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
//  4. Standard library extension, well-maintained
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving
	// relative links. This must be the final URL after redirects.
	baseURL *url.URL
}

// ParseResult contains the information extracted from an HTML page.
type ParseResult struct {
	// Title is the trimmed text of the first <title> element, empty if
	// the page has none.
	Title string

	// Links are the absolute http(s) URLs from anchor href attributes,
	// resolved against the base URL and deduplicated with the first
	// occurrence kept. Order matches document order.
	Links []string
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts the title and links.
// It is best-effort and never fails: malformed HTML degrades to partial
// extraction, and an unreadable body yields an empty result.
func (p *Parser) Parse(content io.Reader) *ParseResult {
	result := &ParseResult{Links: make([]string, 0)}

	doc, err := html.Parse(content)
	if err != nil {
		// html.Parse only fails on reader errors; the tokenizer itself
		// accepts arbitrary garbage.
		return result
	}

	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if result.Title == "" {
					result.Title = strings.TrimSpace(textContent(n))
				}
			case "a":
				if href := getAttr(n, "href"); href != "" {
					if resolved := p.resolveLink(href); resolved != "" && !seen[resolved] {
						seen[resolved] = true
						result.Links = append(result.Links, resolved)
					}
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return result
}

// resolveLink resolves an href against the base URL and returns the
// absolute URL, or an empty string if the link is unusable. Links whose
// resolved scheme is not http or https (mailto:, javascript:, tel:,
// data:) are dropped.
func (p *Parser) resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	// Fragments address positions within a page, not distinct pages.
	resolved.Fragment = ""

	return resolved.String()
}

// textContent concatenates the text nodes under n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
