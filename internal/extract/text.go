package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// residualTag matches markup that survived parsing as literal text (e.g. "&lt;b&gt;" decoded to "<b>")
var residualTag = regexp.MustCompile(`<[^>]+>`)

// NormalizeSpaces collapses any run of whitespace into a single space and trims both ends
func NormalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DecodeBestEffort converts raw file bytes into valid UTF-8.
// A leading byte order mark selects the encoding and is stripped; invalid
// sequences become U+FFFD. It never fails.
func DecodeBestEffort(b []byte) string {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return strings.ToValidUTF8(string(out), "\uFFFD")
}

// ensureValidUTF8 replaces invalid byte sequences in an already-loaded string
func ensureValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}

// stripResidualMarkup removes literal <...> sequences and re-normalizes whitespace
func stripResidualMarkup(s string) string {
	return NormalizeSpaces(residualTag.ReplaceAllString(s, " "))
}

// visibleText joins all text nodes under n with single spaces, skipping scripts/styles
func visibleText(n *html.Node) string {
	var parts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return NormalizeSpaces(strings.Join(parts, " "))
}

// findAll finds all nodes matching a predicate in document order
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// findFirst finds the first descendant of n matching a predicate
func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if predicate(c) {
				result = c
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}

// isElement returns a predicate matching elements with the given (lowercase) tag name
func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && strings.EqualFold(n.Data, tag)
	}
}
