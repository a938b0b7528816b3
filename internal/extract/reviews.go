package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// minReviewRunes is the shortest review text kept from a <review> element
const minReviewRunes = 2

// ReviewExtractor recovers review texts from loosely structured .review markup
type ReviewExtractor struct {
	reviewTag   string
	uniqueIDTag string
}

// NewReviewExtractor creates a new review extractor
func NewReviewExtractor() *ReviewExtractor {
	return &ReviewExtractor{
		reviewTag:   "review",
		uniqueIDTag: "unique_id",
	}
}

// Extract returns the deduplicated review texts of one raw document, in document order.
// Malformed markup degrades to plain text; an empty slice means nothing was recoverable.
func (e *ReviewExtractor) Extract(raw string) []string {
	raw = ensureValidUTF8(raw)
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// html.Parse only fails on reader errors; treat the input as plain text
		return dedupeTexts(e.fallback(NormalizeSpaces(raw)))
	}

	tags := findAll(doc, isElement(e.reviewTag))
	if len(tags) == 0 {
		return dedupeTexts(e.fallback(visibleText(doc)))
	}

	reviews := make([]string, 0, len(tags))
	for _, tag := range tags {
		text := e.reviewText(tag)
		text = stripResidualMarkup(text)

		// Keep non-trivial reviews
		if utf8.RuneCountInString(text) >= minReviewRunes {
			reviews = append(reviews, text)
		}
	}

	return dedupeTexts(reviews)
}

// reviewText prefers the comment encoded in a nested <unique_id>, else the element's own text
func (e *ReviewExtractor) reviewText(tag *html.Node) string {
	if uid := findFirst(tag, isElement(e.uniqueIDTag)); uid != nil {
		if text := visibleText(uid); text != "" {
			return CommentFromUniqueID(text)
		}
	}
	return visibleText(tag)
}

// fallback treats the whole document as one id:comment:author record
func (e *ReviewExtractor) fallback(text string) []string {
	if text == "" {
		return nil
	}
	if comment := CommentFromUniqueID(text); comment != "" {
		return []string{comment}
	}
	return nil
}

// CommentFromUniqueID decodes an ID:COMMENT:AUTHOR string.
// With three or more colon-separated parts the second part is the comment
// (anything after the second colon is dropped, even when the comment itself
// contained colons); otherwise the whole string is kept. Underscores and
// commas become spaces and whitespace is normalized.
func CommentFromUniqueID(s string) string {
	comment := s
	if parts := strings.Split(s, ":"); len(parts) >= 3 {
		comment = parts[1]
	}

	comment = strings.ReplaceAll(comment, "_", " ")
	comment = strings.ReplaceAll(comment, ",", " ")
	return NormalizeSpaces(comment)
}

// dedupeTexts removes exact duplicates, keeping the first occurrence
func dedupeTexts(texts []string) []string {
	seen := make(map[string]bool, len(texts))
	unique := make([]string, 0, len(texts))

	for _, text := range texts {
		if !seen[text] {
			seen[text] = true
			unique = append(unique, text)
		}
	}

	return unique
}
