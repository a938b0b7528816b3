// Package normalize turns free review text into fixed-length token sequences.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultMaxTokens = 128
	DefaultMinTokens = 5
	DefaultPadToken  = "<pad>"
)

var (
	// ErrSpellerRequired is returned by New when correction is enabled without a dictionary
	ErrSpellerRequired = errors.New("spelling correction enabled but no dictionary configured")

	// ErrInvalidOptions is returned by New for out-of-range limits
	ErrInvalidOptions = errors.New("invalid normalizer options")
)

var (
	digitPattern    = regexp.MustCompile(`[0-9]`)
	nonWordPattern  = regexp.MustCompile(`[^a-z\s']`)
	tokenPattern    = regexp.MustCompile(`[a-z]+'?[a-z]+|[a-z]+`)
	padTokenPattern = regexp.MustCompile(`^[a-z]+('[a-z]+)?$`)
)

// Speller corrects a single token. ok is false when no correction exists.
type Speller interface {
	Correct(word string) (corrected string, ok bool)
}

// Options configures a Normalizer
type Options struct {
	MaxTokens       int                 // Fixed output length
	MinTokens       int                 // Fewer non-pad tokens than this is a rejection
	CorrectSpelling bool                // Requires Speller
	Stopwords       map[string]struct{} // Dropped after tokenization; nil drops nothing
	Speller         Speller
	PadToken        string // Must not be a possible word token
}

// DefaultOptions returns the standard limits with the builtin stopwords and no correction
func DefaultOptions() Options {
	return Options{
		MaxTokens: DefaultMaxTokens,
		MinTokens: DefaultMinTokens,
		Stopwords: DefaultStopwords(),
		PadToken:  DefaultPadToken,
	}
}

// Normalizer cleans, filters and pads review text. It is immutable and safe for concurrent use.
type Normalizer struct {
	opts Options
}

// New validates options and creates a Normalizer
func New(opts Options) (*Normalizer, error) {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.MaxTokens < 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidOptions, opts.MaxTokens)
	}
	if opts.MinTokens < 0 {
		return nil, fmt.Errorf("%w: min tokens must not be negative, got %d", ErrInvalidOptions, opts.MinTokens)
	}
	if opts.PadToken == "" {
		opts.PadToken = DefaultPadToken
	}
	if padTokenPattern.MatchString(opts.PadToken) {
		return nil, fmt.Errorf("%w: pad token %q could collide with a word", ErrInvalidOptions, opts.PadToken)
	}
	if opts.CorrectSpelling && opts.Speller == nil {
		return nil, ErrSpellerRequired
	}

	return &Normalizer{opts: opts}, nil
}

// Options returns the configuration the normalizer was built with
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize converts text into a fixed-length token sequence or rejects it as too short
func (n *Normalizer) Normalize(text string) Result {
	tokens := Tokenize(text)
	tokens = n.dropStopwords(tokens)

	if n.opts.CorrectSpelling {
		tokens = n.correct(tokens)
	}

	// Enforce the fixed length
	if len(tokens) > n.opts.MaxTokens {
		tokens = tokens[:n.opts.MaxTokens]
	}
	nonPad := len(tokens)

	if nonPad < n.opts.MinTokens {
		return Result{
			Status: StatusRejected,
			Reason: fmt.Sprintf("too short after cleaning: %d < %d tokens", nonPad, n.opts.MinTokens),
			nonPad: nonPad,
		}
	}

	padded := make([]string, n.opts.MaxTokens)
	copy(padded, tokens)
	for i := nonPad; i < len(padded); i++ {
		padded[i] = n.opts.PadToken
	}

	return Result{
		Status: StatusOK,
		Tokens: padded,
		nonPad: nonPad,
	}
}

// Tokenize lowercases text, strips digits and punctuation (keeping in-word
// apostrophes) and returns the word tokens in order
func Tokenize(text string) []string {
	t := strings.ToLower(text)
	t = digitPattern.ReplaceAllString(t, " ")
	t = nonWordPattern.ReplaceAllString(t, " ")
	t = stripLooseApostrophes(t)

	return tokenPattern.FindAllString(t, -1)
}

// stripLooseApostrophes replaces apostrophes not flanked by letters on both sides.
// Input is already restricted to ASCII letters, whitespace and apostrophes.
func stripLooseApostrophes(s string) string {
	if !strings.Contains(s, "'") {
		return s
	}

	b := []byte(s)
	for i, c := range b {
		if c != '\'' {
			continue
		}
		if i == 0 || i == len(b)-1 || !isLetter(s[i-1]) || !isLetter(s[i+1]) {
			b[i] = ' '
		}
	}
	return string(b)
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func (n *Normalizer) dropStopwords(tokens []string) []string {
	if len(n.opts.Stopwords) == 0 {
		return tokens
	}

	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := n.opts.Stopwords[tok]; !stop {
			kept = append(kept, tok)
		}
	}
	return kept
}

// correct replaces each token with its top suggestion; misses keep the token
func (n *Normalizer) correct(tokens []string) []string {
	corrected := make([]string, len(tokens))
	for i, tok := range tokens {
		if fixed, ok := n.opts.Speller.Correct(tok); ok && fixed != "" {
			corrected[i] = fixed
		} else {
			corrected[i] = tok
		}
	}
	return corrected
}
