package spell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrDictionaryUnavailable means the frequency dictionary could not be opened
	ErrDictionaryUnavailable = errors.New("spelling dictionary unavailable")

	// ErrEmptyDictionary means the dictionary source held no usable entries
	ErrEmptyDictionary = errors.New("spelling dictionary is empty")
)

const (
	// DefaultMaxDictionaryEditDistance is the largest edit distance the delete index supports
	DefaultMaxDictionaryEditDistance = 2

	// DefaultPrefixLength limits delete generation to the first runes of each word.
	// Candidates are still verified against the whole word.
	DefaultPrefixLength = 7
)

// Suggestion is one correction candidate
type Suggestion struct {
	Term     string
	Distance int
	Count    int64
}

// entry is a dictionary word with its frequency and load order
type entry struct {
	count int64
	rank  int
}

// Dictionary is a symmetric-delete frequency dictionary.
// It is read-only after loading and safe for concurrent lookups.
type Dictionary struct {
	maxDistance  int
	prefixLength int // 0 indexes whole words
	words        map[string]entry
	deletes      map[string][]string // delete variant of a prefix -> dictionary words producing it
	maxLength    int
}

// NewDictionary creates an empty dictionary indexing deletes up to maxDistance edits
// of each word's first DefaultPrefixLength runes
func NewDictionary(maxDistance int) *Dictionary {
	return NewDictionaryWithPrefix(maxDistance, DefaultPrefixLength)
}

// NewDictionaryWithPrefix is NewDictionary with an explicit prefix length; 0 indexes whole words.
// A prefix no longer than maxDistance is widened to maxDistance+1.
func NewDictionaryWithPrefix(maxDistance, prefixLength int) *Dictionary {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDictionaryEditDistance
	}
	if prefixLength > 0 && prefixLength <= maxDistance {
		prefixLength = maxDistance + 1
	}

	return &Dictionary{
		maxDistance:  maxDistance,
		prefixLength: max(prefixLength, 0),
		words:        make(map[string]entry),
		deletes:      make(map[string][]string),
	}
}

// LoadFile opens and loads a frequency dictionary file (term and count columns)
func LoadFile(path string, maxDistance, termIndex, countIndex int) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryUnavailable, err)
	}
	defer func() { _ = f.Close() }()

	dict := NewDictionary(maxDistance)
	if err := dict.Load(f, termIndex, countIndex); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return dict, nil
}

// Load reads whitespace-separated lines and indexes the term and count columns.
// Lines that are too short or whose count does not parse are skipped.
func (d *Dictionary) Load(r io.Reader, termIndex, countIndex int) error {
	if err := scanEntries(r, termIndex, countIndex, d.Add); err != nil {
		return err
	}
	if len(d.words) == 0 {
		return ErrEmptyDictionary
	}
	return nil
}

// CountTerms parses a dictionary source like Load and returns its number of
// distinct terms without building the delete index
func CountTerms(r io.Reader, termIndex, countIndex int) (int, error) {
	seen := make(map[string]struct{})
	err := scanEntries(r, termIndex, countIndex, func(term string, _ int64) {
		seen[term] = struct{}{}
	})
	if err != nil {
		return 0, err
	}
	if len(seen) == 0 {
		return 0, ErrEmptyDictionary
	}
	return len(seen), nil
}

// scanEntries calls add for every line with a term and a positive count
func scanEntries(r io.Reader, termIndex, countIndex int, add func(term string, count int64)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) <= termIndex || len(fields) <= countIndex {
			continue
		}

		count, err := strconv.ParseInt(fields[countIndex], 10, 64)
		if err != nil || count <= 0 {
			continue
		}
		add(fields[termIndex], count)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan dictionary: %w", err)
	}
	return nil
}

// Add registers a term; repeated terms accumulate counts and keep their first rank
func (d *Dictionary) Add(term string, count int64) {
	if term == "" || count <= 0 {
		return
	}

	if existing, ok := d.words[term]; ok {
		existing.count += count
		d.words[term] = existing
		return
	}

	d.words[term] = entry{count: count, rank: len(d.words)}
	if n := len([]rune(term)); n > d.maxLength {
		d.maxLength = n
	}

	for variant := range deleteVariants(d.prefix(term), d.maxDistance) {
		d.deletes[variant] = append(d.deletes[variant], term)
	}
}

// prefix cuts word to the indexed prefix length
func (d *Dictionary) prefix(word string) string {
	if d.prefixLength == 0 {
		return word
	}
	if runes := []rune(word); len(runes) > d.prefixLength {
		return string(runes[:d.prefixLength])
	}
	return word
}

// Len returns the number of distinct terms
func (d *Dictionary) Len() int {
	return len(d.words)
}

// Contains reports whether term is a dictionary word
func (d *Dictionary) Contains(term string) bool {
	_, ok := d.words[term]
	return ok
}

// Lookup returns the single best suggestion within maxEditDistance:
// smallest distance, then highest count, then earliest load order.
// A dictionary word always suggests itself.
func (d *Dictionary) Lookup(word string, maxEditDistance int) (Suggestion, bool) {
	if word == "" {
		return Suggestion{}, false
	}
	if maxEditDistance > d.maxDistance {
		maxEditDistance = d.maxDistance
	}
	if maxEditDistance < 0 {
		maxEditDistance = 0
	}

	if e, ok := d.words[word]; ok {
		return Suggestion{Term: word, Distance: 0, Count: e.count}, true
	}

	wordRunes := []rune(word)
	if len(wordRunes)-maxEditDistance > d.maxLength {
		return Suggestion{}, false
	}

	var (
		best     Suggestion
		bestRank int
		found    bool
	)

	consider := func(term string) {
		e := d.words[term]
		dist := osaDistance(wordRunes, []rune(term), maxEditDistance)
		if dist < 0 {
			return
		}
		if !found || better(dist, e, best, bestRank) {
			best = Suggestion{Term: term, Distance: dist, Count: e.count}
			bestRank = e.rank
			found = true
		}
	}

	checked := make(map[string]bool)
	for variant := range deleteVariants(d.prefix(word), maxEditDistance) {
		// A delete of the input may itself be a dictionary word
		if _, ok := d.words[variant]; ok && !checked[variant] {
			checked[variant] = true
			consider(variant)
		}
		for _, term := range d.deletes[variant] {
			if !checked[term] {
				checked[term] = true
				consider(term)
			}
		}
	}

	return best, found
}

// better reports whether a candidate at dist with entry e beats the current best
func better(dist int, e entry, best Suggestion, bestRank int) bool {
	if dist != best.Distance {
		return dist < best.Distance
	}
	if e.count != best.Count {
		return e.count > best.Count
	}
	return e.rank < bestRank
}

// deleteVariants returns the word and every string reachable by deleting up to
// maxDistance runes, down to the empty string
func deleteVariants(word string, maxDistance int) map[string]struct{} {
	variants := map[string]struct{}{word: {}}
	frontier := []string{word}

	for depth := 0; depth < maxDistance; depth++ {
		var next []string
		for _, w := range frontier {
			runes := []rune(w)
			if len(runes) == 0 {
				continue
			}
			for i := range runes {
				v := string(runes[:i]) + string(runes[i+1:])
				if _, seen := variants[v]; !seen {
					variants[v] = struct{}{}
					next = append(next, v)
				}
			}
		}
		frontier = next
	}

	return variants
}

// osaDistance computes the optimal string alignment distance, or -1 if it exceeds maxDist
func osaDistance(a, b []rune, maxDist int) int {
	if abs(len(a)-len(b)) > maxDist {
		return -1
	}

	// Three rolling rows: two back, previous, current
	prevPrev := make([]int, len(b)+1)
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			v := min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				v = min(v, prevPrev[j-2]+1)
			}
			curr[j] = v
			if v < rowMin {
				rowMin = v
			}
		}
		if rowMin > maxDist {
			return -1
		}
		prevPrev, prev, curr = prev, curr, prevPrev
	}

	if prev[len(b)] > maxDist {
		return -1
	}
	return prev[len(b)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
