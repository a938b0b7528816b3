package spell

// DefaultMaxLookupEditDistance is the lookup radius used for per-token correction
const DefaultMaxLookupEditDistance = 1

// Corrector adapts a Dictionary to single-token correction
type Corrector struct {
	dict            *Dictionary
	maxEditDistance int
}

// NewCorrector creates a corrector looking up at most maxEditDistance edits away
func NewCorrector(dict *Dictionary, maxEditDistance int) *Corrector {
	if maxEditDistance < 0 {
		maxEditDistance = DefaultMaxLookupEditDistance
	}
	return &Corrector{
		dict:            dict,
		maxEditDistance: maxEditDistance,
	}
}

// Correct returns the top suggestion for word; ok is false when none exists.
// A nil dictionary never corrects.
func (c *Corrector) Correct(word string) (string, bool) {
	if c == nil || c.dict == nil {
		return word, false
	}

	suggestion, ok := c.dict.Lookup(word, c.maxEditDistance)
	if !ok {
		return word, false
	}
	return suggestion.Term, true
}
