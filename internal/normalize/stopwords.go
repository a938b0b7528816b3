package normalize

// defaultStopwords is the basic English stopword list (articles, conjunctions,
// prepositions, copulas and pronouns)
var defaultStopwords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "so", "of", "at", "by", "for", "to",
	"in", "on", "with", "as", "is", "it", "this", "that", "these", "those", "am", "are", "was",
	"were", "be", "been", "being", "i", "you", "he", "she", "we", "they", "them", "me", "my",
	"mine", "your", "yours", "his", "her", "its", "our", "ours", "their", "theirs",
}

// DefaultStopwords returns a fresh copy of the builtin stopword set
func DefaultStopwords() map[string]struct{} {
	return StopwordSet(defaultStopwords...)
}

// StopwordSet builds a stopword set from words
func StopwordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
