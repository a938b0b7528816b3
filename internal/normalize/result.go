package normalize

import "strings"

// Status tags a normalization outcome
type Status int

const (
	StatusOK       Status = iota // Tokens holds exactly MaxTokens entries
	StatusRejected               // Too short after cleaning; skip the record
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is the outcome of one Normalize call
type Result struct {
	Status Status
	Tokens []string // Padded or truncated to MaxTokens; nil when rejected
	Reason string   // Set when rejected

	nonPad int
}

// OK reports whether the text was accepted
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// NonPad returns the number of real (non-pad) tokens
func (r Result) NonPad() int {
	return r.nonPad
}

// Words returns the real tokens without padding
func (r Result) Words() []string {
	if !r.OK() {
		return nil
	}
	return r.Tokens[:r.nonPad]
}

// String returns the space-joined padded sequence, or "" when rejected
func (r Result) String() string {
	return strings.Join(r.Tokens, " ")
}

// Content returns the space-joined real tokens, without padding
func (r Result) Content() string {
	return strings.Join(r.Words(), " ")
}
