package model

import "strings"

// Sentiment is the classifier verdict. Unrecognized verdicts are SentimentUnknown,
// never passed through as raw strings.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentUnknown  Sentiment = "unknown"
)

// ParseSentiment maps a model verdict to a Sentiment (case-insensitive)
func ParseSentiment(s string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return SentimentPositive
	case "negative":
		return SentimentNegative
	default:
		return SentimentUnknown
	}
}

// Classification is the validated result of one classification call
type Classification struct {
	Sentiment  Sentiment `json:"sentiment"`
	Confidence *float64  `json:"confidence,omitempty"` // Only set when the model reported one
}
