package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/sentiscope/internal/model"
)

// ErrMalformedResponse is returned when the model reply is not a usable classification object
var ErrMalformedResponse = errors.New("malformed classification response")

// ParseClassification validates a model reply. The reply must be a JSON object
// with a string "sentiment"; an optional numeric "confidence" must lie in [0, 1].
// Verdicts other than positive/negative map to SentimentUnknown.
func ParseClassification(content string) (model.Classification, error) {
	raw := stripCodeFence(strings.TrimSpace(content))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return model.Classification{}, fmt.Errorf("%w: not a JSON object: %q", ErrMalformedResponse, truncate(content, 80))
	}

	sentimentRaw, ok := fields["sentiment"]
	if !ok {
		return model.Classification{}, fmt.Errorf("%w: missing sentiment", ErrMalformedResponse)
	}
	var sentiment string
	if err := json.Unmarshal(sentimentRaw, &sentiment); err != nil {
		return model.Classification{}, fmt.Errorf("%w: sentiment is not a string", ErrMalformedResponse)
	}

	result := model.Classification{Sentiment: model.ParseSentiment(sentiment)}

	if confRaw, ok := fields["confidence"]; ok && string(confRaw) != "null" {
		var confidence float64
		if err := json.Unmarshal(confRaw, &confidence); err != nil {
			return model.Classification{}, fmt.Errorf("%w: confidence is not a number", ErrMalformedResponse)
		}
		if confidence < 0 || confidence > 1 {
			return model.Classification{}, fmt.Errorf("%w: confidence %v outside [0, 1]", ErrMalformedResponse, confidence)
		}
		result.Confidence = &confidence
	}

	return result, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
