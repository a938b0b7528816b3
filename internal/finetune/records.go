// Package finetune turns labeled rows into chat-format training records.
package finetune

import (
	"github.com/ppiankov/sentiscope/internal/model"
	"github.com/ppiankov/sentiscope/internal/normalize"
)

// SystemPrompt is the fixed instruction placed first in every record
const SystemPrompt = "You are a sentiment classifier. Reply with exactly 'positive' or 'negative'."

// UserPrefix precedes the review text in the user turn
const UserPrefix = "Classify the sentiment: "

// Message is one chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Record is one training example in chat format
type Record struct {
	Messages []Message `json:"messages"`
}

// NewRecord builds the system/user/assistant triple for an example
func NewRecord(ex model.Example) Record {
	return Record{
		Messages: []Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: UserPrefix + ex.Text},
			{Role: "assistant", Content: string(ex.Label)},
		},
	}
}

// Stats summarizes what Prepare kept and dropped
type Stats struct {
	Input      int
	Unlabeled  int // Label not positive/negative
	Rejected   int // Too short after normalization
	Duplicates int
	Kept       int
}

// Prepare normalizes labeled rows into unique examples. Rows without a
// trainable label or rejected by the normalizer are skipped.
func Prepare(rows []model.Row, n *normalize.Normalizer, keepPadding bool) ([]model.Example, Stats) {
	stats := Stats{Input: len(rows)}
	examples := []model.Example{}
	seen := make(map[string]struct{})

	for _, row := range rows {
		if !row.Label.IsTrainable() {
			stats.Unlabeled++
			continue
		}

		res := n.Normalize(row.Text)
		if !res.OK() {
			stats.Rejected++
			continue
		}

		// Dedupe on cleaned content so padding choice does not change the set
		key := res.Content()
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		text := key
		if keepPadding {
			text = res.String()
		}
		examples = append(examples, model.Example{Text: text, Label: row.Label})
	}

	stats.Kept = len(examples)
	return examples, stats
}
