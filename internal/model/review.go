package model

import "strings"

// Label is the polarity tag attached to a review source
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNone     Label = "" // Unlabeled source
)

// ParseLabel maps free-form label text to a Label.
// Anything other than positive/negative is LabelNone.
func ParseLabel(s string) Label {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return LabelPositive
	case "negative":
		return LabelNegative
	default:
		return LabelNone
	}
}

// IsTrainable reports whether the label can be used as a supervised target
func (l Label) IsTrainable() bool {
	return l == LabelPositive || l == LabelNegative
}

// Row is one dataset row recovered from a review source
type Row struct {
	Category string `json:"category"`        // Source category (e.g., "books")
	Text     string `json:"text"`            // ReviewText
	Label    Label  `json:"label,omitempty"` // Empty for unlabeled rows
}

// Example is a cleaned, labeled row ready for few-shot prompts or fine-tuning
type Example struct {
	Text  string `json:"text"`  // Normalized token text
	Label Label  `json:"label"`
}
