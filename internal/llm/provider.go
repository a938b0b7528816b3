package llm

import (
	"context"
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to answer with a single JSON object
const SystemPrompt = "You are a sentiment classifier for short English reviews. " +
	"Return ONLY valid JSON: {\"sentiment\":\"positive|negative\"}."

// Provider is a hosted or local model that can answer one classification prompt
type Provider interface {
	Name() string

	// Classify returns the raw reply; ParseClassification interprets it
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error)

	// IsAvailable reports whether credentials and model are usable
	IsAvailable(ctx context.Context) bool
}

// ClassifyRequest contains the input for one classification call
type ClassifyRequest struct {
	// Text is the review to classify
	Text string

	// Examples is the rendered few-shot block (may be empty)
	Examples string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// ClassifyResponse contains the raw model output
type ClassifyResponse struct {
	// Content is the reply text, expected to be a JSON object
	Content string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config selects and tunes one provider
type Config struct {
	Provider string // openai, anthropic (alias claude), ollama; empty disables classification
	Model    string // Provider default when empty
	APIKey   string
	BaseURL  string // Overrides the public endpoint, e.g. a local Ollama or an OpenAI-compatible gateway

	Timeout     int // Per-request timeout in seconds
	MaxTokens   int
	Temperature float32 // 0 keeps verdicts deterministic

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// BuildPrompt constructs the user turn: the few-shot block followed by the text to classify
func BuildPrompt(text, examples string) string {
	var b strings.Builder
	if examples != "" {
		fmt.Fprintf(&b, "Here are labeled examples:\n%s\n\n", examples)
		b.WriteString("Now classify this text with the same labels.\n")
	} else {
		b.WriteString("Classify this text.\n")
	}
	fmt.Fprintf(&b, "text: \"%s\"", text)
	return b.String()
}

func resolveMaxTokens(reqMax, configMax int) int {
	if reqMax > 0 {
		return reqMax
	}
	if configMax > 0 {
		return configMax
	}
	return 20
}
