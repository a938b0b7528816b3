package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/sentiscope/internal/logger"
)

const (
	// DefaultAnthropicModel is used when no model is configured
	DefaultAnthropicModel = "claude-3-5-haiku-20241022"

	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"

	// jsonPrefill opens the assistant turn so the reply continues a JSON object
	jsonPrefill = "{"
)

// ErrMissingAPIKey is returned by hosted providers created without credentials
var ErrMissingAPIKey = errors.New("API key is required")

// AnthropicProvider classifies through the Anthropic Messages API
type AnthropicProvider struct {
	client *jsonClient
	config Config
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	Model      string           `json:"model"`
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      anthropicUsage   `json:"usage"`
}

// NewAnthropicProvider creates an Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}

	return &AnthropicProvider{
		client: &jsonClient{
			baseURL: baseURL,
			http:    newHTTPClient(config, 30*time.Second),
			headers: map[string]string{
				"x-api-key":         config.APIKey,
				"anthropic-version": anthropicVersion,
			},
			errorOf: anthropicErrorOf,
		},
		config: config,
	}, nil
}

func anthropicErrorOf(body []byte) (string, string, bool) {
	var e struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil || e.Error.Message == "" {
		return "", "", false
	}
	return e.Error.Type, e.Error.Message, true
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) model(override string) string {
	switch {
	case override != "":
		return override
	case p.config.Model != "":
		return p.config.Model
	default:
		return DefaultAnthropicModel
	}
}

// IsAvailable sends a one-token request to verify the key and model
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	req := anthropicRequest{
		Model:     p.model(""),
		MaxTokens: 1,
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
	}

	var resp anthropicResponse
	if err := p.client.do(ctx, http.MethodPost, "/v1/messages", req, &resp); err != nil {
		logger.Warn("Anthropic availability check failed: %v", err)
		return false
	}
	return true
}

// Classify asks for a JSON verdict, prefilling "{" so the model cannot add prose first
func (p *AnthropicProvider) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	apiReq := anthropicRequest{
		Model:     p.model(req.Model),
		MaxTokens: resolveMaxTokens(req.MaxTokens, p.config.MaxTokens),
		System:    SystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: BuildPrompt(req.Text, req.Examples)},
			{Role: "assistant", Content: jsonPrefill},
		},
		Temperature: float64(p.config.Temperature),
	}

	var resp anthropicResponse
	if err := p.client.do(ctx, http.MethodPost, "/v1/messages", apiReq, &resp); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(text.String())
	if content == "" {
		return nil, fmt.Errorf("anthropic: no text in response (stop reason %q)", resp.StopReason)
	}

	// The reply continues the prefill unless the model restated it
	if !strings.HasPrefix(content, jsonPrefill) {
		content = jsonPrefill + content
	}

	return &ClassifyResponse{
		Content:    content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
