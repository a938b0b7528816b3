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

const ollamaBaseURL = "http://localhost:11434"

// ErrModelRequired is returned when a provider has no default model and none is configured
var ErrModelRequired = errors.New("model must be specified")

// OllamaProvider classifies with a local Ollama model through /api/chat
type OllamaProvider struct {
	client *jsonClient
	config Config
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewOllamaProvider creates an Ollama provider. No API key is needed.
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = ollamaBaseURL
	}

	return &OllamaProvider{
		client: &jsonClient{
			baseURL: baseURL,
			// Local models can take a while to load on first use
			http:    newHTTPClient(config, 60*time.Second),
			errorOf: ollamaErrorOf,
		},
		config: config,
	}, nil
}

func ollamaErrorOf(body []byte) (string, string, bool) {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil || e.Error == "" {
		return "", "", false
	}
	return "", e.Error, true
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks that the server answers and, when a model is configured, that it is pulled
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	var tags ollamaTags
	if err := p.client.do(ctx, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		logger.Warn("Ollama availability check failed: %v", err)
		return false
	}

	if p.config.Model == "" {
		return true
	}
	for _, m := range tags.Models {
		if sameOllamaModel(m.Name, p.config.Model) {
			return true
		}
	}
	logger.Warn("Ollama model %q is not pulled", p.config.Model)
	return false
}

// sameOllamaModel treats "llama3.2" and "llama3.2:latest" as the same model
func sameOllamaModel(a, b string) bool {
	norm := func(s string) string {
		if !strings.Contains(s, ":") {
			return s + ":latest"
		}
		return s
	}
	return norm(a) == norm(b)
}

// Classify sends one JSON-mode chat request
func (p *OllamaProvider) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		return nil, fmt.Errorf("ollama: %w (e.g., llama3.2, mistral)", ErrModelRequired)
	}

	prompt := BuildPrompt(req.Text, req.Examples)
	apiReq := ollamaChatRequest{
		Model: model,
		Messages: []ollamaMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Format: "json",
		Options: ollamaOptions{
			Temperature: float64(p.config.Temperature),
			NumPredict:  resolveMaxTokens(req.MaxTokens, p.config.MaxTokens),
		},
	}

	var resp ollamaChatResponse
	if err := p.client.do(ctx, http.MethodPost, "/api/chat", apiReq, &resp); err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	content := strings.TrimSpace(resp.Message.Content)

	// Some models omit counts; estimate about 4 characters per token
	tokensUsed := resp.PromptEvalCount + resp.EvalCount
	if tokensUsed == 0 {
		tokensUsed = (len(SystemPrompt) + len(prompt) + len(content)) / 4
	}

	return &ClassifyResponse{
		Content:    content,
		Model:      resp.Model,
		TokensUsed: tokensUsed,
	}, nil
}
