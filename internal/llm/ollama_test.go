package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func ollamaServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OllamaProvider) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.2", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return server, provider
}

func TestOllamaProvider_Classify_Success(t *testing.T) {
	var captured ollamaChatRequest
	var raw map[string]any

	_, provider := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected path /api/chat, got %s", r.URL.Path)
		}
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		_ = json.Unmarshal(body, &captured)
		_ = json.Unmarshal(body, &raw)

		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:           "llama3.2",
			Message:         ollamaMessage{Role: "assistant", Content: ` {"sentiment":"negative"} `},
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		})
	})

	resp, err := provider.Classify(context.Background(), ClassifyRequest{Text: "broken on arrival"})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if resp.Content != `{"sentiment":"negative"}` {
		t.Errorf("Unexpected content: %q", resp.Content)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("Unexpected token usage: %d", resp.TokensUsed)
	}

	if captured.Format != "json" || captured.Stream {
		t.Errorf("Expected JSON mode without streaming, got format=%q stream=%v", captured.Format, captured.Stream)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Content != SystemPrompt {
		t.Fatalf("Expected system + user messages, got %+v", captured.Messages)
	}
	if !strings.Contains(captured.Messages[1].Content, `text: "broken on arrival"`) {
		t.Errorf("Unexpected user turn: %q", captured.Messages[1].Content)
	}
	opts, _ := raw["options"].(map[string]any)
	if _, ok := opts["temperature"]; !ok {
		t.Error("Expected temperature to be sent even when zero")
	}
}

func TestOllamaProvider_Classify_EstimatesTokens(t *testing.T) {
	_, provider := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   "llama3.2",
			Message: ollamaMessage{Role: "assistant", Content: `{"sentiment":"positive"}`},
			Done:    true,
		})
	})

	resp, err := provider.Classify(context.Background(), ClassifyRequest{Text: "fine"})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if resp.TokensUsed == 0 {
		t.Error("Expected a token estimate when counts are missing")
	}
}

func TestOllamaProvider_Classify_APIError(t *testing.T) {
	_, provider := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'llama3.2' not found"}`))
	})

	_, err := provider.Classify(context.Background(), ClassifyRequest{Text: "x"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusNotFound || !strings.Contains(apiErr.Message, "not found") {
		t.Errorf("Unexpected API error: %+v", apiErr)
	}
	if IsTemporary(err) {
		t.Error("Expected 404 to be permanent")
	}
}

func TestOllamaProvider_Classify_MalformedJSON(t *testing.T) {
	_, provider := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{malformed json`))
	})

	if _, err := provider.Classify(context.Background(), ClassifyRequest{Text: "x"}); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"model pulled", http.StatusOK, `{"models":[{"name":"mistral:7b"},{"name":"llama3.2:latest"}]}`, true},
		{"model missing", http.StatusOK, `{"models":[{"name":"mistral:7b"}]}`, false},
		{"server error", http.StatusInternalServerError, ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, provider := ollamaServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/tags" {
					t.Errorf("Expected /api/tags, got %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			if got := provider.IsAvailable(context.Background()); got != tt.want {
				t.Errorf("IsAvailable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOllamaProvider_Classify_NoModel(t *testing.T) {
	provider, err := NewOllamaProvider(Config{})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Classify(context.Background(), ClassifyRequest{Text: "x"})
	if !errors.Is(err, ErrModelRequired) {
		t.Errorf("Expected ErrModelRequired, got %v", err)
	}
}

func TestSameOllamaModel(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"llama3.2", "llama3.2:latest", true},
		{"llama3.2:latest", "llama3.2:latest", true},
		{"llama3.2:1b", "llama3.2", false},
		{"mistral", "llama3.2", false},
	}
	for _, tt := range tests {
		if got := sameOllamaModel(tt.a, tt.b); got != tt.want {
			t.Errorf("sameOllamaModel(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
