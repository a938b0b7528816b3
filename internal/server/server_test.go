package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/sentiscope/internal/llm"
	"github.com/ppiankov/sentiscope/internal/model"
)

// MockClassifier implements Classifier
type MockClassifier struct {
	mu     sync.Mutex
	result model.Classification
	err    error
	texts  []string
}

func (m *MockClassifier) Classify(ctx context.Context, text string) (model.Classification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return m.result, m.err
}

func (m *MockClassifier) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

func testServerConfig() model.ServerConfig {
	cfg := model.DefaultConfig().Server
	cfg.RequestsPerSecond = 0
	return cfg
}

func doJSON(t *testing.T, s *Server, method, path, body string, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("Invalid JSON %q: %v", data, err)
		}
	}
	return resp, out
}

func TestClassify_Success(t *testing.T) {
	conf := 0.93
	classifier := &MockClassifier{result: model.Classification{Sentiment: model.SentimentNegative, Confidence: &conf}}
	s := New(classifier, testServerConfig(), Options{})

	resp, body := doJSON(t, s, http.MethodPost, "/classify", `{"text":"  awful support, totally broken and late  "}`, nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["sentiment"] != "negative" {
		t.Errorf("Expected negative, got %v", body["sentiment"])
	}
	if body["confidence"] != 0.93 {
		t.Errorf("Expected confidence 0.93, got %v", body["confidence"])
	}
	if got := classifier.calls(); len(got) != 1 || got[0] != "awful support, totally broken and late" {
		t.Errorf("Expected trimmed text passed to classifier, got %q", got)
	}
}

func TestClassify_NoConfidenceOmitted(t *testing.T) {
	classifier := &MockClassifier{result: model.Classification{Sentiment: model.SentimentPositive}}
	s := New(classifier, testServerConfig(), Options{})

	_, body := doJSON(t, s, http.MethodPost, "/classify", `{"text":"loved it"}`, nil)
	if _, ok := body["confidence"]; ok {
		t.Errorf("Expected no confidence field, got %v", body)
	}
}

func TestClassify_TextRequired(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", `{"text":""}`},
		{"whitespace", `{"text":"   \n\t "}`},
		{"missing", `{}`},
		{"null", `{"text":null}`},
		{"invalid json", `{"text":`},
		{"no body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := &MockClassifier{}
			s := New(classifier, testServerConfig(), Options{})

			resp, body := doJSON(t, s, http.MethodPost, "/classify", tt.body, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", resp.StatusCode)
			}
			if body["error"] != "text is required" {
				t.Errorf("Expected text is required, got %v", body)
			}
			if len(classifier.calls()) != 0 {
				t.Error("Expected classifier not to be called")
			}
		})
	}
}

func TestClassify_TooLong(t *testing.T) {
	cfg := testServerConfig()
	cfg.MaxTextBytes = 16
	s := New(&MockClassifier{}, cfg, Options{})

	resp, body := doJSON(t, s, http.MethodPost, "/classify", `{"text":"this text is longer than sixteen bytes"}`, nil)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", resp.StatusCode)
	}
	if body["error"] != "text too long" {
		t.Errorf("Expected text too long, got %v", body)
	}
}

func TestClassify_ClassifierError(t *testing.T) {
	classifier := &MockClassifier{err: errors.New("provider exploded")}
	s := New(classifier, testServerConfig(), Options{})

	resp, body := doJSON(t, s, http.MethodPost, "/classify", `{"text":"fine"}`, nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", resp.StatusCode)
	}
	if body["error"] != "classification_failed" {
		t.Errorf("Expected classification_failed, got %v", body["error"])
	}
	if body["detail"] != "provider exploded" {
		t.Errorf("Expected detail provider exploded, got %v", body["detail"])
	}
}

func TestClassify_RetryableFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"rate limited upstream", fmt.Errorf("openai: %w", &llm.APIError{Status: 429, Message: "slow down"}), http.StatusServiceUnavailable},
		{"upstream outage", &llm.APIError{Status: 502, Message: "bad gateway"}, http.StatusServiceUnavailable},
		{"rejected request", &llm.APIError{Status: 400, Message: "bad"}, http.StatusInternalServerError},
		{"deadline", fmt.Errorf("ollama: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&MockClassifier{err: tt.err}, testServerConfig(), Options{})
			resp, body := doJSON(t, s, http.MethodPost, "/classify", `{"text":"fine"}`, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, resp.StatusCode)
			}
			if body["error"] != "classification_failed" {
				t.Errorf("Expected classification_failed, got %v", body["error"])
			}
		})
	}
}

func TestClassify_EmptyTextErrorFromClassifier(t *testing.T) {
	classifier := &MockClassifier{err: llm.ErrEmptyText}
	s := New(classifier, testServerConfig(), Options{})

	resp, _ := doJSON(t, s, http.MethodPost, "/classify", `{"text":"x"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestClassify_RateLimited(t *testing.T) {
	cfg := testServerConfig()
	cfg.RequestsPerSecond = 0.01
	cfg.BurstSize = 2
	s := New(&MockClassifier{result: model.Classification{Sentiment: model.SentimentPositive}}, cfg, Options{})

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, s, http.MethodPost, "/classify", `{"text":"ok then"}`, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected request %d to pass, got %d", i+1, resp.StatusCode)
		}
	}

	resp, body := doJSON(t, s, http.MethodPost, "/classify", `{"text":"ok then"}`, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", resp.StatusCode)
	}
	if body["error"] != "rate_limited" {
		t.Errorf("Expected rate_limited, got %v", body)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}

	// Health is not rate limited
	resp, _ = doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected healthz 200 while limited, got %d", resp.StatusCode)
	}
}

func TestIndex(t *testing.T) {
	s := New(&MockClassifier{}, testServerConfig(), Options{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected text/html, got %s", ct)
	}

	page, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"<textarea", "/classify", "bg-success", "bg-danger", "bg-secondary", "Confidence"} {
		if !strings.Contains(string(page), want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
}

func TestHealthz(t *testing.T) {
	s := New(&MockClassifier{}, testServerConfig(), Options{Provider: "openai"})

	resp, body := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "ok" || body["provider"] != "openai" {
		t.Errorf("Unexpected health body: %v", body)
	}
}

func TestRequestID(t *testing.T) {
	s := New(&MockClassifier{}, testServerConfig(), Options{})

	resp, _ := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	if id := resp.Header.Get(HeaderRequestID); len(id) != 36 {
		t.Errorf("Expected generated UUID request ID, got %q", id)
	}

	resp, _ = doJSON(t, s, http.MethodGet, "/healthz", "", map[string]string{HeaderRequestID: "trace-42"})
	if id := resp.Header.Get(HeaderRequestID); id != "trace-42" {
		t.Errorf("Expected supplied request ID echoed, got %q", id)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	s := New(&MockClassifier{}, testServerConfig(), Options{})

	resp, body := doJSON(t, s, http.MethodGet, "/nope", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
	if body["error"] == nil {
		t.Errorf("Expected JSON error body, got %v", body)
	}
}

func TestMetrics(t *testing.T) {
	classifier := &MockClassifier{result: model.Classification{Sentiment: model.SentimentPositive}}
	s := New(classifier, testServerConfig(), Options{})

	doJSON(t, s, http.MethodPost, "/classify", `{"text":"loved it"}`, nil)
	doJSON(t, s, http.MethodPost, "/classify", `{"text":""}`, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, _ := io.ReadAll(resp.Body)
	text := string(data)
	for _, want := range []string{
		`sentiscope_classifications_total{sentiment="positive"} 1`,
		`sentiscope_http_requests_total{method="POST",route="/classify",status="200"} 1`,
		`sentiscope_http_requests_total{method="POST",route="/classify",status="400"} 1`,
		"sentiscope_http_request_duration_seconds",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected metrics to contain %q", want)
		}
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	cfg := testServerConfig()
	cfg.Addr = "127.0.0.1:0"
	s := New(&MockClassifier{}, cfg, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected Run to return after cancel")
	}
}
