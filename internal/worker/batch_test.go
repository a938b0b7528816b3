package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/sentiscope/internal/model"
	"github.com/ppiankov/sentiscope/internal/source"
)

// MockExtractor splits raw content on newlines
type MockExtractor struct{}

func (m *MockExtractor) Extract(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// MockClassifier implements Classifier
type MockClassifier struct {
	ShouldError bool
	calls       atomic.Int32
}

func (m *MockClassifier) Classify(ctx context.Context, text string) (model.Classification, error) {
	m.calls.Add(1)
	time.Sleep(5 * time.Millisecond) // Simulate work
	if m.ShouldError {
		return model.Classification{}, errors.New("classify error")
	}
	if strings.Contains(text, "bad") {
		return model.Classification{Sentiment: model.SentimentNegative}, nil
	}
	return model.Classification{Sentiment: model.SentimentPositive}, nil
}

func writeDoc(t *testing.T, dir, category, name, content string) source.Document {
	t.Helper()
	catDir := filepath.Join(dir, category)
	if err := os.MkdirAll(catDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(catDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return source.Document{Path: path, Category: category, Label: model.LabelPositive}
}

func TestBatchProcessor_ProcessDocuments(t *testing.T) {
	dir := t.TempDir()
	docs := []source.Document{
		writeDoc(t, dir, "books", "positive.review", "great book\nloved it"),
		writeDoc(t, dir, "dvd", "positive.review", "fine movie"),
		writeDoc(t, dir, "kitchen", "positive.review", "sharp knife\nsolid\nworks"),
	}

	processor := NewBatchProcessor(2, 0, 0)
	results := processor.ProcessDocuments(context.Background(), &MockExtractor{}, docs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	wantCounts := []int{2, 1, 3}
	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Document.Path, res.Error)
		}
		if res.Index != i {
			t.Errorf("expected index %d, got %d", i, res.Index)
		}
		if res.Document.Category != docs[i].Category {
			t.Errorf("expected category %q at %d, got %q", docs[i].Category, i, res.Document.Category)
		}
		if len(res.Texts) != wantCounts[i] {
			t.Errorf("expected %d texts for %s, got %d", wantCounts[i], res.Document.Category, len(res.Texts))
		}
	}
}

func TestBatchProcessor_ProcessDocuments_MissingFile(t *testing.T) {
	docs := []source.Document{{Path: filepath.Join(t.TempDir(), "missing.review"), Category: "books"}}

	processor := NewBatchProcessor(2, 0, 0)
	results := processor.ProcessDocuments(context.Background(), &MockExtractor{}, docs)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Texts != nil {
		t.Error("expected no texts on error")
	}
}

func TestBatchProcessor_ProcessDocuments_Empty(t *testing.T) {
	processor := NewBatchProcessor(2, 0, 0)
	results := processor.ProcessDocuments(context.Background(), &MockExtractor{}, nil)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
}

func TestBatchProcessor_ProcessDocuments_ManyDocuments(t *testing.T) {
	dir := t.TempDir()
	var docs []source.Document
	for i := 0; i < 50; i++ {
		docs = append(docs, writeDoc(t, dir, fmt.Sprintf("cat%02d", i), "positive.review", "text"))
	}

	processor := NewBatchProcessor(3, 0, 0)
	results := processor.ProcessDocuments(context.Background(), &MockExtractor{}, docs)

	if len(results) != 50 {
		t.Fatalf("expected 50 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Index != i {
			t.Fatalf("expected results in document order, got index %d at %d", res.Index, i)
		}
	}
}

func TestBatchProcessor_ProcessTexts(t *testing.T) {
	classifier := &MockClassifier{}
	processor := NewBatchProcessor(2, 0, 0)

	texts := []string{"good stuff", "bad stuff", "fine"}
	results := processor.ProcessTexts(context.Background(), classifier, "mock", texts)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	want := []model.Sentiment{model.SentimentPositive, model.SentimentNegative, model.SentimentPositive}
	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %q: %v", res.Text, res.Error)
		}
		if res.Text != texts[i] {
			t.Errorf("expected text %q at %d, got %q", texts[i], i, res.Text)
		}
		if res.Classification.Sentiment != want[i] {
			t.Errorf("expected %s for %q, got %s", want[i], res.Text, res.Classification.Sentiment)
		}
	}
}

func TestBatchProcessor_ProcessTexts_Error(t *testing.T) {
	classifier := &MockClassifier{ShouldError: true}
	processor := NewBatchProcessor(2, 0, 0)

	results := processor.ProcessTexts(context.Background(), classifier, "mock", []string{"anything"})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
}

func TestBatchProcessor_ProcessTexts_RateLimited(t *testing.T) {
	classifier := &MockClassifier{}
	// 20 rps, burst 1: four texts need at least three refills (~150ms)
	processor := NewBatchProcessor(4, 20, 1)

	start := time.Now()
	results := processor.ProcessTexts(context.Background(), classifier, "mock", []string{"a", "b", "c", "d"})
	elapsed := time.Since(start)

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("expected rate limiting to slow the batch, took %v", elapsed)
	}
	if got := classifier.calls.Load(); got != 4 {
		t.Errorf("expected 4 classifier calls, got %d", got)
	}
}

func TestBatchProcessor_ProcessTexts_Cancelled(t *testing.T) {
	classifier := &MockClassifier{}
	processor := NewBatchProcessor(1, 0.01, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	results := processor.ProcessTexts(ctx, classifier, "mock", []string{"a", "b"})
	for _, res := range results {
		if res.Index == 1 && res.Error == nil {
			t.Error("expected the second text to fail once the context expired")
		}
	}
}

func TestReadLinesFromFile(t *testing.T) {
	content := `
# Comment
great product

terrible service
great product
# Another comment
  arrived late
`
	tmpfile, err := os.CreateTemp("", "texts.*.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	lines, err := ReadLinesFromFile(tmpfile.Name())
	if err != nil {
		t.Fatalf("ReadLinesFromFile failed: %v", err)
	}

	expected := []string{"great product", "terrible service", "arrived late"}
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got %d: %v", len(expected), len(lines), lines)
	}
	for i, line := range lines {
		if line != expected[i] {
			t.Errorf("expected line %d to be %q, got %q", i, expected[i], line)
		}
	}
}

func TestReadLinesFromFile_NotFound(t *testing.T) {
	_, err := ReadLinesFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
