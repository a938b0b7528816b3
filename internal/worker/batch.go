package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/sentiscope/internal/model"
	"github.com/ppiankov/sentiscope/internal/source"
)

// Extractor recovers review texts from raw markup
type Extractor interface {
	Extract(raw string) []string
}

// Classifier returns the sentiment of one text
type Classifier interface {
	Classify(ctx context.Context, text string) (model.Classification, error)
}

// ExtractJob reads and extracts one corpus document
type ExtractJob struct {
	Index     int
	Document  source.Document
	Extractor Extractor
}

// Execute executes the extract job
func (j *ExtractJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &ExtractResult{Index: j.Index, Document: j.Document, Error: err}
	}

	raw, err := j.Document.Read()
	if err != nil {
		return &ExtractResult{Index: j.Index, Document: j.Document, Error: err}
	}

	return &ExtractResult{
		Index:    j.Index,
		Document: j.Document,
		Texts:    j.Extractor.Extract(raw),
	}
}

// ExtractResult represents the result of an extract job
type ExtractResult struct {
	Index    int // Submission order, for deterministic aggregation
	Document source.Document
	Texts    []string
	Error    error
}

// GetError returns the error from the extract result
func (r *ExtractResult) GetError() error {
	return r.Error
}

// ClassifyJob classifies one text, waiting on the limiter first when one is set
type ClassifyJob struct {
	Index      int
	Text       string
	Classifier Classifier
	Limiter    *Limiter
	LimitKey   string
}

// Execute executes the classify job
func (j *ClassifyJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.LimitKey); err != nil {
			return &ClassifyResult{Index: j.Index, Text: j.Text, Error: fmt.Errorf("rate limit: %w", err)}
		}
	}

	c, err := j.Classifier.Classify(ctx, j.Text)
	return &ClassifyResult{
		Index:          j.Index,
		Text:           j.Text,
		Classification: c,
		Error:          err,
	}
}

// ClassifyResult represents the result of a classify job
type ClassifyResult struct {
	Index          int
	Text           string
	Classification model.Classification
	Error          error
}

// GetError returns the error from the classify result
func (r *ClassifyResult) GetError() error {
	return r.Error
}

// BatchProcessor runs extract and classify jobs on a worker pool
type BatchProcessor struct {
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a new batch processor. A requestsPerSecond of 0 disables rate limiting.
func NewBatchProcessor(concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	b := &BatchProcessor{concurrency: concurrency}
	if requestsPerSecond > 0 {
		b.limiter = NewLimiter(requestsPerSecond, burst)
	}
	return b
}

// ProcessDocuments extracts documents concurrently. Results are in document order.
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, extractor Extractor, docs []source.Document) []*ExtractResult {
	if len(docs) == 0 {
		return []*ExtractResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, doc := range docs {
		pool.Submit(&ExtractJob{
			Index:     i,
			Document:  doc,
			Extractor: extractor,
		})
	}

	results := pool.Wait()

	extracted := make([]*ExtractResult, len(results))
	for i, result := range results {
		extracted[i] = result.(*ExtractResult)
	}
	sort.Slice(extracted, func(i, j int) bool { return extracted[i].Index < extracted[j].Index })

	return extracted
}

// ProcessTexts classifies texts concurrently, rate limited under limitKey. Results are in input order.
func (b *BatchProcessor) ProcessTexts(ctx context.Context, classifier Classifier, limitKey string, texts []string) []*ClassifyResult {
	if len(texts) == 0 {
		return []*ClassifyResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, text := range texts {
		pool.Submit(&ClassifyJob{
			Index:      i,
			Text:       text,
			Classifier: classifier,
			Limiter:    b.limiter,
			LimitKey:   limitKey,
		})
	}

	results := pool.Wait()

	classified := make([]*ClassifyResult, len(results))
	for i, result := range results {
		classified[i] = result.(*ClassifyResult)
	}
	sort.Slice(classified, func(i, j int) bool { return classified[i].Index < classified[j].Index })

	return classified
}

// ReadLinesFromFile reads non-empty lines from a file, skipping # comments and duplicates
func ReadLinesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lines, nil
}
