package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/sentiscope/internal/cache"
	"github.com/ppiankov/sentiscope/internal/model"
)

var (
	// ErrEmptyText is returned for blank input
	ErrEmptyText = errors.New("text is required")

	// ErrNoProvider is returned when the classifier is built without a provider
	ErrNoProvider = errors.New("no LLM provider configured")
)

// ClassifierOptions configures a Classifier
type ClassifierOptions struct {
	Examples      []model.Example // Few-shot pool
	ShotsPerClass int
	Cache         cache.Cache // nil disables memoization
	CacheTTL      time.Duration
	Rand          Shuffler // nil seeds from the clock
}

// Classifier turns review text into a validated Classification using a Provider
type Classifier struct {
	provider Provider
	examples []model.Example
	shots    int
	cache    cache.Cache
	ttl      time.Duration

	mu  sync.Mutex // Guards rng
	rng Shuffler
}

// NewClassifier creates a classifier service around provider
func NewClassifier(provider Provider, opts ClassifierOptions) (*Classifier, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}

	shots := opts.ShotsPerClass
	if shots < 0 {
		shots = DefaultShotsPerClass
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Classifier{
		provider: provider,
		examples: opts.Examples,
		shots:    shots,
		cache:    opts.Cache,
		ttl:      opts.CacheTTL,
		rng:      rng,
	}, nil
}

// ProviderName returns the name of the underlying provider
func (c *Classifier) ProviderName() string {
	return c.provider.Name()
}

// Examples returns the size of the few-shot pool
func (c *Classifier) Examples() int {
	return len(c.examples)
}

// Classify returns the sentiment of text. Results are memoized per text when a cache is set.
func (c *Classifier) Classify(ctx context.Context, text string) (model.Classification, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Classification{}, ErrEmptyText
	}

	key := cache.Key("classify-"+c.provider.Name(), text)
	if cached, ok := c.lookup(key); ok {
		return cached, nil
	}

	resp, err := c.provider.Classify(ctx, ClassifyRequest{
		Text:     text,
		Examples: c.sample(),
	})
	if err != nil {
		return model.Classification{}, fmt.Errorf("classify: %w", err)
	}

	result, err := ParseClassification(resp.Content)
	if err != nil {
		return model.Classification{}, err
	}

	c.store(key, result)
	return result, nil
}

func (c *Classifier) sample() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SampleExamples(c.examples, c.shots, c.rng)
}

func (c *Classifier) lookup(key string) (model.Classification, bool) {
	if c.cache == nil {
		return model.Classification{}, false
	}

	data, ok := c.cache.Get(key)
	if !ok {
		return model.Classification{}, false
	}

	var result model.Classification
	if err := json.Unmarshal(data, &result); err != nil {
		_ = c.cache.Delete(key)
		return model.Classification{}, false
	}
	return result, true
}

// store ignores cache write failures
func (c *Classifier) store(key string, result model.Classification) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	_ = c.cache.Set(key, data, c.ttl)
}
