package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/sentiscope/internal/cache"
	"github.com/ppiankov/sentiscope/internal/dataset"
	"github.com/ppiankov/sentiscope/internal/extract"
	"github.com/ppiankov/sentiscope/internal/finetune"
	"github.com/ppiankov/sentiscope/internal/llm"
	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/model"
	"github.com/ppiankov/sentiscope/internal/normalize"
	"github.com/ppiankov/sentiscope/internal/source"
	"github.com/ppiankov/sentiscope/internal/spell"
	"github.com/ppiankov/sentiscope/internal/worker"
)

// BuildResult summarizes a dataset build
type BuildResult struct {
	Documents     int
	Categories    int
	Labeled       int
	Unlabeled     int
	Dropped       int // Too short or duplicate
	LabeledPath   string
	UnlabeledPath string // Empty when the unlabeled table is disabled
}

// BuildDataset walks the corpus, extracts every document on the worker pool,
// and writes the labeled (and optionally unlabeled) tables
func BuildDataset(ctx context.Context, cfg *model.Config) (*BuildResult, error) {
	docs, err := source.Walk(cfg.Extract.BaseDir)
	if err != nil {
		return nil, err
	}
	logger.Info("Found %d review documents under %s", len(docs), cfg.Extract.BaseDir)

	processor := worker.NewBatchProcessor(cfg.Concurrency.Workers, 0, 0)
	results := processor.ProcessDocuments(ctx, extract.NewReviewExtractor(), docs)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build dataset: %w", err)
	}

	builder := dataset.NewBuilder(cfg.Dataset.MinWords)
	categories := make(map[string]struct{})

	// Results are in document order, so table order is deterministic
	for _, res := range results {
		if res.Error != nil {
			return nil, fmt.Errorf("extract %s: %w", res.Document.Path, res.Error)
		}
		categories[res.Document.Category] = struct{}{}

		var added int
		if res.Document.Labeled() {
			added = builder.AddLabeled(res.Document.Category, res.Document.Label, res.Texts)
		} else {
			added = builder.AddUnlabeled(res.Document.Category, res.Texts)
		}
		logger.Debug("%s/%s: %d reviews extracted, %d kept", res.Document.Category, labelName(res.Document.Label), len(res.Texts), added)
	}

	result := &BuildResult{
		Documents:   len(docs),
		Categories:  len(categories),
		Labeled:     len(builder.Rows()),
		Unlabeled:   len(builder.UnlabeledRows()),
		Dropped:     builder.Dropped(),
		LabeledPath: cfg.Dataset.LabeledPath,
	}

	if err := dataset.WriteFile(cfg.Dataset.LabeledPath, builder.Rows(), true); err != nil {
		return nil, fmt.Errorf("write labeled table: %w", err)
	}

	if cfg.Dataset.UnlabeledPath != "" {
		if err := dataset.WriteFile(cfg.Dataset.UnlabeledPath, builder.UnlabeledRows(), false); err != nil {
			return nil, fmt.Errorf("write unlabeled table: %w", err)
		}
		result.UnlabeledPath = cfg.Dataset.UnlabeledPath
	}

	return result, nil
}

func labelName(l model.Label) string {
	if l == model.LabelNone {
		return "unlabeled"
	}
	return string(l)
}

// FinetuneResult summarizes fine-tune preparation
type FinetuneResult struct {
	Stats     finetune.Stats
	Train     int
	Val       int
	Test      int
	OutputDir string
}

// PrepareFinetune cleans the labeled table and writes shuffled train/val/test JSONL splits
func PrepareFinetune(ctx context.Context, cfg *model.Config, n *normalize.Normalizer) (*FinetuneResult, error) {
	rows, err := dataset.ReadLabeled(cfg.Finetune.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read labeled table: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	examples, stats := finetune.Prepare(rows, n, cfg.Finetune.KeepPadding)
	logger.Info("Prepared %d examples from %d rows (%d rejected, %d duplicates)", stats.Kept, stats.Input, stats.Rejected, stats.Duplicates)

	splits := finetune.Split(examples, finetune.NewRand(cfg.Finetune.Seed))
	if err := finetune.WriteSplits(cfg.Finetune.OutputDir, splits); err != nil {
		return nil, err
	}

	return &FinetuneResult{
		Stats:     stats,
		Train:     len(splits.Train),
		Val:       len(splits.Val),
		Test:      len(splits.Test),
		OutputDir: cfg.Finetune.OutputDir,
	}, nil
}

// LoadExamples reads a labeled table and returns its cleaned, unpadded examples
func LoadExamples(path string, n *normalize.Normalizer) ([]model.Example, error) {
	rows, err := dataset.ReadLabeled(path)
	if err != nil {
		return nil, fmt.Errorf("load examples: %w", err)
	}

	examples, stats := finetune.Prepare(rows, n, false)
	logger.Debug("Loaded %d few-shot examples from %s (%d rows)", stats.Kept, path, stats.Input)
	return examples, nil
}

// NewNormalizer builds a normalizer from config, loading the spelling
// dictionary when correction is enabled
func NewNormalizer(cfg *model.Config) (*normalize.Normalizer, error) {
	opts := normalize.DefaultOptions()
	opts.MaxTokens = cfg.Normalize.MaxTokens
	opts.MinTokens = cfg.Normalize.MinTokens
	opts.PadToken = cfg.Normalize.PadToken
	opts.CorrectSpelling = cfg.Normalize.CorrectSpelling

	for _, w := range cfg.Normalize.ExtraStopwords {
		opts.Stopwords[w] = struct{}{}
	}

	if opts.CorrectSpelling {
		start := time.Now()
		dict, err := spell.LoadFile(cfg.Spell.DictionaryPath, cfg.Spell.MaxDictionaryEdit, cfg.Spell.TermIndex, cfg.Spell.CountIndex)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded %d dictionary terms in %v", dict.Len(), time.Since(start).Round(time.Millisecond))
		opts.Speller = spell.NewCorrector(dict, cfg.Spell.MaxLookupEdit)
	}

	return normalize.New(opts)
}

// NewClassifier assembles the classifier service: provider, few-shot pool and cache.
// A missing examples file degrades to zero-shot prompts.
func NewClassifier(cfg *model.Config) (*llm.Classifier, error) {
	provider, err := llm.NewProvider(llm.ApplyEnv(llm.ConfigFromModel(cfg.LLM)))
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	if provider == nil {
		return nil, llm.ErrNoProvider
	}

	var examples []model.Example
	if cfg.LLM.ExamplesPath != "" && cfg.LLM.ShotsPerClass > 0 {
		n, err := NewNormalizer(cfg)
		if err != nil {
			return nil, err
		}
		examples, err = LoadExamples(cfg.LLM.ExamplesPath, n)
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("Examples file %s not found, classifying zero-shot", cfg.LLM.ExamplesPath)
		} else if err != nil {
			return nil, err
		}
	}

	opts := llm.ClassifierOptions{
		Examples:      examples,
		ShotsPerClass: cfg.LLM.ShotsPerClass,
	}
	if cfg.Cache.Enabled {
		opts.Cache = NewCache(cfg.Cache)
		opts.CacheTTL = cfg.Cache.MemoryTTL
	}

	return llm.NewClassifier(provider, opts)
}

// NewCache returns a memory cache, layered over disk when a directory is configured
func NewCache(cfg model.CacheConfig) cache.Cache {
	if cfg.Dir == "" {
		return cache.NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return cache.NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}
