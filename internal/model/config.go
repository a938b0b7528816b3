package model

import (
	"errors"
	"fmt"
	"time"
)

// Config is the complete sentiscope configuration.
// Field tags serve both the YAML dump (config show/init) and viper unmarshalling.
type Config struct {
	Extract     ExtractConfig     `yaml:"extract" mapstructure:"extract"`
	Normalize   NormalizeConfig   `yaml:"normalize" mapstructure:"normalize"`
	Spell       SpellConfig       `yaml:"spell" mapstructure:"spell"`
	Dataset     DatasetConfig     `yaml:"dataset" mapstructure:"dataset"`
	Finetune    FinetuneConfig    `yaml:"finetune" mapstructure:"finetune"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// ExtractConfig controls corpus discovery
type ExtractConfig struct {
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"` // One subdirectory per category
}

// NormalizeConfig controls the token normalizer
type NormalizeConfig struct {
	MaxTokens       int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	MinTokens       int      `yaml:"min_tokens" mapstructure:"min_tokens"`
	CorrectSpelling bool     `yaml:"correct_spelling" mapstructure:"correct_spelling"`
	PadToken        string   `yaml:"pad_token" mapstructure:"pad_token"`
	ExtraStopwords  []string `yaml:"extra_stopwords,omitempty" mapstructure:"extra_stopwords"`
}

// SpellConfig locates the frequency dictionary used for spelling correction
type SpellConfig struct {
	DictionaryPath    string `yaml:"dictionary_path" mapstructure:"dictionary_path"`
	DictionaryURL     string `yaml:"dictionary_url" mapstructure:"dictionary_url"`
	TermIndex         int    `yaml:"term_index" mapstructure:"term_index"`
	CountIndex        int    `yaml:"count_index" mapstructure:"count_index"`
	MaxDictionaryEdit int    `yaml:"max_dictionary_edit_distance" mapstructure:"max_dictionary_edit_distance"`
	MaxLookupEdit     int    `yaml:"max_lookup_edit_distance" mapstructure:"max_lookup_edit_distance"`
}

// DatasetConfig controls CSV/XLSX dataset construction
type DatasetConfig struct {
	LabeledPath   string `yaml:"labeled_path" mapstructure:"labeled_path"`
	UnlabeledPath string `yaml:"unlabeled_path" mapstructure:"unlabeled_path"` // Empty disables the unlabeled table
	MinWords      int    `yaml:"min_words" mapstructure:"min_words"`
}

// FinetuneConfig controls JSONL fine-tune record generation
type FinetuneConfig struct {
	InputPath   string `yaml:"input_path" mapstructure:"input_path"`
	OutputDir   string `yaml:"output_dir" mapstructure:"output_dir"`
	Seed        int64  `yaml:"seed" mapstructure:"seed"` // 0 = time seeded
	KeepPadding bool   `yaml:"keep_padding" mapstructure:"keep_padding"`
}

// LLMConfig contains hosted classifier settings
type LLMConfig struct {
	Provider      string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model         string  `yaml:"model" mapstructure:"model"`
	APIKey        string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL       string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout       int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens     int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature   float32 `yaml:"temperature" mapstructure:"temperature"`
	ShotsPerClass int     `yaml:"shots_per_class" mapstructure:"shots_per_class"`
	ExamplesPath  string  `yaml:"examples_path" mapstructure:"examples_path"` // Labeled CSV used for few-shot
	HTTPProxy     string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"` // Comma-separated hosts that bypass the proxy
}

// ServerConfig controls the demo web server
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
	ReadTimeout       time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	MaxTextBytes      int           `yaml:"max_text_bytes" mapstructure:"max_text_bytes"`
}

// CacheConfig controls classification memoization
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"` // Empty = memory only
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Extract: ExtractConfig{
			BaseDir: "data",
		},
		Normalize: NormalizeConfig{
			MaxTokens:       128,
			MinTokens:       5,
			CorrectSpelling: false,
			PadToken:        "<pad>",
		},
		Spell: SpellConfig{
			DictionaryPath:    "frequency_dictionary_en_82_765.txt",
			DictionaryURL:     "https://raw.githubusercontent.com/wolfgarbe/SymSpell/master/SymSpell.FrequencyDictionary/en-80k.txt",
			TermIndex:         0,
			CountIndex:        1,
			MaxDictionaryEdit: 2,
			MaxLookupEdit:     1,
		},
		Dataset: DatasetConfig{
			LabeledPath:   "reviews.csv",
			UnlabeledPath: "unlabeled_reviews.csv",
			MinWords:      2,
		},
		Finetune: FinetuneConfig{
			InputPath: "reviews.csv",
			OutputDir: "artifacts",
		},
		LLM: LLMConfig{
			Provider:      "openai",
			Model:         "gpt-4o-mini-2024-07-18",
			Timeout:       30,
			MaxTokens:     20,
			ShotsPerClass: 3,
			ExamplesPath:  "reviews.csv",
		},
		Server: ServerConfig{
			Addr:              "127.0.0.1:5000",
			RequestsPerSecond: 2,
			BurstSize:         5,
			ReadTimeout:       10 * time.Second,
			MaxTextBytes:      16 * 1024,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}

// ErrInvalidConfig is returned (wrapped) by Validate
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks value ranges that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	switch {
	case c.Normalize.MaxTokens <= 0:
		return fmt.Errorf("%w: normalize.max_tokens must be positive", ErrInvalidConfig)
	case c.Normalize.MinTokens < 0:
		return fmt.Errorf("%w: normalize.min_tokens must not be negative", ErrInvalidConfig)
	case c.Normalize.PadToken == "":
		return fmt.Errorf("%w: normalize.pad_token must not be empty", ErrInvalidConfig)
	case c.Spell.MaxLookupEdit < 0 || c.Spell.MaxLookupEdit > c.Spell.MaxDictionaryEdit:
		return fmt.Errorf("%w: spell.max_lookup_edit_distance must be within [0, max_dictionary_edit_distance]", ErrInvalidConfig)
	case c.Dataset.MinWords < 0:
		return fmt.Errorf("%w: dataset.min_words must not be negative", ErrInvalidConfig)
	case c.LLM.ShotsPerClass < 0:
		return fmt.Errorf("%w: llm.shots_per_class must not be negative", ErrInvalidConfig)
	case c.Concurrency.Workers <= 0:
		return fmt.Errorf("%w: concurrency.workers must be positive", ErrInvalidConfig)
	}
	return nil
}
