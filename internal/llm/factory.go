package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/sentiscope/internal/model"
)

// backend describes one provider: how to build it and where its credentials come from
type backend struct {
	build func(Config) (Provider, error)

	// keyEnv and urlEnv are read by ApplyEnv when the config leaves them empty
	keyEnv string
	urlEnv string
}

var backends = map[string]backend{
	"openai": {
		build:  func(c Config) (Provider, error) { return NewOpenAIProvider(c) },
		keyEnv: "OPENAI_API_KEY",
		urlEnv: "OPENAI_BASE_URL",
	},
	"anthropic": {
		build:  func(c Config) (Provider, error) { return NewAnthropicProvider(c) },
		keyEnv: "ANTHROPIC_API_KEY",
	},
	"ollama": {
		build:  func(c Config) (Provider, error) { return NewOllamaProvider(c) },
		urlEnv: "OLLAMA_BASE_URL",
	},
}

// providerName normalizes a configured provider, folding the "claude" alias
func providerName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "claude" {
		return "anthropic"
	}
	return name
}

// NewProvider builds the configured provider. An empty provider disables the LLM and returns nil, nil.
func NewProvider(config Config) (Provider, error) {
	name := providerName(config.Provider)
	if name == "" {
		return nil, nil
	}

	b, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}

	p, err := b.build(config)
	if err != nil {
		// Never hand back a typed nil inside the interface
		return nil, err
	}
	return p, nil
}

// ConfigFromModel converts the file/env configuration into provider settings
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Timeout:     c.Timeout,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		HTTPProxy:   c.HTTPProxy,
		HTTPSProxy:  c.HTTPSProxy,
		NoProxy:     c.NoProxy,
	}
}

// ApplyEnv fills the API key and base URL from the provider's conventional
// environment variables when the config does not set them
func ApplyEnv(config Config) Config {
	b, ok := backends[providerName(config.Provider)]
	if !ok {
		return config
	}
	if config.APIKey == "" && b.keyEnv != "" {
		config.APIKey = os.Getenv(b.keyEnv)
	}
	if config.BaseURL == "" && b.urlEnv != "" {
		config.BaseURL = os.Getenv(b.urlEnv)
	}
	return config
}
