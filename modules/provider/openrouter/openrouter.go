// Package openrouter registers the "openrouter" backend kind: the
// OpenAI-compatible client pointed at OpenRouter, with its model alias and
// attribution headers.
package openrouter

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/ragchat/internal/provider"
	openaicompat "github.com/flemzord/ragchat/modules/provider/openai_compatible"
)

// Kind is the backend provider name used in configuration.
const Kind = "openrouter"

func init() {
	provider.RegisterFactory(Kind, func(node *yaml.Node) (provider.Provider, error) {
		var cfg Config
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("openrouter: decode config: %w", err)
		}
		return New(cfg)
	})
}

// New validates cfg and returns a provider speaking to OpenRouter.
func New(cfg Config) (*openaicompat.Provider, error) {
	cfg.defaults()
	timeout, err := cfg.parsedTimeout()
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openrouter: model is required")
	}

	p, err := openaicompat.New(openaicompat.Config{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		APIKeyEnv: cfg.APIKeyEnv,
		Model:     cfg.resolvedModel(),
		MaxTokens: cfg.MaxTokens,
		Headers:   cfg.headers(),
		Timeout:   timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("openrouter: %w", err)
	}
	return p, nil
}
