// Package openaicompat provides a backend for any API implementing the
// OpenAI chat completions interface (Groq, Mistral, DeepSeek, vLLM,
// LiteLLM, etc.) via a configurable base_url.
package openaicompat

import (
	"context"
	"fmt"
	"net/http"

	"github.com/flemzord/ragchat/internal/provider"
	"gopkg.in/yaml.v3"
)

// Kind is the backend provider name used in configuration.
const Kind = "openai_compatible"

func init() {
	provider.RegisterFactory(Kind, func(node *yaml.Node) (provider.Provider, error) {
		var cfg Config
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("openaicompat: decode config: %w", err)
		}
		return New(cfg)
	})
}

// Provider is an OpenAI-compatible chat completion backend.
type Provider struct {
	config Config
	client *http.Client
}

// New validates cfg and returns a ready Provider.
func New(cfg Config) (*Provider, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Provider{
		config: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
	}, nil
}

// Complete implements provider.Provider. A reply without choices yields an
// empty response rather than an error.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	var resp oaiResponse
	if err := p.roundTrip(ctx, "/chat/completions", p.newRequest(req), &resp); err != nil {
		return provider.CompletionResponse{}, err
	}
	return resp.completion(), nil
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// HealthCheck implements provider.HealthChecker by listing /models.
func (p *Provider) HealthCheck(ctx context.Context) error {
	if err := p.roundTrip(ctx, "/models", nil, nil); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

// Compile-time interface assertions.
var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.HealthChecker = (*Provider)(nil)
)
