// Package anthropic registers the "anthropic" backend kind, bridging
// ragchat to the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/flemzord/ragchat/internal/provider"
	"gopkg.in/yaml.v3"
)

// Kind is the backend provider name used in configuration.
const Kind = "anthropic"

func init() {
	provider.RegisterFactory(Kind, func(node *yaml.Node) (provider.Provider, error) {
		var cfg Config
		if err := node.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("anthropic: decode config: %w", err)
		}
		return New(cfg)
	})
}

// Interface guards.
var (
	_ provider.Provider      = (*Anthropic)(nil)
	_ provider.HealthChecker = (*Anthropic)(nil)
)

// Anthropic implements provider.Provider and provider.HealthChecker using
// the Anthropic Messages API.
type Anthropic struct {
	config Config
	client *sdkanthropic.Client
}

// New validates cfg and builds an SDK client for it.
func New(cfg Config) (*Anthropic, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
		}),
		// A failed turn surfaces to the caller; nothing retries it.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := sdkanthropic.NewClient(opts...)
	return &Anthropic{config: cfg, client: &client}, nil
}

// ModelName implements provider.Provider.
func (a *Anthropic) ModelName() string {
	return a.config.Model
}

// Complete sends a synchronous completion request to the Messages API.
func (a *Anthropic) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	msg, err := a.client.Messages.New(ctx, convertRequest(req, &a.config))
	if err != nil {
		return provider.CompletionResponse{}, mapError(err)
	}
	return convertResponse(msg), nil
}

// HealthCheck sends a 1-token completion. The API has no dedicated health
// endpoint.
func (a *Anthropic) HealthCheck(ctx context.Context) error {
	_, err := a.client.Messages.New(ctx, sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(a.config.Model),
		MaxTokens: 1,
		Messages: []sdkanthropic.MessageParam{
			sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock("hi")),
		},
	})
	return mapError(err)
}
