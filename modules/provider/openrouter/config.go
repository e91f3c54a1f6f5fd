package openrouter

import (
	"fmt"
	"time"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = "120s"
)

// Config holds the backend entry of an OpenRouter model.
type Config struct {
	// APIKey is the OpenRouter API key. Typically sk-or-v1-...
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`

	// Model is the model identifier (required). "auto" is mapped to "openrouter/auto".
	Model string `yaml:"model"`

	// BaseURL defaults to "https://openrouter.ai/api/v1".
	BaseURL string `yaml:"base_url"`

	// Referer is sent as the HTTP-Referer header (optional).
	Referer string `yaml:"referer"`

	// Title is sent as the X-Title header (optional).
	Title string `yaml:"title"`

	MaxTokens int `yaml:"max_tokens"`

	// Timeout is the response header timeout as a duration string.
	// Default: "120s"
	Timeout string `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == "" {
		c.Timeout = defaultTimeout
	}
}

// resolvedModel returns the canonical model name.
func (c *Config) resolvedModel() string {
	if c.Model == "auto" {
		return "openrouter/auto"
	}
	return c.Model
}

func (c *Config) parsedTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("openrouter: invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}

// headers returns the attribution headers OpenRouter uses for its rankings.
func (c *Config) headers() map[string]string {
	h := make(map[string]string, 2)
	if c.Referer != "" {
		h["HTTP-Referer"] = c.Referer
	}
	if c.Title != "" {
		h["X-Title"] = c.Title
	}
	return h
}
