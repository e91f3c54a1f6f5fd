package anthropic

import (
	"errors"
	"os"
	"time"
)

// defaultModel is the model used when none is specified.
const defaultModel = "claude-sonnet-4-5-20250929"

// defaultMaxTokens is required by the Messages API on every request.
const defaultMaxTokens = 1024

// defaultTimeout is the HTTP response-header timeout applied to the
// underlying transport.
const defaultTimeout = 30 * time.Second

// Config holds the YAML-decoded configuration for the Anthropic backend.
type Config struct {
	APIKey    string        `yaml:"api_key"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// defaults fills in zero-value fields.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
}

func (c *Config) validate() error {
	if c.MaxTokens < 0 {
		return errors.New("anthropic: max_tokens must not be negative")
	}
	if c.APIKey == "" {
		return errors.New("anthropic: api_key is required (set api_key or " + c.APIKeyEnv + ")")
	}
	return nil
}
