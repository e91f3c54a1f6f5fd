package openai

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "text-embedding-3-large"
	defaultBatchSize = 64
	defaultTimeout   = 60 * time.Second
)

// Config holds the embedding.openai module configuration.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
}

func (c *Config) validate() error {
	var errs []error
	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("embedding.openai: invalid base_url %q", c.BaseURL))
	}
	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("embedding.openai: api_key is required (set api_key or %s)", c.APIKeyEnv))
	}
	if c.BatchSize < 0 {
		errs = append(errs, errors.New("embedding.openai: batch_size must not be negative"))
	}
	return errors.Join(errs...)
}
