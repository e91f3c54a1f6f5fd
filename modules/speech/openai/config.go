package openai

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Defaults match the OpenAI speech endpoint settings used for summaries.
const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "tts-1"
	defaultVoice   = "alloy"
	defaultFormat  = "mp3"
	defaultSpeed   = 1.0
	defaultTimeout = 60 * time.Second
)

// Config holds the speech.openai module configuration.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	Voice     string        `yaml:"voice"`
	Format    string        `yaml:"format"`
	Speed     float64       `yaml:"speed"`
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
	if c.Voice == "" {
		c.Voice = defaultVoice
	}
	if c.Format == "" {
		c.Format = defaultFormat
	}
	if c.Speed == 0 {
		c.Speed = defaultSpeed
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
		errs = append(errs, fmt.Errorf("speech.openai: invalid base_url %q", c.BaseURL))
	}
	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("speech.openai: api_key is required (set api_key or %s)", c.APIKeyEnv))
	}
	if c.Speed < 0.25 || c.Speed > 4.0 {
		errs = append(errs, fmt.Errorf("speech.openai: speed must be within [0.25, 4.0], got %v", c.Speed))
	}
	switch c.Format {
	case "mp3", "opus", "aac", "flac", "wav", "pcm":
	default:
		errs = append(errs, errors.New("speech.openai: format must be one of mp3, opus, aac, flac, wav, pcm"))
	}
	return errors.Join(errs...)
}
