// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for ragchat.
package config

import (
	"fmt"
	"time"

	"github.com/flemzord/ragchat/internal/security"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir overrides the persistent data directory.
	DataDir string `yaml:"data_dir,omitempty"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level,omitempty"`

	Chat      ChatConfig      `yaml:"chat"`
	Backends  []BackendConfig `yaml:"backends"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Security  SecurityConfig  `yaml:"security"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "memory.sqlite").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// ChatConfig holds the turn pipeline settings.
type ChatConfig struct {
	// Window is the number of history turns kept per prompt.
	Window int `yaml:"window"`

	// TokenBudget, when positive, trims history by estimated tokens
	// instead of by turn count.
	TokenBudget int `yaml:"token_budget"`

	// RetrievalK is the number of chunks retrieved per context-augmented turn.
	RetrievalK int `yaml:"retrieval_k"`

	// DefaultTemperature is a percentage in [0, 100]. Nil means 20.
	DefaultTemperature *int `yaml:"default_temperature"`

	SystemPrompt  string `yaml:"system_prompt"`
	RAGPrompt     string `yaml:"rag_prompt"`
	SummaryPrompt string `yaml:"summary_prompt"`

	// StateTTL is how long an idle session state is kept in memory.
	StateTTL time.Duration `yaml:"state_ttl"`
}

// Chat defaults.
const (
	DefaultWindow      = 10
	DefaultRetrievalK  = 4
	DefaultTemperature = 20
	DefaultStateTTL    = 24 * time.Hour
)

// Temperature returns the configured default temperature percentage.
func (c ChatConfig) Temperature() int {
	if c.DefaultTemperature == nil {
		return DefaultTemperature
	}
	return *c.DefaultTemperature
}

// BackendConfig is one entry of the backends list. Name, Provider and
// Model are read here; the whole node is kept for the provider factory.
type BackendConfig struct {
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	// Node is the raw entry, decoded again by the provider's own Config.
	Node yaml.Node `yaml:"-"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *BackendConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain BackendConfig
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	*b = BackendConfig(p)
	b.Node = *node
	return nil
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector, e.g. localhost:4318.
	// Empty disables export.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`

	// SampleRatio is the fraction of turns traced. Zero means all.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// SecurityConfig holds request limiting and log redaction settings.
type SecurityConfig struct {
	RateLimits security.RateLimitConfig `yaml:"rate_limits"`

	// Redact lists extra literal values scrubbed from logs.
	Redact []string `yaml:"redact,omitempty"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Chat.Window == 0 {
		c.Chat.Window = DefaultWindow
	}
	if c.Chat.RetrievalK == 0 {
		c.Chat.RetrievalK = DefaultRetrievalK
	}
	if c.Chat.StateTTL == 0 {
		c.Chat.StateTTL = DefaultStateTTL
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "ragchat"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Security.RateLimits.Defaults()
}
