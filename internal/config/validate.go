package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/flemzord/ragchat/internal/core"
	"github.com/flemzord/ragchat/internal/provider"
)

// BackendCount is the number of configured backends; a backend's ordinal
// is its position in the list.
const BackendCount = 2

// Validate checks the structural validity of a Config: version, the two
// backends, chat settings and module IDs. All problems are reported at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateBackends(cfg.Backends)...)
	errs = append(errs, validateChat(cfg.Chat)...)

	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log_level %q", cfg.LogLevel))
	}

	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("config: telemetry.sample_ratio must be within [0, 1], got %v", r))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	return errors.Join(errs...)
}

func validateBackends(backends []BackendConfig) []error {
	if len(backends) != BackendCount {
		return []error{fmt.Errorf("config: exactly %d backends are required, got %d", BackendCount, len(backends))}
	}

	var errs []error
	kinds := provider.Kinds()
	seen := make(map[string]bool)
	for i, b := range backends {
		if b.Provider == "" {
			errs = append(errs, fmt.Errorf("config: backends[%d]: provider is required", i))
		} else if !slices.Contains(kinds, b.Provider) {
			errs = append(errs, fmt.Errorf("config: backends[%d]: unknown provider %q (known: %s)", i, b.Provider, strings.Join(kinds, ", ")))
		}
		if b.Model == "" && b.Provider != "anthropic" {
			errs = append(errs, fmt.Errorf("config: backends[%d]: model is required", i))
		}
		name := b.Name
		if name == "" {
			name = b.Model
		}
		if name != "" {
			if seen[name] {
				errs = append(errs, fmt.Errorf("config: backends[%d]: duplicate name %q", i, name))
			}
			seen[name] = true
		}
	}
	return errs
}

func validateChat(c ChatConfig) []error {
	var errs []error
	if c.Window < 0 {
		errs = append(errs, fmt.Errorf("config: chat.window must be positive, got %d", c.Window))
	}
	if c.TokenBudget < 0 {
		errs = append(errs, fmt.Errorf("config: chat.token_budget must not be negative, got %d", c.TokenBudget))
	}
	if c.RetrievalK < 0 {
		errs = append(errs, fmt.Errorf("config: chat.retrieval_k must be positive, got %d", c.RetrievalK))
	}
	if t := c.Temperature(); t < 0 || t > 100 {
		errs = append(errs, fmt.Errorf("config: chat.default_temperature must be within [0, 100], got %d", t))
	}
	if c.StateTTL < 0 {
		errs = append(errs, fmt.Errorf("config: chat.state_ttl must not be negative, got %s", c.StateTTL))
	}
	return errs
}
