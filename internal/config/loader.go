package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// parses it and applies defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse expands environment variables in raw and decodes it.
func Parse(raw []byte) (*Config, error) {
	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("expanding variables: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// expandEnv substitutes ${VAR} and ${VAR:-default} in raw. A variable that
// is unset and has no default is an error; each one is reported once.
func expandEnv(raw []byte) ([]byte, error) {
	var missing []string
	out := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		m := envPattern.FindSubmatch(match)
		name, fallback := string(m[1]), m[2]
		if v, ok := os.LookupEnv(name); ok {
			return []byte(v)
		}
		if fallback != nil {
			return fallback
		}
		if !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return match
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("unresolved variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
