// Package security scrubs provider credentials from logs and limits the
// request rate of the public chat surfaces.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// Redactor replaces secret values in strings with RedactPlaceholder.
// Regex patterns cover the key formats of the configured backends; literal
// values cover keys resolved from config at startup.
// All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddPattern adds a compiled regex pattern to the redactor.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Values shorter than four characters are ignored so short config values
// do not blank out ordinary words.
func (r *Redactor) AddLiteral(secret string) {
	if len(secret) < 4 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact replaces all known secret patterns and literal values in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	return s
}

// DefaultPatterns returns compiled regex patterns for the API key formats
// ragchat handles.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Anthropic first: its prefix also matches the OpenAI pattern.
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-_]{20,}`),
		// OpenAI, including project keys (sk-proj-...).
		regexp.MustCompile(`sk-[a-zA-Z0-9\-_]{20,}`),
		// Groq.
		regexp.MustCompile(`gsk_[a-zA-Z0-9]{20,}`),
		// libSQL auth tokens carried in connection URLs.
		regexp.MustCompile(`authToken=[^&\s"]+`),
		// Authorization headers echoed in errors.
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_\.=]{16,}`),
	}
}
