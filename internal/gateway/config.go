package gateway

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"time"
)

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxDocumentBytes caps an uploaded document body.
	MaxDocumentBytes int64 `yaml:"max_document_bytes"`

	// AllowedOrigins are the host patterns accepted on the chat socket.
	// Empty accepts same-origin clients only.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

const defaultMaxDocumentBytes = 10 << 20

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	// Summaries run a turn and a synthesis back to back.
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.MaxDocumentBytes <= 0 {
		c.MaxDocumentBytes = defaultMaxDocumentBytes
	}
}

func (c *Config) validate() error {
	var errs []error
	if _, err := net.ResolveTCPAddr("tcp", c.Bind); err != nil {
		errs = append(errs, fmt.Errorf("gateway: invalid bind address %q", c.Bind))
	}
	if (c.Auth.BasicUser == "") != (c.Auth.BasicPass == "") {
		errs = append(errs, errors.New("gateway: auth.basic_user and auth.basic_pass must be set together"))
	}
	// The socket matches origins with filepath.Match.
	for _, o := range c.AllowedOrigins {
		if _, err := filepath.Match(o, ""); err != nil {
			errs = append(errs, fmt.Errorf("gateway: allowed_origins %q: %w", o, err))
		}
	}
	return errors.Join(errs...)
}

// AuthConfig configures authentication for the chat API.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
