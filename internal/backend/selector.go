package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/ragchat/internal/provider"
)

// ErrBackend is wrapped by every backend invocation failure. The provider's
// own error (rate limit, auth, timeout) stays reachable through errors.Is.
var ErrBackend = errors.New("backend error")

// Backend is one configured model backend.
type Backend struct {
	// Name is the configured label, e.g. "versatile".
	Name string

	// Model is the model identifier sent to the provider.
	Model string

	Provider provider.Provider
}

// Selector holds exactly two backends addressed by Selection.
// It never retries and never fails over from one backend to the other.
type Selector struct {
	backends [2]Backend
	health   [2]*healthTracker
	logger   *slog.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the logger used for invocation failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSelector builds a selector over the primary and secondary backends.
// An empty Model is filled from the provider's ModelName and an empty Name
// from the Model. Names must differ.
func NewSelector(primary, secondary Backend, opts ...Option) (*Selector, error) {
	s := &Selector{
		logger: slog.New(nopHandler{}),
	}
	for i, b := range []Backend{primary, secondary} {
		if b.Provider == nil {
			return nil, fmt.Errorf("backend: %s backend %q has no provider", Selection(i), b.Name)
		}
		if b.Model == "" {
			b.Model = b.Provider.ModelName()
		}
		if b.Name == "" {
			b.Name = b.Model
		}
		s.backends[i] = b
		s.health[i] = newHealthTracker()
	}
	if s.backends[Primary].Name == s.backends[Secondary].Name {
		return nil, fmt.Errorf("backend: duplicate backend name %q", s.backends[Primary].Name)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Select returns the backend at the given ordinal.
func (s *Selector) Select(sel Selection) (Backend, error) {
	if !sel.Valid() {
		return Backend{}, fmt.Errorf("%w: %d", ErrInvalidSelection, int(sel))
	}
	return s.backends[sel], nil
}

// Backends returns both backends in ordinal order.
func (s *Selector) Backends() []Backend {
	return []Backend{s.backends[Primary], s.backends[Secondary]}
}

// Invoke sends messages to b with an already normalized temperature in
// [0.0, 1.0]. The value is forwarded unchanged.
func (s *Selector) Invoke(ctx context.Context, b Backend, msgs []provider.LLMMessage, temperature float64) (provider.CompletionResponse, error) {
	if b.Provider == nil {
		return provider.CompletionResponse{}, fmt.Errorf("%w: %s: no provider", ErrBackend, b.Name)
	}

	resp, err := b.Provider.Complete(ctx, provider.CompletionRequest{
		Messages:    msgs,
		Temperature: provider.Float(temperature),
	})

	tracker := s.trackerFor(b)
	if err != nil {
		if tracker != nil {
			tracker.RecordFailure(err)
		}
		s.logger.Warn("backend invocation failed", "backend", b.Name, "model", b.Model, "error", err)
		return provider.CompletionResponse{}, fmt.Errorf("%w: %s: %w", ErrBackend, b.Name, err)
	}
	if tracker != nil {
		tracker.RecordSuccess()
	}
	return resp, nil
}

// Status returns the health snapshot of both backends in ordinal order.
func (s *Selector) Status() []Status {
	out := make([]Status, 0, len(s.backends))
	for i, b := range s.backends {
		out = append(out, s.health[i].snapshot(b))
	}
	return out
}

// HealthCheck actively probes every backend whose provider supports it.
// The result maps backend names to their probe error (nil when healthy).
func (s *Selector) HealthCheck(ctx context.Context) map[string]error {
	out := make(map[string]error, len(s.backends))
	for _, b := range s.backends {
		if hc, ok := b.Provider.(provider.HealthChecker); ok {
			out[b.Name] = hc.HealthCheck(ctx)
		}
	}
	return out
}

func (s *Selector) trackerFor(b Backend) *healthTracker {
	for i := range s.backends {
		if s.backends[i].Name == b.Name {
			return s.health[i]
		}
	}
	return nil
}

// nopHandler discards every record.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
