// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/flemzord/ragchat/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Set the Func fields to control behavior. An unset CompleteFunc returns
// Reply. All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc    func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	HealthCheckFunc func(ctx context.Context) error
	Model           string
	Reply           string

	mu            sync.Mutex
	CompleteCalls int
	HealthCalls   int
	Requests      []provider.CompletionRequest
}

// Complete delegates to CompleteFunc, records the request and tracks call count.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.CompleteFunc == nil {
		return provider.CompletionResponse{Content: m.Reply, FinishReason: provider.FinishReasonStop}, nil
	}
	return m.CompleteFunc(ctx, req)
}

// ModelName returns Model.
func (m *MockProvider) ModelName() string {
	return m.Model
}

// HealthCheck delegates to HealthCheckFunc and tracks call count.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.HealthCalls++
	m.mu.Unlock()
	if m.HealthCheckFunc == nil {
		return nil
	}
	return m.HealthCheckFunc(ctx)
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockProvider) LastRequest() provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return provider.CompletionRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// Calls returns the number of Complete calls.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CompleteCalls
}

// Interface guards.
var (
	_ provider.Provider      = (*MockProvider)(nil)
	_ provider.HealthChecker = (*MockProvider)(nil)
)
