// Package provider defines the contract between ragchat and a model
// inference backend, plus the message types exchanged with it.
package provider

import "context"

// Provider is the interface for communicating with an LLM.
// Concrete implementations live under modules/provider.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// HealthChecker is an optional interface that providers may implement
// to support active probing from the /health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
