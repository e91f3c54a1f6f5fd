package provider

import "errors"

// Sentinel errors for provider operations. Providers wrap them with the
// upstream detail; callers classify with errors.Is.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = errors.New("context length exceeded")

	// ErrProviderDown indicates the provider is unreachable or failing (5xx, transport).
	ErrProviderDown = errors.New("provider unavailable")

	// ErrAuthentication indicates the provider rejected the credentials.
	ErrAuthentication = errors.New("provider authentication failed")

	// ErrBadRequest indicates the provider rejected the request as malformed.
	ErrBadRequest = errors.New("provider rejected request")
)
