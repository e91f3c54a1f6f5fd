package provider

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{
		ErrRateLimit,
		ErrContextLength,
		ErrProviderDown,
		ErrAuthentication,
		ErrBadRequest,
	}

	for i, a := range sentinels {
		if a.Error() == "" {
			t.Fatalf("sentinel %d must have a non-empty message", i)
		}
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %q should not match %q", a, b)
			}
		}
	}
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("%w: HTTP 503: overloaded", ErrProviderDown)
	if !errors.Is(wrapped, ErrProviderDown) {
		t.Errorf("errors.Is(%v, ErrProviderDown) = false", wrapped)
	}
}
