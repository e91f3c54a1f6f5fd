package provider_test

import (
	"context"
	"testing"

	"github.com/flemzord/ragchat/internal/provider"
	"github.com/flemzord/ragchat/internal/provider/providertest"
)

func TestMockProviderDefaultsToReply(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{Model: "test-model", Reply: "ok"}

	resp, err := mock.Complete(context.Background(), provider.CompletionRequest{
		Temperature: provider.Float(0.2),
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q, want %q", resp.Content, "ok")
	}
	if mock.ModelName() != "test-model" {
		t.Errorf("ModelName() = %q, want %q", mock.ModelName(), "test-model")
	}
	if got := *mock.LastRequest().Temperature; got != 0.2 {
		t.Errorf("recorded temperature = %v, want 0.2", got)
	}
	if mock.Calls() != 1 {
		t.Errorf("Calls() = %d, want 1", mock.Calls())
	}
}
