//go:build integration

package anthropic

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/ragchat/internal/backend"
	"github.com/flemzord/ragchat/internal/provider"
)

// Needs ANTHROPIC_API_KEY:
//
//	go test -tags=integration ./modules/provider/anthropic/...

func TestIntegration_GroundedAnswer(t *testing.T) {
	sel := integrationSelector(t)

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	b, err := sel.Select(backend.Secondary)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	resp, err := sel.Invoke(ctx, b, []provider.LLMMessage{
		{Role: provider.MessageRoleSystem, Content: "Answer only from the context. Context: the archive room is on floor 7."},
		{Role: provider.MessageRoleUser, Content: "Which floor is the archive room on? Reply with the number."},
	}, 0.1)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(resp.Content, "7") {
		t.Errorf("answer %q does not use the context", resp.Content)
	}
	if resp.Usage.TotalTokens == 0 {
		t.Error("usage not reported")
	}
}

func TestIntegration_HealthCheck(t *testing.T) {
	sel := integrationSelector(t)

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	for name, err := range sel.HealthCheck(ctx) {
		if err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func integrationSelector(t *testing.T) *backend.Selector {
	t.Helper()
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		t.Skip("ANTHROPIC_API_KEY not set")
	}

	var built [2]backend.Backend
	for i, model := range []string{"claude-sonnet-4-5-20250929", "claude-haiku-4-5"} {
		p, err := New(Config{Model: model, MaxTokens: 64})
		if err != nil {
			t.Fatalf("New(%s): %v", model, err)
		}
		built[i] = backend.Backend{Provider: p}
	}
	sel, err := backend.NewSelector(built[0], built[1])
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	return sel
}
