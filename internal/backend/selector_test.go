package backend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/flemzord/ragchat/internal/backend"
	"github.com/flemzord/ragchat/internal/provider"
	"github.com/flemzord/ragchat/internal/provider/providertest"
)

func newTestSelector(t *testing.T) (*backend.Selector, *providertest.MockProvider, *providertest.MockProvider) {
	t.Helper()

	p0 := &providertest.MockProvider{Model: "llama-3.3-70b-versatile", Reply: "from primary"}
	p1 := &providertest.MockProvider{Model: "llama-3.1-8b-instant", Reply: "from secondary"}

	s, err := backend.NewSelector(
		backend.Backend{Name: "versatile", Provider: p0},
		backend.Backend{Name: "instant", Provider: p1},
	)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	return s, p0, p1
}

func TestParseSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      int
		want    backend.Selection
		wantErr bool
	}{
		{in: 0, want: backend.Primary},
		{in: 1, want: backend.Secondary},
		{in: 2, wantErr: true},
		{in: -1, wantErr: true},
	}

	for _, tt := range tests {
		got, err := backend.ParseSelection(tt.in)
		if tt.wantErr {
			if !errors.Is(err, backend.ErrInvalidSelection) {
				t.Errorf("ParseSelection(%d) error = %v, want ErrInvalidSelection", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseSelection(%d) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestNewSelector_Validation(t *testing.T) {
	t.Parallel()

	p := &providertest.MockProvider{Model: "m"}

	if _, err := backend.NewSelector(backend.Backend{Name: "a", Provider: p}, backend.Backend{Name: "b"}); err == nil {
		t.Error("expected error for missing provider")
	}
	if _, err := backend.NewSelector(backend.Backend{Provider: p}, backend.Backend{Provider: p}); err == nil {
		t.Error("expected error for duplicate names")
	}
}

func TestSelector_SelectFillsModel(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestSelector(t)

	b, err := s.Select(backend.Secondary)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if b.Name != "instant" || b.Model != "llama-3.1-8b-instant" {
		t.Errorf("Select(1) = %+v", b)
	}

	if _, err := s.Select(backend.Selection(5)); !errors.Is(err, backend.ErrInvalidSelection) {
		t.Errorf("Select(5) error = %v, want ErrInvalidSelection", err)
	}
}

func TestSelector_InvokeForwardsTemperature(t *testing.T) {
	t.Parallel()

	s, p0, p1 := newTestSelector(t)
	b, _ := s.Select(backend.Primary)

	msgs := []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: "hi"}}
	resp, err := s.Invoke(context.Background(), b, msgs, 0.2)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if resp.Content != "from primary" {
		t.Errorf("Content = %q", resp.Content)
	}

	req := p0.LastRequest()
	if req.Temperature == nil || *req.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", req.Temperature)
	}
	if p1.Calls() != 0 {
		t.Errorf("secondary called %d times, want 0", p1.Calls())
	}
}

func TestSelector_InvokeWrapsFailureWithoutFailover(t *testing.T) {
	t.Parallel()

	s, p0, p1 := newTestSelector(t)
	p0.CompleteFunc = func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
		return provider.CompletionResponse{}, provider.ErrRateLimit
	}

	b, _ := s.Select(backend.Primary)
	_, err := s.Invoke(context.Background(), b, nil, 0.5)

	if !errors.Is(err, backend.ErrBackend) {
		t.Errorf("error = %v, want ErrBackend", err)
	}
	if !errors.Is(err, provider.ErrRateLimit) {
		t.Errorf("error = %v, want cause ErrRateLimit attached", err)
	}
	if p0.Calls() != 1 {
		t.Errorf("primary calls = %d, want 1 (no retry)", p0.Calls())
	}
	if p1.Calls() != 0 {
		t.Errorf("secondary calls = %d, want 0 (no failover)", p1.Calls())
	}
}

func TestSelector_Status(t *testing.T) {
	t.Parallel()

	s, p0, _ := newTestSelector(t)
	b, _ := s.Select(backend.Primary)

	p0.CompleteFunc = func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
		return provider.CompletionResponse{}, provider.ErrProviderDown
	}
	_, _ = s.Invoke(context.Background(), b, nil, 0)
	_, _ = s.Invoke(context.Background(), b, nil, 0)

	st := s.Status()
	if len(st) != 2 {
		t.Fatalf("len(Status) = %d, want 2", len(st))
	}
	if st[0].Healthy || st[0].ConsecutiveFailures != 2 || st[0].LastError == "" {
		t.Errorf("primary status = %+v", st[0])
	}
	if !st[1].Healthy {
		t.Errorf("secondary status = %+v, want healthy", st[1])
	}

	p0.CompleteFunc = nil
	_, _ = s.Invoke(context.Background(), b, nil, 0)
	if st := s.Status(); !st[0].Healthy || st[0].LastSuccess.IsZero() {
		t.Errorf("primary status after success = %+v", st[0])
	}
}

func TestSelector_HealthCheck(t *testing.T) {
	t.Parallel()

	s, _, p1 := newTestSelector(t)
	p1.HealthCheckFunc = func(context.Context) error { return provider.ErrAuthentication }

	res := s.HealthCheck(context.Background())
	if res["versatile"] != nil {
		t.Errorf("versatile = %v, want nil", res["versatile"])
	}
	if !errors.Is(res["instant"], provider.ErrAuthentication) {
		t.Errorf("instant = %v, want ErrAuthentication", res["instant"])
	}
}
