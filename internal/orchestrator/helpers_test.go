package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/flemzord/ragchat/internal/backend"
	ctxengine "github.com/flemzord/ragchat/internal/context"
	"github.com/flemzord/ragchat/internal/memory"
	"github.com/flemzord/ragchat/internal/orchestrator"
	"github.com/flemzord/ragchat/internal/provider"
	"github.com/flemzord/ragchat/internal/provider/providertest"
)

var errDisk = errors.New("disk I/O error")

// flakyStore wraps the in-memory store with injectable failures.
type flakyStore struct {
	*memory.InMemoryHistoryStore
	fetchErr  error
	appendErr error
}

func (s *flakyStore) Fetch(ctx context.Context, id string) ([]memory.Turn, error) {
	if s.fetchErr != nil {
		return nil, memory.Unavailable("fetch", s.fetchErr)
	}
	return s.InMemoryHistoryStore.Fetch(ctx, id)
}

func (s *flakyStore) Append(ctx context.Context, id string, turns ...memory.Turn) error {
	if s.appendErr != nil {
		return memory.Unavailable("append", s.appendErr)
	}
	return s.InMemoryHistoryStore.Append(ctx, id, turns...)
}

// fakeRetriever returns fixed chunks and records its calls.
type fakeRetriever struct {
	mu     sync.Mutex
	chunks []string
	err    error
	calls  int
	lastK  int
	lastC  string
}

func (r *fakeRetriever) SimilaritySearch(_ context.Context, collection, _ string, k int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lastK = k
	r.lastC = collection
	return r.chunks, r.err
}

func (r *fakeRetriever) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// countingAssembler records how often it was used.
type countingAssembler struct {
	inner ctxengine.Assembler
	mu    sync.Mutex
	calls int
}

func (a *countingAssembler) Assemble(in ctxengine.Assembly) []provider.LLMMessage {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.inner.Assemble(in)
}

func (a *countingAssembler) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fixture struct {
	store     *flakyStore
	primary   *providertest.MockProvider
	secondary *providertest.MockProvider
	retriever *fakeRetriever
	orch      *orchestrator.Orchestrator
}

func newFixture(t *testing.T, cfg orchestrator.Config, opts ...orchestrator.Option) *fixture {
	t.Helper()

	f := &fixture{
		store:     &flakyStore{InMemoryHistoryStore: memory.NewInMemoryHistoryStore()},
		primary:   &providertest.MockProvider{Model: "llama-3.3-70b-versatile", Reply: "Paris."},
		secondary: &providertest.MockProvider{Model: "llama-3.1-8b-instant", Reply: "Paris!"},
		retriever: &fakeRetriever{chunks: []string{"Paris is...", "France is..."}},
	}

	sel, err := backend.NewSelector(
		backend.Backend{Name: "versatile", Provider: f.primary},
		backend.Backend{Name: "instant", Provider: f.secondary},
	)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}

	opts = append([]orchestrator.Option{orchestrator.WithRetriever(f.retriever)}, opts...)
	f.orch, err = orchestrator.New(f.store, sel, cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func (f *fixture) history(t *testing.T, id string) []memory.Turn {
	t.Helper()
	turns, err := f.store.InMemoryHistoryStore.Fetch(context.Background(), id)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	return turns
}
