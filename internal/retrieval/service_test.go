package retrieval

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func newTestService(t *testing.T, emb *letterEmbedder) (*Service, *InMemoryVectorStore) {
	t.Helper()

	store := NewInMemoryVectorStore()
	chunker := &Chunker{Tokenizer: newWordTokenizer(), Size: 3, Overlap: 0}
	s, err := NewService(chunker, emb, store, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s, store
}

func TestJoinChunks(t *testing.T) {
	t.Parallel()

	got := JoinChunks([]string{"Paris is...", "France is..."})
	if got != "Paris is...\n\nFrance is..." {
		t.Errorf("JoinChunks = %q", got)
	}
	if JoinChunks(nil) != "" {
		t.Error("JoinChunks(nil) should be empty")
	}
}

func TestNewService_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewService(nil, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"chunker", "embedder", "vector store"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestService_IngestAndSearch(t *testing.T) {
	t.Parallel()

	s, store := newTestService(t, &letterEmbedder{})
	s.newName = func() string { return "col-1" }
	ctx := context.Background()

	res, err := s.Ingest(ctx, "aaa aaa aaa zzz zzz zzz mmm mmm mmm")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Collection != "col-1" || res.Chunks != 3 {
		t.Errorf("Ingest = %+v", res)
	}
	if store.Len("col-1") != 3 {
		t.Errorf("stored chunks = %d, want 3", store.Len("col-1"))
	}

	got, err := s.SimilaritySearch(ctx, "col-1", "zzz", 1)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(got) != 1 || got[0] != "zzz zzz zzz" {
		t.Errorf("SimilaritySearch = %q", got)
	}

	got, err = s.SimilaritySearch(ctx, "col-1", "zzz", 0)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("default k returned %d chunks, want all 3", len(got))
	}
}

func TestService_IngestEmpty(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t, &letterEmbedder{})
	_, err := s.Ingest(context.Background(), "   ")
	if !errors.Is(err, ErrRetrieval) || !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("error = %v, want ErrRetrieval wrapping ErrEmptyDocument", err)
	}
}

func TestService_EmbedFailure(t *testing.T) {
	t.Parallel()

	emb := &letterEmbedder{err: errEmbed}
	s, _ := newTestService(t, emb)
	ctx := context.Background()

	if _, err := s.Ingest(ctx, "some text"); !errors.Is(err, ErrRetrieval) || !errors.Is(err, errEmbed) {
		t.Errorf("Ingest error = %v", err)
	}
	if _, err := s.SimilaritySearch(ctx, "c", "q", 4); !errors.Is(err, ErrRetrieval) || !errors.Is(err, errEmbed) {
		t.Errorf("SimilaritySearch error = %v", err)
	}
}

func TestService_UnknownCollection(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t, &letterEmbedder{})
	_, err := s.SimilaritySearch(context.Background(), "missing", "q", 4)
	if !errors.Is(err, ErrRetrieval) || !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("error = %v, want ErrRetrieval wrapping ErrCollectionNotFound", err)
	}
}

func TestService_Drop(t *testing.T) {
	t.Parallel()

	s, store := newTestService(t, &letterEmbedder{})
	ctx := context.Background()

	res, err := s.Ingest(ctx, "one two three")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := s.Drop(ctx, res.Collection); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if store.Len(res.Collection) != 0 {
		t.Error("collection still present after Drop")
	}
}

// searchOnlyStore hides the listing method of the wrapped store.
type searchOnlyStore struct{ VectorStore }

func TestService_Collections(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t, &letterEmbedder{})
	ctx := context.Background()

	a, _ := s.Ingest(ctx, "alpha beta")
	b, _ := s.Ingest(ctx, "gamma delta")
	want := []string{a.Collection, b.Collection}
	slices.Sort(want)

	got, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections: %v", err)
	}
	if !slices.Equal(got, want) {
		t.Errorf("Collections = %v, want %v", got, want)
	}

	_ = s.Drop(ctx, a.Collection)
	if got, _ := s.Collections(ctx); !slices.Equal(got, []string{b.Collection}) {
		t.Errorf("Collections after drop = %v, want [%s]", got, b.Collection)
	}

	chunker := &Chunker{Tokenizer: newWordTokenizer(), Size: 3}
	plain, err := NewService(chunker, &letterEmbedder{}, searchOnlyStore{NewInMemoryVectorStore()}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, err := plain.Collections(ctx); !errors.Is(err, ErrListingUnsupported) {
		t.Errorf("err = %v, want ErrListingUnsupported", err)
	}
}
