package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

var (
	// ErrEmptyDocument is returned when a document yields no chunks.
	ErrEmptyDocument = errors.New("document has no text")

	// ErrListingUnsupported is returned by Collections when the vector
	// store cannot enumerate its collections.
	ErrListingUnsupported = errors.New("vector store cannot list collections")
)

// Service chunks, embeds and stores documents, and searches them.
type Service struct {
	chunker  *Chunker
	embedder Embedder
	store    VectorStore
	logger   *slog.Logger

	// newName is injectable for testing. Defaults to a random UUID.
	newName func() string
}

// NewService wires a chunker, an embedder and a vector store.
func NewService(chunker *Chunker, embedder Embedder, store VectorStore, logger *slog.Logger) (*Service, error) {
	var errs []error
	if chunker == nil {
		errs = append(errs, errors.New("retrieval: chunker is required"))
	} else if err := chunker.Validate(); err != nil {
		errs = append(errs, err)
	}
	if embedder == nil {
		errs = append(errs, errors.New("retrieval: embedder is required"))
	}
	if store == nil {
		errs = append(errs, errors.New("retrieval: vector store is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger,
		newName:  func() string { return uuid.NewString() },
	}, nil
}

var _ Retriever = (*Service)(nil)

// IngestResult describes a newly created collection.
type IngestResult struct {
	Collection string `json:"collection"`
	Chunks     int    `json:"chunks"`
}

// Ingest stores text in a fresh collection and returns its name.
// A partially written collection is removed on failure.
func (s *Service) Ingest(ctx context.Context, text string) (IngestResult, error) {
	pieces, err := s.chunker.Split(text)
	if err != nil {
		return IngestResult{}, wrap("split", err)
	}
	if len(pieces) == 0 {
		return IngestResult{}, wrap("split", ErrEmptyDocument)
	}

	vectors, err := s.embedder.Embed(ctx, pieces)
	if err != nil {
		return IngestResult{}, wrap("embed", err)
	}
	if len(vectors) != len(pieces) {
		return IngestResult{}, wrap("embed", fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(pieces)))
	}

	chunks := make([]Chunk, len(pieces))
	for i := range pieces {
		chunks[i] = Chunk{Index: i, Text: pieces[i], Vector: vectors[i]}
	}

	name := s.newName()
	if err := s.store.Upsert(ctx, name, chunks); err != nil {
		_ = s.store.DeleteCollection(context.WithoutCancel(ctx), name)
		return IngestResult{}, wrap("store", err)
	}

	s.logger.Info("document ingested", "collection", name, "chunks", len(chunks))
	return IngestResult{Collection: name, Chunks: len(chunks)}, nil
}

// SimilaritySearch implements Retriever. A non-positive k means DefaultK.
func (s *Service) SimilaritySearch(ctx context.Context, collection, query string, k int) ([]string, error) {
	if k <= 0 {
		k = DefaultK
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, wrap("embed query", err)
	}
	if len(vectors) != 1 {
		return nil, wrap("embed query", fmt.Errorf("got %d vectors for 1 query", len(vectors)))
	}

	found, err := s.store.Search(ctx, collection, vectors[0], k)
	if err != nil {
		return nil, wrap("search", err)
	}

	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.Text
	}
	return out, nil
}

// Drop deletes a collection.
func (s *Service) Drop(ctx context.Context, collection string) error {
	if err := s.store.DeleteCollection(ctx, collection); err != nil {
		return wrap("drop", err)
	}
	return nil
}

// Collections lists the stored collections.
func (s *Service) Collections(ctx context.Context) ([]string, error) {
	lister, ok := s.store.(CollectionLister)
	if !ok {
		return nil, ErrListingUnsupported
	}
	names, err := lister.Collections(ctx)
	if err != nil {
		return nil, wrap("list", err)
	}
	return names, nil
}
