// Package retrieval ingests documents into per-session vector collections
// and answers similarity searches over them for context-augmented turns.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultK is the number of chunks retrieved per turn.
const DefaultK = 4

// ErrRetrieval is wrapped by every ingestion and search failure.
var ErrRetrieval = errors.New("retrieval error")

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRetrieval, op, err)
}

// Retriever returns the k chunks of collection most similar to query,
// best match first.
type Retriever interface {
	SimilaritySearch(ctx context.Context, collection, query string, k int) ([]string, error)
}

// JoinChunks concatenates retrieved chunks with a blank line between them.
func JoinChunks(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}

// Chunk is one embedded slice of a document.
type Chunk struct {
	Index  int
	Text   string
	Vector []float64

	// Score is the similarity to the query. Set only on search results.
	Score float64
}

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorStore persists embedded chunks grouped by collection.
type VectorStore interface {
	Upsert(ctx context.Context, collection string, chunks []Chunk) error
	Search(ctx context.Context, collection string, vector []float64, k int) ([]Chunk, error)
	DeleteCollection(ctx context.Context, collection string) error
}

// CollectionLister is implemented by vector stores that can enumerate
// their collections.
type CollectionLister interface {
	Collections(ctx context.Context) ([]string, error)
}

// ErrCollectionNotFound is returned when searching a collection that does
// not exist.
var ErrCollectionNotFound = errors.New("collection not found")
