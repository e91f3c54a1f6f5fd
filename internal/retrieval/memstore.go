package retrieval

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// InMemoryVectorStore keeps collections in process memory and searches
// them by brute-force cosine similarity.
type InMemoryVectorStore struct {
	mu          sync.RWMutex
	collections map[string][]Chunk
}

// NewInMemoryVectorStore creates an empty store.
func NewInMemoryVectorStore() *InMemoryVectorStore {
	return &InMemoryVectorStore{collections: make(map[string][]Chunk)}
}

var (
	_ VectorStore      = (*InMemoryVectorStore)(nil)
	_ CollectionLister = (*InMemoryVectorStore)(nil)
)

// Upsert replaces chunks with the same index and appends new ones.
func (s *InMemoryVectorStore) Upsert(ctx context.Context, collection string, chunks []Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			return fmt.Errorf("chunk %d has no vector", c.Index)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.collections[collection]
	for _, c := range chunks {
		c.Vector = slices.Clone(c.Vector)
		i := slices.IndexFunc(existing, func(e Chunk) bool { return e.Index == c.Index })
		if i >= 0 {
			existing[i] = c
		} else {
			existing = append(existing, c)
		}
	}
	s.collections[collection] = existing
	return nil
}

// Search returns the k chunks most similar to vector.
func (s *InMemoryVectorStore) Search(ctx context.Context, collection string, vector []float64, k int) ([]Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	chunks, ok := s.collections[collection]
	chunks = slices.Clone(chunks)
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	return TopK(vector, chunks, k), nil
}

// DeleteCollection removes a collection. Unknown collections are ignored.
func (s *InMemoryVectorStore) DeleteCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// Collections lists the collection names in sorted order.
func (s *InMemoryVectorStore) Collections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Len returns the number of chunks in a collection.
func (s *InMemoryVectorStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}
