package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// InMemoryHistoryStore is a thread-safe, in-memory implementation of
// HistoryStore. History is lost when the process exits.
type InMemoryHistoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewInMemoryHistoryStore creates a new empty history store.
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		sessions: make(map[string][]Turn),
	}
}

// Compile-time interface check.
var _ HistoryStore = (*InMemoryHistoryStore)(nil)

// Fetch returns a copy of the session's history.
func (s *InMemoryHistoryStore) Fetch(ctx context.Context, sessionID string) ([]Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("fetch", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sessions[sessionID]), nil
}

// Append adds turns to the session's history.
func (s *InMemoryHistoryStore) Append(ctx context.Context, sessionID string, turns ...Turn) error {
	if err := ctx.Err(); err != nil {
		return Unavailable("append", err)
	}
	for _, t := range turns {
		if !t.Role.Valid() {
			return fmt.Errorf("memory: invalid role %q", t.Role)
		}
	}
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turns...)
	return nil
}

// SessionIDs returns the ids of sessions with recorded turns, sorted.
func (s *InMemoryHistoryStore) SessionIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unavailable("list sessions", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id, turns := range s.sessions {
		if len(turns) > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Len returns the number of turns stored for a session.
func (s *InMemoryHistoryStore) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}
