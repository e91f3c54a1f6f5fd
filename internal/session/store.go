package session

import (
	"sync"
	"time"
)

// StateStore is a concurrency-safe, in-memory map of session states. The
// `now` function is injectable for deterministic testing.
type StateStore struct {
	mu      sync.Mutex
	entries map[string]*entry

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

type entry struct {
	state      *State
	lastActive time.Time
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Update runs fn on the state of id under the store lock, creating the
// state on first use, and marks the session active. fn must be fast.
func (s *StateStore) Update(id string, fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		e = &entry{state: NewState(id)}
		s.entries[id] = e
	}
	e.lastActive = s.now()
	return fn(e.state)
}

// Get returns a snapshot of the state of id.
func (s *StateStore) Get(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return State{}, false
	}
	return e.state.Snapshot(), true
}

// Replace moves the state of previous to id through State.Reset and
// returns the collection the old state held. An unknown previous yields a
// fresh state for id.
func (s *StateStore) Replace(previous, id string) (dropped string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[previous]
	if ok {
		delete(s.entries, previous)
		dropped = e.state.Reset(id)
	} else {
		e = &entry{state: NewState(id)}
	}
	e.lastActive = s.now()
	s.entries[id] = e
	return dropped
}

// Prune removes states idle for longer than maxIdle and returns them so
// the caller can release their collections.
func (s *StateStore) Prune(maxIdle time.Duration) []State {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var pruned []State
	for id, e := range s.entries {
		if now.Sub(e.lastActive) > maxIdle {
			pruned = append(pruned, *e.state)
			delete(s.entries, id)
		}
	}
	return pruned
}

// ActiveIDs returns a snapshot of the session ids currently held.
func (s *StateStore) ActiveIDs() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]struct{}, len(s.entries))
	for id := range s.entries {
		ids[id] = struct{}{}
	}
	return ids
}

// Collections returns the collections attached to held states.
func (s *StateStore) Collections() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make(map[string]struct{})
	for _, e := range s.entries {
		if e.state.Collection != "" {
			names[e.state.Collection] = struct{}{}
		}
	}
	return names
}

// Len returns the number of held states.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
