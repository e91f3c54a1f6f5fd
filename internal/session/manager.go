// Package session allocates session identifiers and holds the per-session
// state a front end needs between turns.
package session

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/flemzord/ragchat/internal/memory"
)

// FirstSessionID is issued when the store holds no numeric session yet.
const FirstSessionID = "1"

// Manager derives new session ids from the history store.
type Manager struct {
	store memory.HistoryStore

	mu sync.Mutex
	// issued is the highest id handed out by this manager. A session has
	// no stored turn until its first exchange succeeds, so the store alone
	// would hand the same id out twice.
	issued int64
}

// NewManager creates a Manager over store.
func NewManager(store memory.HistoryStore) *Manager {
	return &Manager{store: store}
}

// NewSessionID returns one more than the highest numeric session id known
// to the store or already issued here. Non-numeric ids are ignored. An
// empty store yields FirstSessionID. An unreachable store is an error
// wrapping memory.ErrStoreUnavailable.
func (m *Manager) NewSessionID(ctx context.Context) (string, error) {
	ids, err := m.store.SessionIDs(ctx)
	if err != nil {
		if !errors.Is(err, memory.ErrStoreUnavailable) {
			err = memory.Unavailable("list sessions", err)
		}
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	highest := max(MaxNumericID(ids), m.issued)
	m.issued = highest + 1
	return strconv.FormatInt(m.issued, 10), nil
}

// MaxNumericID returns the largest non-negative integer among ids, or 0
// when there is none.
func MaxNumericID(ids []string) int64 {
	var highest int64
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n < 0 {
			continue
		}
		highest = max(highest, n)
	}
	return highest
}
