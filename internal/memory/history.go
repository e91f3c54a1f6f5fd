// Package memory defines the durable conversation history contract and an
// in-memory implementation of it.
package memory

import (
	"context"
	"errors"
	"fmt"
)

// Role identifies who produced a turn.
type Role string

// Role constants for conversation turns.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one role-tagged message in a session's history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn returns a user turn with the given content.
func UserTurn(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// AssistantTurn returns an assistant turn with the given content.
func AssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// ErrStoreUnavailable is wrapped by every HistoryStore failure. The
// underlying driver error stays attached.
var ErrStoreUnavailable = errors.New("history store unavailable")

// Unavailable wraps cause as a store failure for the given operation.
func Unavailable(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, cause)
}

// HistoryStore manages session conversation history. The store is the
// source of truth: callers re-fetch on every turn and never cache.
// Implementations must be safe for concurrent use.
type HistoryStore interface {
	// Fetch returns the full history of a session, oldest first.
	// An unknown session yields an empty history, not an error.
	Fetch(ctx context.Context, sessionID string) ([]Turn, error)

	// Append records turns at the end of the session's history, in order.
	// Appending several turns is atomic: either all are recorded or none.
	Append(ctx context.Context, sessionID string, turns ...Turn) error

	// SessionIDs lists every session with at least one recorded turn.
	SessionIDs(ctx context.Context) ([]string, error)
}
