package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flemzord/ragchat/internal/database"
	"github.com/flemzord/ragchat/internal/memory"
)

// Turns are numbered per session; seq gives the chronological order.
var migrations = []database.Migration{
	{Version: 1, Statements: []string{
		`CREATE TABLE IF NOT EXISTS messages (
			session_id TEXT    NOT NULL,
			seq        INTEGER NOT NULL,
			role       TEXT    NOT NULL,
			content    TEXT    NOT NULL DEFAULT '',
			created_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			PRIMARY KEY (session_id, seq)
		)`,
	}},
}

func migrate(ctx context.Context, db *sql.DB) error {
	return database.Migrate(ctx, db, "history", migrations)
}

// historyStore implements memory.HistoryStore backed by SQLite or libSQL.
type historyStore struct {
	db *sql.DB
}

// NewHistoryStore returns a HistoryStore over an already migrated database.
func NewHistoryStore(ctx context.Context, db *sql.DB) (memory.HistoryStore, error) {
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}
	return &historyStore{db: db}, nil
}

// Fetch returns all turns of a session in chronological order.
func (h *historyStore) Fetch(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT role, content
		FROM messages
		WHERE session_id = ?
		ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, memory.Unavailable("fetch", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []memory.Turn
	for rows.Next() {
		var (
			role string
			turn memory.Turn
		)
		if err := rows.Scan(&role, &turn.Content); err != nil {
			return nil, memory.Unavailable("fetch", fmt.Errorf("scan turn: %w", err))
		}
		turn.Role = memory.Role(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, memory.Unavailable("fetch", err)
	}

	return turns, nil
}

// Append records turns in a single transaction.
func (h *historyStore) Append(ctx context.Context, sessionID string, turns ...memory.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	for _, t := range turns {
		if !t.Role.Valid() {
			return fmt.Errorf("sqlite: invalid role %q", t.Role)
		}
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return memory.Unavailable("append", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range turns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (session_id, seq, role, content)
			VALUES (?, COALESCE((SELECT MAX(seq) FROM messages WHERE session_id = ?), 0) + 1, ?, ?)`,
			sessionID, sessionID, string(t.Role), t.Content,
		)
		if err != nil {
			return memory.Unavailable("append", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return memory.Unavailable("append", err)
	}
	return nil
}

// SessionIDs lists every session with at least one stored turn.
func (h *historyStore) SessionIDs(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, "SELECT DISTINCT session_id FROM messages ORDER BY session_id")
	if err != nil {
		return nil, memory.Unavailable("list sessions", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, memory.Unavailable("list sessions", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, memory.Unavailable("list sessions", err)
	}
	return ids, nil
}

// Len returns the number of turns stored for a session.
func (h *historyStore) Len(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := h.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID,
	).Scan(&count)
	if err != nil {
		return 0, memory.Unavailable("count", err)
	}
	return count, nil
}
