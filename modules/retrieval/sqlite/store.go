package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flemzord/ragchat/internal/database"
	"github.com/flemzord/ragchat/internal/retrieval"
)

var migrations = []database.Migration{
	{Version: 1, Statements: []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			collection TEXT    NOT NULL,
			idx        INTEGER NOT NULL,
			content    TEXT    NOT NULL,
			embedding  BLOB    NOT NULL,
			PRIMARY KEY (collection, idx)
		)`,
	}},
}

// VectorStore keeps embedded chunks in a SQL table and searches a
// collection by loading it and ranking with cosine similarity. Collections
// are one document each, small enough for a full scan.
type VectorStore struct {
	db *sql.DB
}

var (
	_ retrieval.VectorStore      = (*VectorStore)(nil)
	_ retrieval.CollectionLister = (*VectorStore)(nil)
)

// NewVectorStore migrates db and returns a store over it.
func NewVectorStore(ctx context.Context, db *sql.DB) (*VectorStore, error) {
	if err := database.Migrate(ctx, db, "vectors", migrations); err != nil {
		return nil, err
	}
	return &VectorStore{db: db}, nil
}

// Upsert writes chunks in one transaction, replacing rows with the same index.
func (s *VectorStore) Upsert(ctx context.Context, collection string, chunks []retrieval.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("retrieval.sqlite: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, c := range chunks {
		if len(c.Vector) == 0 {
			return fmt.Errorf("retrieval.sqlite: chunk %d has no vector", c.Index)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (collection, idx, content, embedding) VALUES (?, ?, ?, ?)
			 ON CONFLICT(collection, idx) DO UPDATE SET content = excluded.content, embedding = excluded.embedding`,
			collection, c.Index, c.Text, retrieval.EncodeEmbedding(c.Vector))
		if err != nil {
			return fmt.Errorf("retrieval.sqlite: insert chunk %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("retrieval.sqlite: commit: %w", err)
	}
	return nil
}

// Search returns the k chunks of collection most similar to vector.
func (s *VectorStore) Search(ctx context.Context, collection string, vector []float64, k int) ([]retrieval.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, content, embedding FROM chunks WHERE collection = ? ORDER BY idx`, collection)
	if err != nil {
		return nil, fmt.Errorf("retrieval.sqlite: query: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var chunks []retrieval.Chunk
	for rows.Next() {
		var (
			c    retrieval.Chunk
			blob []byte
		)
		if err := rows.Scan(&c.Index, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("retrieval.sqlite: scan: %w", err)
		}
		c.Vector = retrieval.DecodeEmbedding(blob)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("retrieval.sqlite: rows: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", retrieval.ErrCollectionNotFound, collection)
	}
	return retrieval.TopK(vector, chunks, k), nil
}

// DeleteCollection removes every chunk of collection.
func (s *VectorStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("retrieval.sqlite: delete: %w", err)
	}
	return nil
}

// Collections lists the stored collection names.
func (s *VectorStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT collection FROM chunks ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("retrieval.sqlite: query: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("retrieval.sqlite: scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
