// Package database opens the SQL databases used by the storage modules.
// Local files go through modernc.org/sqlite (pure Go, no CGO); remote
// libSQL/Turso URLs go through the libsql client.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // "libsql" driver registration
	_ "modernc.org/sqlite"                               // "sqlite" driver registration
)

// DefaultBusyTimeout is the milliseconds SQLite waits on a locked database.
const DefaultBusyTimeout = 5000

// Options selects and tunes a database.
type Options struct {
	// Path is a local SQLite file. Ignored when URL is set.
	Path string

	// URL is a remote libSQL endpoint (libsql://, https://, wss://).
	// Authentication goes in the query string (?authToken=...).
	URL string

	// WAL enables write-ahead logging on local files.
	WAL bool

	// BusyTimeout in milliseconds for local files. Zero means DefaultBusyTimeout.
	BusyTimeout int
}

// Remote reports whether the options point at a libSQL server.
func (o Options) Remote() bool {
	return IsRemoteURL(o.URL)
}

// IsRemoteURL reports whether u uses a scheme served by the libsql driver.
func IsRemoteURL(u string) bool {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(u, scheme) {
			return true
		}
	}
	return false
}

// Open opens and pings the database described by opts.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	if opts.URL != "" {
		return openRemote(ctx, opts.URL)
	}
	return openLocal(ctx, opts)
}

func openRemote(ctx context.Context, url string) (*sql.DB, error) {
	if !IsRemoteURL(url) {
		return nil, fmt.Errorf("database: unsupported url scheme in %q", redactURL(url))
	}
	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("database: open libsql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: connect %s: %w", redactURL(url), err)
	}
	return db, nil
}

func openLocal(ctx context.Context, opts Options) (*sql.DB, error) {
	if opts.Path == "" {
		return nil, errors.New("database: path is required")
	}
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("database: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", opts.Path, err)
	}

	// SQLite handles one writer at a time; a single connection keeps
	// PRAGMAs consistent and serializes writes.
	db.SetMaxOpenConns(1)

	if opts.WAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("database: enable WAL: %w", err)
		}
	}

	timeout := opts.BusyTimeout
	if timeout == 0 {
		timeout = DefaultBusyTimeout
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", timeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: set busy_timeout: %w", err)
	}

	return db, nil
}

// redactURL strips the query string, which carries the auth token.
func redactURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
