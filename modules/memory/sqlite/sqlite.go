// Package sqlite persists conversation history. Local files use
// modernc.org/sqlite (pure Go, no CGO) in WAL mode; a configured libSQL URL
// switches to a remote Turso database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flemzord/ragchat/internal/core"
	"github.com/flemzord/ragchat/internal/database"
	"github.com/flemzord/ragchat/internal/memory"
	"gopkg.in/yaml.v3"
)

const (
	moduleID    = "memory.sqlite"
	serviceName = "memory.history"
	dbFile      = "history.db"
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module publishes a memory.HistoryStore under "memory.history".
type Module struct {
	config  database.Config
	db      *sql.DB
	history *historyStore
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  moduleID,
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("%s: decode config: %w", moduleID, err)
	}
	return nil
}

// Provision opens and migrates the database, then registers the store.
func (m *Module) Provision(ctx *core.AppContext) error {
	if err := m.config.Validate(moduleID); err != nil {
		return err
	}
	opts := m.config.Options(ctx.DataDir, dbFile)

	db, err := database.Open(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("%s: %w", moduleID, err)
	}
	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return err
	}

	m.db = db
	m.history = &historyStore{db: db}
	ctx.RegisterService(serviceName, memory.HistoryStore(m.history))
	ctx.Logger.Info("history store provisioned", opts.LogAttrs()...)
	return nil
}

// Validate pings the database.
func (m *Module) Validate() error {
	if err := m.db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("%s: ping: %w", moduleID, err)
	}
	return nil
}

// Stop closes the database. Calling it twice is harmless.
func (m *Module) Stop(context.Context) error {
	if m.db == nil {
		return nil
	}
	db := m.db
	m.db = nil
	return db.Close()
}
