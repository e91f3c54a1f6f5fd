// Package sqlite provides the "retrieval.vectors" service: document chunk
// embeddings stored in SQLite or a remote libSQL database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flemzord/ragchat/internal/core"
	"github.com/flemzord/ragchat/internal/database"
	"github.com/flemzord/ragchat/internal/retrieval"
	"gopkg.in/yaml.v3"
)

// ServiceName is the registry key of the vector store.
const ServiceName = "retrieval.vectors"

const (
	moduleID = "retrieval.sqlite"
	dbFile   = "vectors.db"
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module is the retrieval.sqlite module.
type Module struct {
	config database.Config
	db     *sql.DB
	store  *VectorStore
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

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	if err := m.config.Validate(moduleID); err != nil {
		return err
	}
	opts := m.config.Options(ctx.DataDir, dbFile)

	db, err := database.Open(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("%s: %w", moduleID, err)
	}
	store, err := NewVectorStore(context.Background(), db)
	if err != nil {
		_ = db.Close()
		return err
	}

	m.db, m.store = db, store
	ctx.RegisterService(ServiceName, retrieval.VectorStore(store))
	ctx.Logger.Info("vector store provisioned", opts.LogAttrs()...)
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(context.Context) error {
	if m.db == nil {
		return nil
	}
	db := m.db
	m.db = nil
	return db.Close()
}

// Store returns the provisioned vector store.
func (m *Module) Store() *VectorStore {
	return m.store
}
