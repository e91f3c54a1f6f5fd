// Package openai provides the "retrieval.embedder" service backed by the
// OpenAI embeddings API.
package openai

import (
	"fmt"

	"github.com/flemzord/ragchat/internal/core"
	"github.com/flemzord/ragchat/internal/retrieval"
	"gopkg.in/yaml.v3"
)

// ServiceName is the registry key of the embedder.
const ServiceName = "retrieval.embedder"

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
)

// Module is the embedding.openai module.
type Module struct {
	config   Config
	embedder *Embedder
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "embedding.openai",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("embedding.openai: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	e, err := NewEmbedder(m.config)
	if err != nil {
		return err
	}
	m.embedder = e
	ctx.RegisterService(ServiceName, retrieval.Embedder(e))
	ctx.Logger.Info("embedder provisioned", "model", e.config.Model)
	return nil
}
