// Package openai provides the "speech.synthesizer" service backed by the
// OpenAI text-to-speech API.
package openai

import (
	"fmt"

	"github.com/flemzord/ragchat/internal/core"
	"github.com/flemzord/ragchat/internal/speech"
	"gopkg.in/yaml.v3"
)

// ServiceName is the registry key of the synthesizer.
const ServiceName = "speech.synthesizer"

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
)

// Module is the speech.openai module.
type Module struct {
	config Config
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "speech.openai",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("speech.openai: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	s, err := NewSynthesizer(m.config)
	if err != nil {
		return err
	}
	ctx.RegisterService(ServiceName, speech.Synthesizer(s))
	ctx.Logger.Info("speech synthesizer provisioned", "model", s.config.Model, "voice", s.config.Voice)
	return nil
}
