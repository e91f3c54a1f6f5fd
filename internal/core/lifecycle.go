package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Optional lifecycle hooks. LoadModule calls them in the order they are
// declared here; App.Start and App.Stop drive the last two.

// Configurable receives the module's section of the modules: map before
// provisioning. It is skipped when the module has no section.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner opens resources and publishes services on the AppContext.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator checks the provisioned module. It must not mutate state.
type Validator interface {
	Validate() error
}

// Starter launches background work such as listeners or schedulers.
type Starter interface {
	Start() error
}

// Stopper releases what the module holds. Stop may be called on a module
// that was provisioned but never started, and may be called twice.
type Stopper interface {
	Stop(ctx context.Context) error
}
