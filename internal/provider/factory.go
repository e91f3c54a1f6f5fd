package provider

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Factory builds a Provider from its raw YAML configuration.
type Factory func(node *yaml.Node) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes a provider kind available to backend configuration.
// It is intended to be called from init() functions and panics on an empty
// or duplicate kind.
func RegisterFactory(kind string, f Factory) {
	if kind == "" {
		panic("provider: factory kind must not be empty")
	}
	if f == nil {
		panic(fmt.Sprintf("provider: nil factory for %q", kind))
	}

	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if _, dup := factories[kind]; dup {
		panic(fmt.Sprintf("provider: factory already registered: %s", kind))
	}
	factories[kind] = f
}

// Build creates a provider of the given kind.
func Build(kind string, node *yaml.Node) (Provider, error) {
	factoriesMu.RLock()
	f, ok := factories[kind]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider: unknown kind %q (known: %v)", kind, Kinds())
	}
	return f(node)
}

// Kinds returns the registered provider kinds, sorted.
func Kinds() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
