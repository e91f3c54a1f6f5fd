package config

import (
	"slices"
	"strings"
)

// surfaceNamespaces are modules that consume the chat runtime rather than
// provide services to it. They load after the runtime is wired.
var surfaceNamespaces = []string{"gateway."}

// Resolve splits the configured module IDs into service modules and surface
// modules, each sorted for a deterministic load order.
func Resolve(cfg *Config) (services, surfaces []string) {
	for id := range cfg.Modules {
		if isSurface(id) {
			surfaces = append(surfaces, id)
		} else {
			services = append(services, id)
		}
	}
	slices.Sort(services)
	slices.Sort(surfaces)
	return services, surfaces
}

func isSurface(id string) bool {
	for _, ns := range surfaceNamespaces {
		if strings.HasPrefix(id, ns) {
			return true
		}
	}
	return false
}
