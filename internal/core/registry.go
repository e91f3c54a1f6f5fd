package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// registry holds the compiled-in modules keyed by ID.
type registry struct {
	mu   sync.RWMutex
	byID map[ModuleID]ModuleInfo
}

var modules = &registry{byID: make(map[ModuleID]ModuleInfo)}

// Namespace returns the part of the ID before the first dot, e.g. "memory"
// for "memory.sqlite".
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// RegisterModule records a module from its init function. It panics on an
// empty ID, a nil constructor or a duplicate ID.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	switch {
	case info.ID == "":
		panic("module ID must not be empty")
	case info.New == nil:
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}

	modules.mu.Lock()
	defer modules.mu.Unlock()
	if _, dup := modules.byID[info.ID]; dup {
		panic(fmt.Sprintf("module already registered: %s", info.ID))
	}
	modules.byID[info.ID] = info
}

// GetModule looks up a registered module.
func GetModule(id string) (ModuleInfo, bool) {
	modules.mu.RLock()
	defer modules.mu.RUnlock()
	info, ok := modules.byID[ModuleID(id)]
	return info, ok
}

// GetModules returns all registered modules sorted by ID.
func GetModules() []ModuleInfo {
	return modules.filter(func(ModuleID) bool { return true })
}

// GetModulesByNamespace returns the modules of one namespace sorted by ID
// ("speech" matches "speech.openai").
func GetModulesByNamespace(namespace string) []ModuleInfo {
	return modules.filter(func(id ModuleID) bool { return id.Namespace() == namespace })
}

func (r *registry) filter(keep func(ModuleID) bool) []ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ModuleInfo
	for id, info := range r.byID {
		if keep(id) {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b ModuleInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	modules.mu.Lock()
	defer modules.mu.Unlock()
	modules.byID = make(map[ModuleID]ModuleInfo)
}
