// Package core provides the module system used to assemble ragchat: module
// registration, lifecycle management and a shared service registry.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const shutdownTimeout = 30 * time.Second

// ModuleID uniquely identifies a module, namespaced with dots
// (e.g. "memory.sqlite", "gateway.http").
type ModuleID string

// Module is implemented by every loadable component.
type Module interface {
	ModuleInfo() ModuleInfo
}

// ModuleInfo describes a module and how to instantiate it.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// App owns an ordered set of modules. Modules start in load order and
// stop in reverse; every module is stopped at most once.
type App struct {
	ctx     *AppContext
	modules []*loaded
	logger  *slog.Logger
}

type loaded struct {
	id       ModuleID
	module   Module
	started  bool
	released bool
}

// NewApp creates an App over ctx.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadModules loads the registered modules ids in order. On failure every
// module loaded so far, by this call or an earlier one, is released.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.Close()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		a.AppendModule(mod)
		a.logger.Info("module loaded", "module", id)
	}
	return nil
}

// AppendModule adds a module assembled in code, such as the maintenance
// scheduler. It starts after everything loaded before it.
func (a *App) AppendModule(mod Module) {
	a.modules = append(a.modules, &loaded{id: mod.ModuleInfo().ID, module: mod})
}

// Module returns the module with the given ID.
func (a *App) Module(id string) (Module, bool) {
	for _, l := range a.modules {
		if string(l.id) == id {
			return l.module, true
		}
	}
	return nil, false
}

// Start runs every Starter in order. When one fails, the modules it
// started are stopped again before the error is returned.
func (a *App) Start() error {
	for i, l := range a.modules {
		s, ok := l.module.(Starter)
		if !ok || l.started {
			continue
		}
		a.logger.Info("starting module", "module", string(l.id))
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(l.id), "error", err)
			a.release(a.modules[:i], true)
			return fmt.Errorf("starting module %s: %w", l.id, err)
		}
		l.started = true
	}
	a.logger.Info("all modules started")
	return nil
}

// Stop stops the started modules in reverse order.
func (a *App) Stop() {
	a.release(a.modules, true)
}

// Close releases every remaining module, started or not. Commands that
// provision modules without running them use it, and it completes a Stop.
func (a *App) Close() {
	a.release(a.modules, false)
	a.modules = nil
}

func (a *App) release(mods []*loaded, startedOnly bool) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(mods) - 1; i >= 0; i-- {
		l := mods[i]
		if l.released || (startedOnly && !l.started) {
			continue
		}
		l.released = true
		l.started = false
		s, ok := l.module.(Stopper)
		if !ok {
			continue
		}
		a.logger.Info("stopping module", "module", string(l.id))
		if err := s.Stop(ctx); err != nil {
			a.logger.Error("module stop error", "module", string(l.id), "error", err)
		}
	}
}
