// Package gateway exposes the chat runtime over HTTP and a websocket, with
// health and Prometheus endpoints. It binds to loopback by default and
// follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/ragchat/internal/backend"
	"github.com/flemzord/ragchat/internal/chat"
	"github.com/flemzord/ragchat/internal/core"
	"github.com/flemzord/ragchat/internal/memory"
	"github.com/flemzord/ragchat/internal/orchestrator"
	"github.com/flemzord/ragchat/internal/retrieval"
	"github.com/flemzord/ragchat/internal/security"
	"github.com/flemzord/ragchat/internal/session"
	"github.com/flemzord/ragchat/internal/summary"
	"github.com/flemzord/ragchat/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Runtime is the chat surface the gateway drives. *chat.Runtime
// satisfies it.
type Runtime interface {
	NewSession(ctx context.Context, previous string) (string, error)
	Turn(ctx context.Context, req chat.TurnRequest) (orchestrator.Result, error)
	Ingest(ctx context.Context, sessionID, text string) (retrieval.IngestResult, error)
	RemoveDocument(ctx context.Context, sessionID string) error
	SetRAG(sessionID string, enabled bool) error
	Summarize(ctx context.Context, sessionID string, sel backend.Selection, temperature *int) (summary.Summary, error)
	State(sessionID string) session.State
	History(ctx context.Context, sessionID string) ([]memory.Turn, error)
	SessionIDs(ctx context.Context) ([]string, error)
	Backends() []backend.Status
	ActiveSessions() int
}

var _ Runtime = (*chat.Runtime)(nil)

// Gateway is the HTTP gateway module. It is a leaf module: nothing
// imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	runtime Runtime
	limiter *security.RateLimiter
	tracer  trace.Tracer
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.metrics = NewMetrics(g.activeSessions)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	return g.config.validate()
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server. The chat runtime is
// required; rate limiting and tracing degrade to off when absent.
func (g *Gateway) Start() error {
	if err := g.resolve(); err != nil {
		return err
	}

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind, "auth", g.config.Auth.IsConfigured())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

func (g *Gateway) resolve() error {
	if g.runtime == nil {
		rt, ok := core.GetService[Runtime](g.appCtx, chat.ServiceName)
		if !ok {
			return fmt.Errorf("gateway: service %q not registered", chat.ServiceName)
		}
		g.runtime = rt
	}
	if g.limiter == nil {
		if rl, ok := core.GetService[*security.RateLimiter](g.appCtx, security.RateLimiterService); ok {
			g.limiter = rl
		}
	}
	if g.tracer == nil {
		if p, ok := core.GetService[*telemetry.Provider](g.appCtx, telemetry.ServiceName); ok {
			g.tracer = p.Tracer()
		} else {
			g.tracer = noop.NewTracerProvider().Tracer(telemetry.TracerName)
		}
	}
	return nil
}

func (g *Gateway) activeSessions() int {
	if g.runtime == nil {
		return 0
	}
	return g.runtime.ActiveSessions()
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
