// Package app provides the shared entry point of the ragchat binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/flemzord/ragchat/internal/config"
	"github.com/flemzord/ragchat/internal/core"
	"github.com/flemzord/ragchat/internal/security"
	"github.com/flemzord/ragchat/internal/telemetry"

	// Compiled-in modules.
	_ "github.com/flemzord/ragchat/internal/gateway"
	_ "github.com/flemzord/ragchat/modules/embedding/openai"
	_ "github.com/flemzord/ragchat/modules/memory/sqlite"
	_ "github.com/flemzord/ragchat/modules/provider/anthropic"
	_ "github.com/flemzord/ragchat/modules/provider/openai_compatible"
	_ "github.com/flemzord/ragchat/modules/provider/openrouter"
	_ "github.com/flemzord/ragchat/modules/retrieval/sqlite"
	_ "github.com/flemzord/ragchat/modules/speech/openai"
)

const telemetryShutdownTimeout = 5 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the configured and default data directory.
	DataDir string

	// LogLevel overrides the configured log level when non-nil.
	LogLevel *slog.Level

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Env is an assembled application: configuration loaded, service modules
// provisioned and the chat runtime wired, but nothing started yet.
type Env struct {
	Config    *config.Config
	Logger    *slog.Logger
	Context   *core.AppContext
	App       *core.App
	Runtime   *Runtime
	Telemetry *telemetry.Provider
}

// Build loads the configuration and assembles the application. When
// withSurfaces is false the gateway modules are not loaded; terminal
// commands drive the runtime directly.
func Build(params RunParams, withSurfaces bool) (*Env, error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	level, err := logLevel(cfg.LogLevel, params.LogLevel)
	if err != nil {
		return nil, err
	}
	redactor := security.NewRedactor()
	for _, secret := range cfg.Security.Redact {
		redactor.AddLiteral(secret)
	}
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := security.NewLogger(out, level, redactor)

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	tp, err := telemetry.Setup(context.Background(), telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, err
	}

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)
	limiter := security.NewRateLimiter(cfg.Security.RateLimits)
	appCtx.RegisterService(security.RateLimiterService, limiter)
	appCtx.RegisterService(telemetry.ServiceName, tp)
	appCtx.RegisterService("config.path", cfgPath)

	application := core.NewApp(appCtx)
	services, surfaces := config.Resolve(cfg)
	if err := application.LoadModules(services); err != nil {
		shutdownTelemetry(tp, logger)
		return nil, err
	}

	// The runtime is wired between the service modules and the surfaces:
	// it consumes the former and is discovered by the latter.
	rt, err := wireRuntime(appCtx, cfg, logger)
	if err != nil {
		application.Close()
		shutdownTelemetry(tp, logger)
		return nil, err
	}
	scheduler, err := newScheduler(rt, limiter, cfg, logger)
	if err != nil {
		application.Close()
		shutdownTelemetry(tp, logger)
		return nil, err
	}
	application.AppendModule(scheduler)

	if withSurfaces {
		if err := application.LoadModules(surfaces); err != nil {
			shutdownTelemetry(tp, logger)
			return nil, err
		}
	}

	return &Env{
		Config:    cfg,
		Logger:    logger,
		Context:   appCtx,
		App:       application,
		Runtime:   rt,
		Telemetry: tp,
	}, nil
}

// Start starts the modules. On failure the environment is already closed.
func (e *Env) Start() error {
	if err := e.App.Start(); err != nil {
		e.Close()
		return err
	}
	return nil
}

// Close releases every module in reverse order and flushes traces.
func (e *Env) Close() {
	e.App.Close()
	shutdownTelemetry(e.Telemetry, e.Logger)
}

// Run assembles the application, starts all modules, and blocks until
// SIGINT or SIGTERM is received.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, params)
}

// RunContext is Run driven by ctx instead of process signals. It returns
// once ctx is done and every module has stopped.
func RunContext(ctx context.Context, params RunParams) error {
	env, err := Build(params, true)
	if err != nil {
		return err
	}

	env.Logger.Info("starting ragchat",
		"version", params.Version,
		"commit", params.Commit,
		"data_dir", env.Context.DataDir,
	)

	if err := env.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	env.Logger.Info("shutdown requested", "cause", context.Cause(ctx))
	env.Close()
	env.Logger.Info("shutdown complete")
	return nil
}

func shutdownTelemetry(tp *telemetry.Provider, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		logger.Warn("telemetry shutdown failed", "error", err)
	}
}

// logLevel returns the override when set, else the configured level.
func logLevel(configured string, override *slog.Level) (slog.Level, error) {
	if override != nil {
		return *override, nil
	}
	var level slog.Level
	if configured == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(configured))); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return level, nil
}

// ErrNoConfig is returned by ResolveConfigPath when no candidate exists.
var ErrNoConfig = errors.New("no configuration file found")

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/ragchat/ragchat.yaml, then
// ~/.config/ragchat/ragchat.yaml, then ./ragchat.yaml.
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "ragchat", "ragchat.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "ragchat", "ragchat.yaml"))
	}

	candidates = append(candidates, "ragchat.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrNoConfig, candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/ragchat if set, otherwise ~/.local/share/ragchat.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "ragchat")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "ragchat")
}
