package gateway

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/ragchat/internal/chat"
	"github.com/flemzord/ragchat/internal/core"
	"github.com/flemzord/ragchat/internal/security"
	"github.com/flemzord/ragchat/internal/telemetry"
	"gopkg.in/yaml.v3"
)

func TestGateway_ConfigureAndValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		check   func(t *testing.T, c Config)
		wantErr string
	}{
		{
			name: "defaults",
			yaml: "{}",
			check: func(t *testing.T, c Config) {
				if c.Bind != "127.0.0.1:8080" || c.ReadTimeout != 10*time.Second ||
					c.WriteTimeout != 2*time.Minute || c.ShutdownTimeout != 5*time.Second ||
					c.MaxDocumentBytes != defaultMaxDocumentBytes {
					t.Errorf("defaults = %+v", c)
				}
			},
		},
		{
			name: "custom",
			yaml: `
bind: "0.0.0.0:9090"
read_timeout: 5s
write_timeout: 15s
max_document_bytes: 1024
allowed_origins: ["chat.example.com", "*.internal"]
auth:
  bearer_token: "my-token"
`,
			check: func(t *testing.T, c Config) {
				if c.Bind != "0.0.0.0:9090" || c.WriteTimeout != 15*time.Second ||
					c.MaxDocumentBytes != 1024 || len(c.AllowedOrigins) != 2 || c.Auth.BearerToken != "my-token" {
					t.Errorf("config = %+v", c)
				}
			},
		},
		{name: "bad bind", yaml: `bind: "not a valid address::"`, wantErr: "bind address"},
		{name: "half basic auth", yaml: "auth:\n  basic_user: reader", wantErr: "basic_pass"},
		{name: "bad origin pattern", yaml: `allowed_origins: ["[chat"]`, wantErr: "allowed_origins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := &Gateway{}
			if err := g.Configure(mustYAMLNode(t, tt.yaml)); err != nil {
				t.Fatalf("Configure: %v", err)
			}
			err := g.Validate()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			tt.check(t, g.config)
		})
	}
}

func TestGateway_ProvisionAppliesDefaults(t *testing.T) {
	t.Parallel()

	g := (&Gateway{}).ModuleInfo().New().(*Gateway)
	if err := g.Provision(core.NewAppContext(testLogger(), t.TempDir())); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if g.metrics == nil || g.config.Bind == "" {
		t.Errorf("provisioned gateway = %+v", g.config)
	}
}

// freeAddr returns a free TCP address on localhost.
func freeAddr(t *testing.T) string {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}

// doGet makes a GET request with context.
func doGet(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func provisionedGateway(t *testing.T, appCtx *core.AppContext) *Gateway {
	t.Helper()
	g := &Gateway{}
	if err := g.Configure(mustYAMLNode(t, "bind: "+freeAddr(t))); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	return g
}

func TestGateway_StartResolvesServices(t *testing.T) {
	t.Parallel()

	appCtx := core.NewAppContext(testLogger(), t.TempDir())
	rt := newFakeRuntime()
	limiter := security.NewRateLimiter(security.RateLimitConfig{})
	appCtx.RegisterService(chat.ServiceName, Runtime(rt))
	appCtx.RegisterService(security.RateLimiterService, limiter)
	appCtx.RegisterService(telemetry.ServiceName, telemetry.Noop())

	g := provisionedGateway(t, appCtx)
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = g.Stop(context.Background()) }()

	if g.runtime != rt {
		t.Error("runtime not resolved")
	}
	if g.limiter != limiter {
		t.Error("rate limiter not resolved")
	}

	resp := doGet(t, "http://"+g.config.Bind+"/health")
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || len(health.Backends) != 2 {
		t.Errorf("health = %+v", health)
	}
}

func TestGateway_StartWithoutRuntime(t *testing.T) {
	t.Parallel()

	appCtx := core.NewAppContext(testLogger(), t.TempDir())
	g := provisionedGateway(t, appCtx)
	if err := g.Start(); err == nil {
		_ = g.Stop(context.Background())
		t.Fatal("expected error without chat runtime")
	}
}

func TestGateway_StopNilServer(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Stop(context.Background()); err != nil {
		t.Errorf("Stop on nil server should not error: %v", err)
	}
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}
