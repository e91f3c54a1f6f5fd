package core

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"gopkg.in/yaml.v3"
)

// hookMod records which load hooks ran. Setting failAt makes that hook
// return an error.
type hookMod struct {
	id     ModuleID
	calls  *[]string
	failAt string
	noCfg  bool
}

func (m *hookMod) ModuleInfo() ModuleInfo {
	return ModuleInfo{ID: m.id, New: func() Module {
		if m.noCfg {
			return &provisionOnly{inner: &hookMod{id: m.id, calls: m.calls, failAt: m.failAt}}
		}
		return &hookMod{id: m.id, calls: m.calls, failAt: m.failAt}
	}}
}

func (m *hookMod) hook(name string) error {
	*m.calls = append(*m.calls, name)
	if m.failAt == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (m *hookMod) Configure(node *yaml.Node) error {
	var cfg struct {
		Key string `yaml:"key"`
	}
	if err := node.Decode(&cfg); err != nil {
		return err
	}
	*m.calls = append(*m.calls, "key="+cfg.Key)
	return m.hook("configure")
}

func (m *hookMod) Provision(*AppContext) error { return m.hook("provision") }
func (m *hookMod) Validate() error             { return m.hook("validate") }

// provisionOnly implements Provisioner and nothing else.
type provisionOnly struct{ inner *hookMod }

func (m *provisionOnly) ModuleInfo() ModuleInfo      { return ModuleInfo{ID: m.inner.id} }
func (m *provisionOnly) Provision(*AppContext) error { return m.inner.hook("provision") }

func moduleSection(t *testing.T, src string) yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatal(err)
	}
	return *doc.Content[0]
}

func TestAppContext_LoadModuleHooks(t *testing.T) {
	tests := []struct {
		name      string
		section   bool
		failAt    string
		noCfg     bool
		wantCalls []string
		wantErr   bool
	}{
		{
			name:      "with section",
			section:   true,
			wantCalls: []string{"key=history.db", "configure", "provision", "validate"},
		},
		{
			name:      "without section",
			wantCalls: []string{"provision", "validate"},
		},
		{
			name:      "section ignored when not configurable",
			section:   true,
			noCfg:     true,
			wantCalls: []string{"provision"},
		},
		{
			name:      "configure error",
			section:   true,
			failAt:    "configure",
			wantCalls: []string{"key=history.db", "configure"},
			wantErr:   true,
		},
		{
			name:      "provision error",
			failAt:    "provision",
			wantCalls: []string{"provision"},
			wantErr:   true,
		},
		{
			name:      "validate error",
			failAt:    "validate",
			wantCalls: []string{"provision", "validate"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetRegistry)

			var calls []string
			RegisterModule(&hookMod{id: "test.hooks", calls: &calls, failAt: tt.failAt, noCfg: tt.noCfg})

			ctx := NewAppContext(nil, t.TempDir())
			if tt.section {
				ctx = ctx.WithModuleConfigs(map[string]yaml.Node{
					"test.hooks": moduleSection(t, "key: history.db"),
				})
			}

			mod, err := ctx.LoadModule("test.hooks")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && mod == nil {
				t.Fatal("nil module")
			}
			if !slices.Equal(calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", calls, tt.wantCalls)
			}
		})
	}
}

func TestAppContext_LoadModule_UnknownID(t *testing.T) {
	t.Cleanup(resetRegistry)

	if _, err := NewAppContext(nil, "/data").LoadModule("retrieval.nope"); err == nil {
		t.Fatal("expected error for unknown module")
	}
}

func TestAppContext_ForModule(t *testing.T) {
	var buf bytes.Buffer
	root := NewAppContext(slog.New(slog.NewTextHandler(&buf, nil)), "/data").
		WithModuleConfigs(map[string]yaml.Node{"memory.sqlite": moduleSection(t, "path: h.db")})

	child := root.ForModule("memory.sqlite")
	child.Logger.Info("opened")

	if !bytes.Contains(buf.Bytes(), []byte("module=memory.sqlite")) {
		t.Errorf("log = %q", buf.String())
	}
	if child.DataDir != "/data" {
		t.Errorf("DataDir = %q", child.DataDir)
	}
	if _, ok := child.moduleConfigs["memory.sqlite"]; !ok {
		t.Error("module sections not propagated")
	}
}

func TestAppContext_ServicesAreShared(t *testing.T) {
	root := NewAppContext(nil, "/data")
	root.ForModule("memory.sqlite").RegisterService("memory.history", 42)

	got, ok := root.ForModule("gateway.http").Service("memory.history")
	if !ok || got != 42 {
		t.Errorf("Service = %v, %v", got, ok)
	}

	root.RegisterService("memory.history", 43)
	if got, _ := GetService[int](root, "memory.history"); got != 43 {
		t.Errorf("re-registration not applied, got %d", got)
	}
}

func TestGetService(t *testing.T) {
	ctx := NewAppContext(nil, "/data")
	ctx.RegisterService("chat.runtime", "runtime")

	if _, ok := GetService[int](ctx, "chat.runtime"); ok {
		t.Error("type mismatch must not match")
	}
	if got, ok := GetService[string](ctx, "chat.runtime"); !ok || got != "runtime" {
		t.Errorf("GetService = %q, %v", got, ok)
	}
	if _, ok := GetService[string](ctx, "speech.synthesizer"); ok {
		t.Error("unknown name must not match")
	}
}
