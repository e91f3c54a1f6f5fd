package gateway

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/ragchat/internal/backend"
	"github.com/flemzord/ragchat/internal/chat"
	"github.com/flemzord/ragchat/internal/memory"
	"github.com/flemzord/ragchat/internal/orchestrator"
	"github.com/flemzord/ragchat/internal/retrieval"
	"github.com/flemzord/ragchat/internal/security"
	"github.com/flemzord/ragchat/internal/session"
	"github.com/flemzord/ragchat/internal/speech"
	"github.com/flemzord/ragchat/internal/summary"
	"go.opentelemetry.io/otel/trace/noop"
)

// fakeRuntime is an in-memory Runtime. Set the err fields to force failures.
type fakeRuntime struct {
	mu       sync.Mutex
	states   map[string]*session.State
	history  map[string][]memory.Turn
	nextID   int
	backends []backend.Status
	turns    []chat.TurnRequest

	turnErr    error
	ingestErr  error
	summaryErr error
	historyErr error
}

var _ Runtime = (*fakeRuntime)(nil)

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		states:  make(map[string]*session.State),
		history: make(map[string][]memory.Turn),
		backends: []backend.Status{
			{Name: "versatile", Model: "big", Healthy: true},
			{Name: "instant", Model: "small", Healthy: true},
		},
	}
}

func (f *fakeRuntime) state(id string) *session.State {
	st, ok := f.states[id]
	if !ok {
		st = session.NewState(id)
		f.states[id] = st
	}
	return st
}

func (f *fakeRuntime) NewSession(_ context.Context, previous string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if previous != "" {
		delete(f.states, previous)
	}
	f.nextID++
	id := string(rune('0' + f.nextID))
	f.state(id)
	return id, nil
}

func (f *fakeRuntime) Turn(_ context.Context, req chat.TurnRequest) (orchestrator.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, req)
	if f.turnErr != nil {
		return orchestrator.Result{State: orchestrator.StateFailed}, f.turnErr
	}
	if req.Text == "" {
		return orchestrator.Result{State: orchestrator.StateFailed}, orchestrator.ErrEmptyTurn
	}
	st := f.state(req.SessionID)
	mode := orchestrator.ModeChat
	if st.Mode() == session.ModeRAG {
		mode = orchestrator.ModeRAG
	}
	b := f.backends[req.Selection]
	reply := "echo: " + req.Text
	f.history[req.SessionID] = append(f.history[req.SessionID], memory.UserTurn(req.Text), memory.AssistantTurn(reply))
	st.RecordExchange(req.Text, reply)
	return orchestrator.Result{Text: reply, Mode: mode, Backend: b.Name, Model: b.Model, State: orchestrator.StateSucceeded}, nil
}

func (f *fakeRuntime) Ingest(_ context.Context, sessionID, text string) (retrieval.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ingestErr != nil {
		return retrieval.IngestResult{}, f.ingestErr
	}
	if text == "" {
		return retrieval.IngestResult{}, retrieval.ErrEmptyDocument
	}
	f.state(sessionID).DocumentIndexed("col-" + sessionID)
	return retrieval.IngestResult{Collection: "col-" + sessionID, Chunks: len(text)}, nil
}

func (f *fakeRuntime) RemoveDocument(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state(sessionID).DocumentRemoved()
	return nil
}

func (f *fakeRuntime) SetRAG(sessionID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state(sessionID).SetRAG(enabled)
}

func (f *fakeRuntime) Summarize(_ context.Context, sessionID string, _ backend.Selection, _ *int) (summary.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state(sessionID)
	if !st.SummaryReady {
		return summary.Summary{}, session.ErrRAGUnavailable
	}
	if f.summaryErr != nil {
		return summary.Summary{Text: "short"}, f.summaryErr
	}
	return summary.Summary{Text: "short", Audio: speech.Audio{Data: []byte("ID3audio"), Format: "mp3"}}, nil
}

func (f *fakeRuntime) State(sessionID string) session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.states[sessionID]; ok {
		return st.Snapshot()
	}
	return *session.NewState(sessionID)
}

func (f *fakeRuntime) History(_ context.Context, sessionID string) ([]memory.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[sessionID], nil
}

func (f *fakeRuntime) SessionIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	var ids []string
	for id := range f.history {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRuntime) Backends() []backend.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.Status(nil), f.backends...)
}

func (f *fakeRuntime) ActiveSessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.states)
}

// turnAt returns the i-th forwarded turn request.
func (f *fakeRuntime) turnAt(i int) chat.TurnRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.turns[i]
}

func (f *fakeRuntime) hasState(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.states[id]
	return ok
}

func (f *fakeRuntime) historyLen(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history[id])
}

func (f *fakeRuntime) setSummaryErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryErr = err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// newTestGateway builds a gateway over rt without listening.
func newTestGateway(t *testing.T, rt Runtime, auth AuthConfig, limiter *security.RateLimiter) *Gateway {
	t.Helper()
	g := &Gateway{
		config: Config{
			Bind:            "127.0.0.1:0",
			Auth:            auth,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 2 * time.Second,
		},
		logger:    testLogger(),
		runtime:   rt,
		limiter:   limiter,
		tracer:    noop.NewTracerProvider().Tracer("test"),
		startedAt: time.Now(),
	}
	g.config.defaults()
	g.metrics = NewMetrics(g.activeSessions)
	return g
}

// serve starts an httptest server over the gateway's router.
func serve(t *testing.T, g *Gateway) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(g.buildRouter())
	t.Cleanup(srv.Close)
	return srv
}
