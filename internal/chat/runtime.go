// Package chat ties the turn pipeline to per-session front-end state. A
// Runtime is what the HTTP gateway, the MCP server and the terminal chat
// drive: it allocates sessions, routes turns through plain or
// context-augmented mode according to the session toggle, and manages the
// document attached to each session.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/ragchat/internal/backend"
	"github.com/flemzord/ragchat/internal/memory"
	"github.com/flemzord/ragchat/internal/orchestrator"
	"github.com/flemzord/ragchat/internal/retrieval"
	"github.com/flemzord/ragchat/internal/session"
	"github.com/flemzord/ragchat/internal/summary"
)

// ServiceName is the registry key under which the Runtime is published.
const ServiceName = "chat.runtime"

// DefaultDetachedTTL is how long a collection owned by no session stays
// referenced after its last use.
const DefaultDetachedTTL = 24 * time.Hour

var (
	// ErrIngestionDisabled is returned when no retrieval service is wired.
	ErrIngestionDisabled = fmt.Errorf("%w: document ingestion is not configured", retrieval.ErrRetrieval)

	// ErrSummaryDisabled is returned when no summarizer is wired.
	ErrSummaryDisabled = errors.New("document summary is not configured")
)

// TurnHandler runs one turn. *orchestrator.Orchestrator satisfies it.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error)
}

// Documents ingests and drops collections. *retrieval.Service satisfies it.
type Documents interface {
	Ingest(ctx context.Context, text string) (retrieval.IngestResult, error)
	Drop(ctx context.Context, collection string) error
}

// Summaries produces document summaries. *summary.Summarizer satisfies it.
type Summaries interface {
	Summarize(ctx context.Context, req summary.Request) (summary.Summary, error)
}

// BackendStatus reports passive backend health. *backend.Selector
// satisfies it.
type BackendStatus interface {
	Status() []backend.Status
}

// Deps are the collaborators of a Runtime. Turns, Sessions, States and
// History are required.
type Deps struct {
	Turns     TurnHandler
	Sessions  *session.Manager
	States    *session.StateStore
	History   memory.HistoryStore
	Documents Documents
	Summaries Summaries
	Backends  BackendStatus

	// DefaultTemperature applies to turns that carry none.
	DefaultTemperature int

	// DetachedTTL bounds how long an IndexDocument collection stays
	// referenced without being used. Zero uses DefaultDetachedTTL.
	DetachedTTL time.Duration

	Logger *slog.Logger
}

// Runtime is safe for concurrent use.
type Runtime struct {
	deps   Deps
	logger *slog.Logger

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time

	mu       sync.Mutex
	detached map[string]time.Time // collection -> last use
}

// New validates deps and returns a Runtime.
func New(deps Deps) (*Runtime, error) {
	var errs []error
	if deps.Turns == nil {
		errs = append(errs, errors.New("turn handler is required"))
	}
	if deps.Sessions == nil {
		errs = append(errs, errors.New("session manager is required"))
	}
	if deps.States == nil {
		errs = append(errs, errors.New("state store is required"))
	}
	if deps.History == nil {
		errs = append(errs, errors.New("history store is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	if _, err := orchestrator.NormalizeTemperature(deps.DefaultTemperature); err != nil {
		return nil, fmt.Errorf("chat: default temperature: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.DetachedTTL <= 0 {
		deps.DetachedTTL = DefaultDetachedTTL
	}
	return &Runtime{
		deps:     deps,
		logger:   logger,
		now:      time.Now,
		detached: make(map[string]time.Time),
	}, nil
}

// TurnRequest is one user turn addressed to a session.
type TurnRequest struct {
	SessionID string
	Text      string
	Selection backend.Selection

	// Temperature is a percentage. Nil uses the runtime default.
	Temperature *int

	// Collection forces context-augmented mode over the given collection.
	// Empty follows the session's RAG toggle.
	Collection string
}

// NewSession allocates a session id. When previous names a session, its
// state is discarded and its collection dropped; the stored history stays.
func (r *Runtime) NewSession(ctx context.Context, previous string) (string, error) {
	id, err := r.deps.Sessions.NewSessionID(ctx)
	if err != nil {
		return "", err
	}
	r.drop(ctx, r.deps.States.Replace(previous, id))
	r.logger.Info("session created", "session", id)
	return id, nil
}

// Turn runs one turn. The mode follows the session's toggle unless the
// request names a collection. Successful exchanges are mirrored into the
// session transcript.
func (r *Runtime) Turn(ctx context.Context, req TurnRequest) (orchestrator.Result, error) {
	oreq := orchestrator.Request{
		SessionID:   req.SessionID,
		Text:        req.Text,
		Selection:   req.Selection,
		Temperature: r.temperature(req.Temperature),
	}

	switch {
	case req.Collection != "":
		oreq.RAG = &orchestrator.RAGOptions{Collection: req.Collection}
	default:
		if st, ok := r.deps.States.Get(req.SessionID); ok && st.Mode() == session.ModeRAG {
			oreq.RAG = &orchestrator.RAGOptions{Collection: st.Collection}
		}
	}

	// The transcript is written while the session lane is still held, so
	// it follows the stored history order.
	oreq.Recorded = func(user, assistant string) {
		_ = r.deps.States.Update(req.SessionID, func(s *session.State) error {
			s.RecordExchange(user, assistant)
			return nil
		})
	}
	res, err := r.deps.Turns.HandleTurn(ctx, oreq)
	if err == nil && req.Collection != "" {
		r.touchDetached(req.Collection)
	}
	return res, err
}

// Ingest indexes text as the session's document. A previous document of the
// session is dropped. RAG becomes available but is not switched on.
func (r *Runtime) Ingest(ctx context.Context, sessionID, text string) (retrieval.IngestResult, error) {
	if sessionID == "" {
		return retrieval.IngestResult{}, orchestrator.ErrMissingSession
	}
	if r.deps.Documents == nil {
		return retrieval.IngestResult{}, ErrIngestionDisabled
	}

	res, err := r.deps.Documents.Ingest(ctx, text)
	if err != nil {
		return res, err
	}

	var replaced string
	_ = r.deps.States.Update(sessionID, func(s *session.State) error {
		replaced = s.DocumentIndexed(res.Collection)
		return nil
	})
	r.drop(ctx, replaced)
	return res, nil
}

// IndexDocument ingests text into a collection owned by no session. The
// caller passes the collection name to later turns. The collection stays
// referenced while turns keep using it within DetachedTTL.
func (r *Runtime) IndexDocument(ctx context.Context, text string) (retrieval.IngestResult, error) {
	if r.deps.Documents == nil {
		return retrieval.IngestResult{}, ErrIngestionDisabled
	}
	res, err := r.deps.Documents.Ingest(ctx, text)
	if err != nil {
		return res, err
	}
	r.touchDetached(res.Collection)
	return res, nil
}

// touchDetached marks a collection named by a turn as used now.
func (r *Runtime) touchDetached(collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detached[collection] = r.now()
}

// ReferencedCollections returns which of the stored collections are still
// in use: those attached to a live session state and detached ones used
// within DetachedTTL. A stored collection the runtime has never seen, such
// as one indexed by another process, is adopted as detached and used now.
// Detached collections past the TTL are forgotten.
func (r *Runtime) ReferencedCollections(stored []string) map[string]struct{} {
	refs := r.deps.States.Collections()
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range stored {
		if _, ok := refs[name]; ok {
			continue
		}
		if _, ok := r.detached[name]; !ok {
			r.detached[name] = now
		}
	}
	for name, used := range r.detached {
		if now.Sub(used) > r.deps.DetachedTTL {
			delete(r.detached, name)
			continue
		}
		refs[name] = struct{}{}
	}
	return refs
}

// RemoveDocument detaches and drops the session's document.
func (r *Runtime) RemoveDocument(ctx context.Context, sessionID string) error {
	var removed string
	_ = r.deps.States.Update(sessionID, func(s *session.State) error {
		removed = s.DocumentRemoved()
		return nil
	})
	if removed == "" || r.deps.Documents == nil {
		return nil
	}
	return r.deps.Documents.Drop(ctx, removed)
}

// SetRAG toggles context-augmented mode. Enabling it without an indexed
// document returns session.ErrRAGUnavailable.
func (r *Runtime) SetRAG(sessionID string, enabled bool) error {
	return r.deps.States.Update(sessionID, func(s *session.State) error {
		return s.SetRAG(enabled)
	})
}

// Summarize summarizes the session's document and keeps the result on the
// session state. The text is kept even when synthesis fails.
func (r *Runtime) Summarize(ctx context.Context, sessionID string, sel backend.Selection, temperature *int) (summary.Summary, error) {
	if r.deps.Summaries == nil {
		return summary.Summary{}, ErrSummaryDisabled
	}
	st, ok := r.deps.States.Get(sessionID)
	if !ok || !st.SummaryReady || st.Collection == "" {
		return summary.Summary{}, session.ErrRAGUnavailable
	}

	sum, err := r.deps.Summaries.Summarize(ctx, summary.Request{
		SessionID:   sessionID,
		Collection:  st.Collection,
		Selection:   sel,
		Temperature: r.temperature(temperature),
	})
	if sum.Text == "" {
		return sum, err
	}

	var audio *session.Audio
	if err == nil {
		audio = &session.Audio{Data: sum.Audio.Data, Format: sum.Audio.Format}
	}
	_ = r.deps.States.Update(sessionID, func(s *session.State) error {
		s.RecordSummary(sum.Text, audio)
		return nil
	})
	return sum, err
}

// State returns a snapshot of the session state. Unknown sessions yield a
// fresh state in plain mode.
func (r *Runtime) State(sessionID string) session.State {
	if st, ok := r.deps.States.Get(sessionID); ok {
		return st
	}
	return *session.NewState(sessionID)
}

// History returns the stored turns of a session.
func (r *Runtime) History(ctx context.Context, sessionID string) ([]memory.Turn, error) {
	return r.deps.History.Fetch(ctx, sessionID)
}

// SessionIDs lists sessions with stored history.
func (r *Runtime) SessionIDs(ctx context.Context) ([]string, error) {
	return r.deps.History.SessionIDs(ctx)
}

// Backends returns the passive health of both backends, or nil when no
// reporter is wired.
func (r *Runtime) Backends() []backend.Status {
	if r.deps.Backends == nil {
		return nil
	}
	return r.deps.Backends.Status()
}

// ActiveSessions returns the number of session states held in memory.
func (r *Runtime) ActiveSessions() int {
	return r.deps.States.Len()
}

func (r *Runtime) temperature(p *int) int {
	if p == nil {
		return r.deps.DefaultTemperature
	}
	return *p
}

func (r *Runtime) drop(ctx context.Context, collection string) {
	if collection == "" || r.deps.Documents == nil {
		return
	}
	if err := r.deps.Documents.Drop(context.WithoutCancel(ctx), collection); err != nil {
		r.logger.Warn("dropping collection failed", "collection", collection, "error", err)
	}
}
