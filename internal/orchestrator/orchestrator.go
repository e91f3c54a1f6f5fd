// Package orchestrator handles one conversation turn end to end: fetch the
// session history, trim it, assemble the prompt (plain or with retrieved
// context), invoke the selected backend and record the exchange.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flemzord/ragchat/internal/backend"
	ctxengine "github.com/flemzord/ragchat/internal/context"
	"github.com/flemzord/ragchat/internal/memory"
	"github.com/flemzord/ragchat/internal/provider"
	"github.com/flemzord/ragchat/internal/retrieval"
)

// DefaultTemperature is the temperature percentage used when a caller has
// no preference.
const DefaultTemperature = 20

// Validation errors. None of them reaches the store or a backend.
var (
	ErrEmptyTurn          = errors.New("user turn is empty")
	ErrMissingSession     = errors.New("session id is required")
	ErrInvalidTemperature = errors.New("temperature must be between 0 and 100")
)

// Mode is how a turn's prompt was assembled.
type Mode string

// Prompt modes.
const (
	ModeChat Mode = "chat"
	ModeRAG  Mode = "rag"
)

// RAGOptions selects context-augmented mode for a turn.
type RAGOptions struct {
	// Collection is the vector collection to search.
	Collection string

	// K is the number of chunks to retrieve. Zero uses the configured default.
	K int
}

// Request is one user turn.
type Request struct {
	SessionID string
	Text      string
	Selection backend.Selection

	// Temperature is a percentage in [0, 100].
	Temperature int

	// RAG is nil for plain chat.
	RAG *RAGOptions

	// Recorded, when set, runs after the exchange is appended and before
	// the session lane is released.
	Recorded func(user, assistant string)
}

// Result is a successful turn.
type Result struct {
	Text    string
	Mode    Mode
	Backend string
	Model   string
	Usage   provider.TokenUsage
	State   State
}

// Backends selects and invokes a model backend. *backend.Selector
// satisfies it.
type Backends interface {
	Select(sel backend.Selection) (backend.Backend, error)
	Invoke(ctx context.Context, b backend.Backend, msgs []provider.LLMMessage, temperature float64) (provider.CompletionResponse, error)
}

// Transition is reported to an Observer on every state change.
type Transition struct {
	SessionID string
	From, To  State
	Err       error
}

// Observer receives turn state transitions. It must not block.
type Observer func(ctx context.Context, t Transition)

// Config holds the prompt settings of an Orchestrator.
type Config struct {
	// ChatInstruction is the system message of plain turns.
	ChatInstruction string

	// RAGInstruction is the system template of context-augmented turns.
	// It should contain ctxengine.ContextPlaceholder.
	RAGInstruction string

	// Window is the trimmed history size in turns.
	Window int

	// Cost overrides the per-turn cost used by the trimmer. Nil counts turns.
	Cost ctxengine.CostFunc

	// RetrievalK is the default number of chunks per retrieval.
	RetrievalK int
}

func (c *Config) defaults() {
	if c.ChatInstruction == "" {
		c.ChatInstruction = ctxengine.DefaultChatInstruction
	}
	if c.RAGInstruction == "" {
		c.RAGInstruction = ctxengine.DefaultRAGInstruction
	}
	if c.Window <= 0 {
		c.Window = ctxengine.DefaultWindow
	}
	if c.Cost == nil {
		c.Cost = ctxengine.UnitCost
	}
	if c.RetrievalK <= 0 {
		c.RetrievalK = retrieval.DefaultK
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers a transition observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithRetriever enables context-augmented turns.
func WithRetriever(r retrieval.Retriever) Option {
	return func(o *Orchestrator) { o.retriever = r }
}

// WithAssemblers replaces the plain and context-augmented assemblers.
func WithAssemblers(chat, rag ctxengine.Assembler) Option {
	return func(o *Orchestrator) {
		if chat != nil {
			o.chat = chat
		}
		if rag != nil {
			o.rag = rag
		}
	}
}

// WithLaneLock shares a lane lock with other components.
func WithLaneLock(l *LaneLock) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.lanes = l
		}
	}
}

// Orchestrator drives turns. It is safe for concurrent use; turns of the
// same session are serialized.
type Orchestrator struct {
	history   memory.HistoryStore
	backends  Backends
	retriever retrieval.Retriever
	cfg       Config
	trimmer   ctxengine.Trimmer
	chat      ctxengine.Assembler
	rag       ctxengine.Assembler
	lanes     *LaneLock
	logger    *slog.Logger
	observer  Observer
}

// New creates an Orchestrator. history and backends are required.
func New(history memory.HistoryStore, backends Backends, cfg Config, opts ...Option) (*Orchestrator, error) {
	if history == nil {
		return nil, errors.New("orchestrator: history store is required")
	}
	if backends == nil {
		return nil, errors.New("orchestrator: backends are required")
	}
	cfg.defaults()

	o := &Orchestrator{
		history:  history,
		backends: backends,
		cfg:      cfg,
		trimmer:  ctxengine.Trimmer{Budget: cfg.Window, Cost: cfg.Cost},
		chat:     ctxengine.ChatAssembler{},
		rag:      ctxengine.ContextAssembler{},
		lanes:    NewLaneLock(),
		logger:   slog.New(nopHandler{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Lanes returns the lane lock, for periodic cleanup.
func (o *Orchestrator) Lanes() *LaneLock {
	return o.lanes
}

// NormalizeTemperature converts a percentage to the [0.0, 1.0] range
// backends expect.
func NormalizeTemperature(percent int) (float64, error) {
	if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTemperature, percent)
	}
	return float64(percent) / 100, nil
}

// HandleTurn processes one user turn. On success the user turn and the
// assistant reply are appended to the session history together; on any
// failure nothing is recorded.
func (o *Orchestrator) HandleTurn(ctx context.Context, req Request) (Result, error) {
	t := &turn{o: o, ctx: ctx, sessionID: req.SessionID, state: StateStart}

	temperature, err := o.validate(req)
	if err != nil {
		return t.fail(err)
	}
	b, err := o.backends.Select(req.Selection)
	if err != nil {
		return t.fail(err)
	}

	release, err := o.lanes.Acquire(ctx, req.SessionID)
	if err != nil {
		return t.fail(err)
	}
	defer release()

	start := time.Now()

	history, err := o.history.Fetch(ctx, req.SessionID)
	if err != nil {
		return t.fail(err)
	}
	t.advance(StateHistoryFetched)

	mode := ModeChat
	var retrieved string
	if req.RAG != nil {
		mode = ModeRAG
		retrieved, err = o.retrieve(ctx, req)
		if err != nil {
			return t.fail(err)
		}
	}

	trimmed := o.trimmer.Trim(history)
	t.advance(StateTrimmed)

	var msgs []provider.LLMMessage
	if mode == ModeRAG {
		msgs = o.rag.Assemble(ctxengine.Assembly{
			Instruction: o.cfg.RAGInstruction,
			History:     trimmed,
			UserText:    req.Text,
			Context:     retrieved,
		})
	} else {
		msgs = o.chat.Assemble(ctxengine.Assembly{
			Instruction: o.cfg.ChatInstruction,
			History:     trimmed,
			UserText:    req.Text,
		})
	}
	t.advance(StateAssembled)

	resp, err := o.backends.Invoke(ctx, b, msgs, temperature)
	if err != nil {
		return t.fail(err)
	}
	t.advance(StateBackendInvoked)

	text, err := extract(mode, b, resp)
	if err != nil {
		return t.fail(err)
	}

	if err := o.history.Append(ctx, req.SessionID, memory.UserTurn(req.Text), memory.AssistantTurn(text)); err != nil {
		return t.fail(err)
	}
	if req.Recorded != nil {
		req.Recorded(req.Text, text)
	}
	t.advance(StateSucceeded)

	o.logger.Debug("turn handled",
		"session", req.SessionID,
		"mode", string(mode),
		"backend", b.Name,
		"history", len(history),
		"trimmed", len(trimmed),
		"duration", time.Since(start),
	)

	return Result{
		Text:    text,
		Mode:    mode,
		Backend: b.Name,
		Model:   b.Model,
		Usage:   resp.Usage,
		State:   t.state,
	}, nil
}

func (o *Orchestrator) validate(req Request) (float64, error) {
	if req.SessionID == "" {
		return 0, ErrMissingSession
	}
	if strings.TrimSpace(req.Text) == "" {
		return 0, ErrEmptyTurn
	}
	if !req.Selection.Valid() {
		return 0, fmt.Errorf("%w: %d", backend.ErrInvalidSelection, int(req.Selection))
	}
	return NormalizeTemperature(req.Temperature)
}

func (o *Orchestrator) retrieve(ctx context.Context, req Request) (string, error) {
	if o.retriever == nil {
		return "", fmt.Errorf("%w: no retriever configured", retrieval.ErrRetrieval)
	}
	if req.RAG.Collection == "" {
		return "", fmt.Errorf("%w: collection is required", retrieval.ErrRetrieval)
	}
	k := req.RAG.K
	if k <= 0 {
		k = o.cfg.RetrievalK
	}
	chunks, err := o.retriever.SimilaritySearch(ctx, req.RAG.Collection, req.Text, k)
	if err != nil {
		if !errors.Is(err, retrieval.ErrRetrieval) {
			err = fmt.Errorf("%w: %w", retrieval.ErrRetrieval, err)
		}
		return "", err
	}
	return retrieval.JoinChunks(chunks), nil
}

// extract pulls the reply out of the response. Plain turns read the
// assistant message from the structured wrapper and reject an empty one;
// context-augmented turns return the generated string as-is.
func extract(mode Mode, b backend.Backend, resp provider.CompletionResponse) (string, error) {
	if mode == ModeRAG {
		return resp.Content, nil
	}
	if resp.Content == "" && resp.FinishReason == "" {
		return "", fmt.Errorf("%w: %s: empty response", backend.ErrBackend, b.Name)
	}
	return resp.Content, nil
}

// turn tracks the state of one HandleTurn call.
type turn struct {
	o         *Orchestrator
	ctx       context.Context
	sessionID string
	state     State
}

func (t *turn) advance(to State) {
	t.transition(to, nil)
}

func (t *turn) fail(err error) (Result, error) {
	t.transition(StateFailed, err)
	t.o.logger.Warn("turn failed", "session", t.sessionID, "error", err)
	return Result{State: StateFailed}, err
}

func (t *turn) transition(to State, err error) {
	if terr := next(t.state, to); terr != nil {
		t.o.logger.Error("turn state machine violated", "session", t.sessionID, "error", terr)
	}
	from := t.state
	t.state = to
	if t.o.observer != nil {
		t.o.observer(t.ctx, Transition{SessionID: t.sessionID, From: from, To: to, Err: err})
	}
}

// nopHandler discards every record.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
