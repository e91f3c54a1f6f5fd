package app

import (
	"fmt"
	"log/slog"

	"github.com/flemzord/ragchat/internal/backend"
	"github.com/flemzord/ragchat/internal/chat"
	"github.com/flemzord/ragchat/internal/config"
	ctxengine "github.com/flemzord/ragchat/internal/context"
	"github.com/flemzord/ragchat/internal/core"
	"github.com/flemzord/ragchat/internal/cron"
	"github.com/flemzord/ragchat/internal/memory"
	"github.com/flemzord/ragchat/internal/orchestrator"
	"github.com/flemzord/ragchat/internal/provider"
	"github.com/flemzord/ragchat/internal/retrieval"
	"github.com/flemzord/ragchat/internal/security"
	"github.com/flemzord/ragchat/internal/session"
	"github.com/flemzord/ragchat/internal/speech"
	"github.com/flemzord/ragchat/internal/summary"
	"github.com/flemzord/ragchat/internal/telemetry"
	"github.com/flemzord/ragchat/internal/tokenizer"
)

// Service registry keys published by the storage and model modules.
const (
	historyService     = "memory.history"
	vectorsService     = "retrieval.vectors"
	embedderService    = "retrieval.embedder"
	synthesizerService = "speech.synthesizer"
)

// Runtime is the wired chat pipeline.
type Runtime struct {
	Chat         *chat.Runtime
	Orchestrator *orchestrator.Orchestrator
	Backends     *backend.Selector
	States       *session.StateStore

	// Documents is nil when no embedder is configured.
	Documents *retrieval.Service
}

// wireRuntime builds the chat pipeline from the configured backends and the
// services registered by loaded modules, and publishes it under
// chat.ServiceName. Must be called after the service modules are loaded and
// before the surfaces are.
func wireRuntime(appCtx *core.AppContext, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	selector, err := buildSelector(cfg.Backends, logger)
	if err != nil {
		return nil, err
	}

	history, ok := core.GetService[memory.HistoryStore](appCtx, historyService)
	if !ok {
		logger.Warn("no history store configured, conversations are kept in memory only")
		history = memory.NewInMemoryHistoryStore()
	}

	// Chunking needs exact BPE offsets; history trimming can live with an
	// estimate when the encoding is unavailable.
	var (
		tok       *tokenizer.TikToken
		estimator ctxengine.TokenEstimator
	)
	needTokens := cfg.Chat.TokenBudget > 0
	embedder, hasEmbedder := core.GetService[retrieval.Embedder](appCtx, embedderService)
	if needTokens || hasEmbedder {
		tok, err = tokenizer.NewTikToken("")
		switch {
		case err == nil:
			estimator = tok
		case hasEmbedder:
			return nil, err
		default:
			logger.Warn("token encoding unavailable, estimating history cost from characters", "error", err)
			estimator = ctxengine.NewCharEstimator(0)
		}
	}

	var docs *retrieval.Service
	if hasEmbedder {
		store, ok := core.GetService[retrieval.VectorStore](appCtx, vectorsService)
		if !ok {
			logger.Warn("no vector store configured, document collections are kept in memory only")
			store = retrieval.NewInMemoryVectorStore()
		}
		docs, err = retrieval.NewService(retrieval.NewChunker(tok), embedder, store, logger.With("component", "retrieval"))
		if err != nil {
			return nil, err
		}
	} else {
		logger.Info("no embedder configured, document ingestion is disabled")
	}

	orchCfg := orchestrator.Config{
		ChatInstruction: cfg.Chat.SystemPrompt,
		RAGInstruction:  cfg.Chat.RAGPrompt,
		Window:          cfg.Chat.Window,
		RetrievalK:      cfg.Chat.RetrievalK,
	}
	if needTokens {
		orchCfg.Window = cfg.Chat.TokenBudget
		orchCfg.Cost = ctxengine.EstimatorCost(estimator)
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger.With("component", "orchestrator")),
		orchestrator.WithObserver(telemetry.TransitionObserver()),
	}
	if docs != nil {
		opts = append(opts, orchestrator.WithRetriever(docs))
	}
	orch, err := orchestrator.New(history, selector, orchCfg, opts...)
	if err != nil {
		return nil, err
	}

	states := session.NewStateStore()
	deps := chat.Deps{
		Turns:              orch,
		Sessions:           session.NewManager(history),
		States:             states,
		History:            history,
		Backends:           selector,
		DefaultTemperature: cfg.Chat.Temperature(),
		DetachedTTL:        cfg.Chat.StateTTL,
		Logger:             logger.With("component", "chat"),
	}
	if docs != nil {
		synth, ok := core.GetService[speech.Synthesizer](appCtx, synthesizerService)
		if !ok {
			logger.Info("no synthesizer configured, summaries are returned without audio")
		}
		summarizer, err := summary.New(orch, synth, cfg.Chat.SummaryPrompt, cfg.Chat.RetrievalK)
		if err != nil {
			return nil, err
		}
		deps.Documents = docs
		deps.Summaries = summarizer
	}

	rt, err := chat.New(deps)
	if err != nil {
		return nil, err
	}
	appCtx.RegisterService(chat.ServiceName, rt)

	names := make([]string, 0, 2)
	for _, st := range selector.Status() {
		names = append(names, st.Name+"/"+st.Model)
	}
	logger.Info("chat runtime wired", "backends", names, "ingestion", docs != nil)

	return &Runtime{
		Chat:         rt,
		Orchestrator: orch,
		Backends:     selector,
		States:       states,
		Documents:    docs,
	}, nil
}

// buildSelector builds the primary and secondary backends from their
// provider factories.
func buildSelector(entries []config.BackendConfig, logger *slog.Logger) (*backend.Selector, error) {
	if len(entries) != config.BackendCount {
		return nil, fmt.Errorf("backends: exactly %d are required, got %d", config.BackendCount, len(entries))
	}
	var built [config.BackendCount]backend.Backend
	for i := range entries {
		e := &entries[i]
		p, err := provider.Build(e.Provider, &e.Node)
		if err != nil {
			return nil, fmt.Errorf("backends[%d] %q: %w", i, e.Name, err)
		}
		built[i] = backend.Backend{Name: e.Name, Model: e.Model, Provider: p}
	}
	return backend.NewSelector(built[0], built[1], backend.WithLogger(logger.With("component", "backend")))
}

// newScheduler registers the maintenance jobs on a fresh scheduler.
func newScheduler(rt *Runtime, limiter *security.RateLimiter, cfg *config.Config, logger *slog.Logger) (*cron.Scheduler, error) {
	jobLogger := logger.With("component", "cron")
	stateJob := &cron.StateCleanupJob{
		States:  rt.States,
		MaxIdle: cfg.Chat.StateTTL,
		Logger:  jobLogger,
	}
	if rt.Documents != nil {
		stateJob.Collections = rt.Documents
	}

	jobs := []cron.Job{
		stateJob,
		&cron.LaneCleanupJob{
			Lanes:  rt.Orchestrator.Lanes(),
			Active: rt.States.ActiveIDs,
			Logger: jobLogger,
		},
		&cron.RateLimitCleanupJob{Limiter: limiter, Logger: jobLogger},
	}
	if rt.Documents != nil {
		jobs = append(jobs, &cron.CollectionCleanupJob{
			Store:       rt.Documents,
			Collections: rt.Documents,
			Referenced:  rt.Chat.ReferencedCollections,
			Logger:      jobLogger,
		})
	}

	s := cron.NewScheduler(jobLogger)
	for _, j := range jobs {
		if err := s.RegisterJob(j); err != nil {
			return nil, err
		}
	}
	return s, nil
}
