package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/flemzord/ragchat/internal/backend"
	"github.com/flemzord/ragchat/internal/chat"
	"github.com/flemzord/ragchat/internal/memory"
	"github.com/flemzord/ragchat/internal/session"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type newSessionRequest struct {
	// Previous is the session being left. Its state is discarded.
	Previous string `json:"previous"`
}

type newSessionResponse struct {
	SessionID string `json:"session_id"`
}

type sessionsResponse struct {
	Sessions []string `json:"sessions"`
}

// stateJSON is the serializable view of a session state.
type stateJSON struct {
	SessionID     string `json:"session_id"`
	Mode          string `json:"mode"`
	RAGAvailable  bool   `json:"rag_available"`
	RAGEnabled    bool   `json:"rag_enabled"`
	SummaryReady  bool   `json:"summary_ready"`
	Collection    string `json:"collection,omitempty"`
	Summary       string `json:"summary,omitempty"`
	TranscriptLen int    `json:"transcript_len"`
}

func toStateJSON(st session.State) stateJSON {
	return stateJSON{
		SessionID:     st.SessionID,
		Mode:          string(st.Mode()),
		RAGAvailable:  st.RAGAvailable,
		RAGEnabled:    st.RAGEnabled,
		SummaryReady:  st.SummaryReady,
		Collection:    st.Collection,
		Summary:       st.Summary,
		TranscriptLen: len(st.Transcript),
	}
}

type historyResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []memory.Turn `json:"turns"`
}

type turnRequest struct {
	Text        string `json:"text"`
	Backend     int    `json:"backend"`
	Temperature *int   `json:"temperature,omitempty"`
}

type turnResponse struct {
	Text    string `json:"text"`
	Mode    string `json:"mode"`
	Backend string `json:"backend"`
	Model   string `json:"model"`
}

type documentRequest struct {
	Text string `json:"text"`
}

type ragRequest struct {
	Enabled *bool `json:"enabled"`
}

type summaryRequest struct {
	Backend     int  `json:"backend"`
	Temperature *int `json:"temperature,omitempty"`
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

func (g *Gateway) handleNewSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req newSessionRequest
		if err := decodeJSON(r, &req); err != nil {
			g.writeErr(w, err)
			return
		}
		id, err := g.runtime.NewSession(r.Context(), req.Previous)
		if err != nil {
			g.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newSessionResponse{SessionID: id})
	}
}

func (g *Gateway) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := g.runtime.SessionIDs(r.Context())
		if err != nil {
			g.writeErr(w, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, sessionsResponse{Sessions: ids})
	}
}

func (g *Gateway) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toStateJSON(g.runtime.State(chi.URLParam(r, "id"))))
	}
}

func (g *Gateway) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		turns, err := g.runtime.History(r.Context(), id)
		if err != nil {
			g.writeErr(w, err)
			return
		}
		if turns == nil {
			turns = []memory.Turn{}
		}
		writeJSON(w, http.StatusOK, historyResponse{SessionID: id, Turns: turns})
	}
}

func (g *Gateway) handleTurn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req turnRequest
		if err := decodeJSON(r, &req); err != nil {
			g.writeErr(w, err)
			return
		}
		resp, err := g.turn(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			g.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// turn runs one turn inside a span and records its metrics. Both the HTTP
// and the websocket handlers go through it.
func (g *Gateway) turn(ctx context.Context, sessionID string, req turnRequest) (turnResponse, error) {
	ctx, span := g.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("backend.selection", req.Backend),
	))
	defer span.End()

	start := time.Now()
	sel, err := backend.ParseSelection(req.Backend)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return turnResponse{}, err
	}

	res, err := g.runtime.Turn(ctx, chat.TurnRequest{
		SessionID:   sessionID,
		Text:        req.Text,
		Selection:   sel,
		Temperature: req.Temperature,
	})
	mode := string(res.Mode)
	if mode == "" {
		mode = string(g.runtime.State(sessionID).Mode())
	}
	g.metrics.ObserveTurn(mode, res.Backend, outcome(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return turnResponse{}, err
	}

	span.SetAttributes(
		attribute.String("turn.mode", mode),
		attribute.String("backend.name", res.Backend),
		attribute.String("backend.model", res.Model),
		attribute.Int("usage.total_tokens", res.Usage.TotalTokens),
	)
	return turnResponse{Text: res.Text, Mode: mode, Backend: res.Backend, Model: res.Model}, nil
}

// handleIngest accepts either a JSON {"text": ...} body or the raw text.
func (g *Gateway) handleIngest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, g.config.MaxDocumentBytes)
		text, err := readDocument(r)
		if err != nil {
			g.writeErr(w, err)
			return
		}

		ctx, span := g.tracer.Start(r.Context(), "chat.ingest")
		defer span.End()

		res, err := g.runtime.Ingest(ctx, chi.URLParam(r, "id"), text)
		g.metrics.ObserveIngest(outcome(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			g.writeErr(w, err)
			return
		}
		span.SetAttributes(attribute.String("collection", res.Collection), attribute.Int("chunks", res.Chunks))
		writeJSON(w, http.StatusCreated, res)
	}
}

func readDocument(r *http.Request) (string, error) {
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var req documentRequest
		if err := decodeJSON(r, &req); err != nil {
			return "", err
		}
		return req.Text, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return string(data), nil
}

func (g *Gateway) handleRemoveDocument() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := g.runtime.RemoveDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
			g.writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleSetRAG() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ragRequest
		if err := decodeJSON(r, &req); err != nil {
			g.writeErr(w, err)
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		id := chi.URLParam(r, "id")
		if err := g.runtime.SetRAG(id, *req.Enabled); err != nil {
			g.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toStateJSON(g.runtime.State(id)))
	}
}

// handleSummary replies with the rendered audio. The summary text is
// kept on the session state even when synthesis fails.
func (g *Gateway) handleSummary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req summaryRequest
		if err := decodeJSON(r, &req); err != nil {
			g.writeErr(w, err)
			return
		}
		sel, err := backend.ParseSelection(req.Backend)
		if err != nil {
			g.writeErr(w, err)
			return
		}

		ctx, span := g.tracer.Start(r.Context(), "chat.summary")
		defer span.End()

		sum, err := g.runtime.Summarize(ctx, chi.URLParam(r, "id"), sel, req.Temperature)
		g.metrics.ObserveSummary(outcome(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			g.writeErr(w, err)
			return
		}

		w.Header().Set("Content-Type", sum.Audio.ContentType())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(sum.Audio.Data)
	}
}
