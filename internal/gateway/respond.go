package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flemzord/ragchat/internal/backend"
	"github.com/flemzord/ragchat/internal/chat"
	"github.com/flemzord/ragchat/internal/memory"
	"github.com/flemzord/ragchat/internal/orchestrator"
	"github.com/flemzord/ragchat/internal/retrieval"
	"github.com/flemzord/ragchat/internal/security"
	"github.com/flemzord/ragchat/internal/session"
	"github.com/flemzord/ragchat/internal/speech"
)

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeErr maps err to its status code and writes it.
func (g *Gateway) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	writeError(w, status, g.clientMessage(status, err))
}

// clientMessage is the error text a caller sees. Server-side failures may
// carry upstream response bodies, so only their status text leaves the
// process and the cause is logged.
func (g *Gateway) clientMessage(status int, err error) string {
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	g.logger.Warn("request failed", "status", status, "error", err)
	return http.StatusText(status)
}

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

// statusFor maps domain errors to HTTP status codes. Order matters: some
// errors wrap more than one sentinel.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, orchestrator.ErrEmptyTurn),
		errors.Is(err, orchestrator.ErrMissingSession),
		errors.Is(err, orchestrator.ErrInvalidTemperature),
		errors.Is(err, backend.ErrInvalidSelection),
		errors.Is(err, retrieval.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrRAGUnavailable):
		return http.StatusConflict
	case errors.Is(err, security.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, chat.ErrIngestionDisabled),
		errors.Is(err, chat.ErrSummaryDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, memory.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, backend.ErrBackend),
		errors.Is(err, retrieval.ErrRetrieval),
		errors.Is(err, speech.ErrSynthesis):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
