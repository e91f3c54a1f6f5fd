package gateway

import (
	"net/http"
	"slices"
	"time"

	"github.com/flemzord/ragchat/internal/backend"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string           `json:"status"` // "ok" or "degraded"
	Uptime   int64            `json:"uptime_seconds"`
	Sessions int              `json:"sessions"`
	Backends []backend.Status `json:"backends"`
}

// handleHealth serves GET /health. Backend health is passive: a backend
// turns unhealthy after a failed invocation and recovers on the next
// success. Any unhealthy backend makes the response a 503 "degraded".
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status: "ok",
			Uptime: int64(time.Since(g.startedAt).Seconds()),
		}
		code := http.StatusOK
		if g.runtime != nil {
			resp.Sessions = g.runtime.ActiveSessions()
			resp.Backends = g.runtime.Backends()
			if slices.ContainsFunc(resp.Backends, func(b backend.Status) bool { return !b.Healthy }) {
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, resp)
	}
}
