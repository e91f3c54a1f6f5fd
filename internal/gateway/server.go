package gateway

import (
	"net/http"

	"github.com/flemzord/ragchat/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public: no auth required.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", g.metrics.Handler())

	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.logger))
		}

		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", g.handleNewSession())
			r.Get("/", g.handleListSessions())
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", g.handleGetSession())
				r.Get("/history", g.handleHistory())
				r.With(g.rateLimit(security.KindTurn)).Post("/turns", g.handleTurn())
				r.With(g.rateLimit(security.KindIngest)).Post("/documents", g.handleIngest())
				r.Delete("/documents", g.handleRemoveDocument())
				r.Put("/rag", g.handleSetRAG())
				r.With(g.rateLimit(security.KindSummary)).Post("/summary", g.handleSummary())
			})
		})

		r.Get("/ws/sessions/{id}", g.handleSocket())
	})

	return r
}
