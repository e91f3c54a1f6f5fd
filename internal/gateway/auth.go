package gateway

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// authMiddleware rejects requests that present neither the configured
// bearer token nor the configured basic credentials. Failures are logged
// with the remote address and never with what was presented.
func authMiddleware(cfg AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if reason := cfg.check(r); reason != "" {
				logger.Warn("gateway: auth failure",
					"detail", reason,
					"remote_addr", r.RemoteAddr,
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// check returns why r is not authorized, or "" when it is. Either scheme
// is accepted when both are configured.
func (cfg AuthConfig) check(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "missing authorization header"
	}
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && cfg.BearerToken != "" {
		if secretEqual(token, cfg.BearerToken) {
			return ""
		}
	}
	if cfg.BasicUser != "" && cfg.BasicPass != "" {
		if user, pass, ok := r.BasicAuth(); ok &&
			secretEqual(user, cfg.BasicUser) && secretEqual(pass, cfg.BasicPass) {
			return ""
		}
	}
	return "invalid credentials"
}

func secretEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// clientKey identifies the caller for rate limiting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimit rejects requests once the caller exhausted its budget for kind.
func (g *Gateway) rateLimit(kind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.limiter != nil {
				if err := g.limiter.Allow(kind, clientKey(r)); err != nil {
					g.metrics.ObserveRejection(kind)
					writeError(w, http.StatusTooManyRequests, err.Error())
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
