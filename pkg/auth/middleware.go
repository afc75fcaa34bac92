package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rhuss/usergate/pkg/api"
	"github.com/rhuss/usergate/pkg/debug"
	"github.com/rhuss/usergate/pkg/observability"
	"github.com/rhuss/usergate/pkg/transport"
)

// Middleware creates HTTP middleware from an AuthChain. It checks the
// bypass list, runs authentication, and injects the identity into the
// request context. scope labels log lines and metrics (e.g. "users").
func Middleware(chain *AuthChain, scope string, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)

			if result.Decision == No {
				if errors.Is(result.Err, ErrNotConfigured) {
					msg := "internal authentication error"
					var ce *ConfigError
					if errors.As(result.Err, &ce) {
						msg = ce.Message
					}
					slog.Error("credential not configured", "scope", scope, "error", result.Err)
					observability.AuthFailuresTotal.WithLabelValues(scope, "not_configured").Inc()
					transport.WriteError(w, api.NewServerError(msg))
					return
				}
				slog.Warn("authentication failed",
					"scope", scope,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				observability.AuthFailuresTotal.WithLabelValues(scope, "invalid").Inc()
				transport.WriteError(w, api.NewUnauthorizedError())
				return
			}

			if result.Decision != Yes || result.Identity == nil {
				observability.AuthFailuresTotal.WithLabelValues(scope, "absent").Inc()
				transport.WriteError(w, api.NewUnauthorizedError())
				return
			}

			if result.Identity.UserID == "" {
				slog.Error("authenticator returned identity with empty user id", "scope", scope)
				transport.WriteError(w, api.NewServerError("internal authentication error"))
				return
			}

			debug.Log("auth", "authentication succeeded",
				"scope", scope,
				"user_id", result.Identity.UserID,
				"scheme", result.Identity.Scheme,
				"path", r.URL.Path,
			)

			next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), result.Identity)))
		})
	}
}

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}
