package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/usergate/pkg/api"
	"github.com/rhuss/usergate/pkg/auth"
	"github.com/rhuss/usergate/pkg/observability"
	"github.com/rhuss/usergate/pkg/ratelimit"
	"github.com/rhuss/usergate/pkg/tenant"
	"github.com/rhuss/usergate/pkg/transport"
)

// Deps holds everything the router wires together.
type Deps struct {
	// Upstream receives every accepted /api request.
	Upstream http.Handler

	// Limiter gates /api/auth. Gate configures client derivation and stats.
	Limiter *ratelimit.Limiter
	Gate    ratelimit.Options

	// APIKey authenticates /api/users and /api/me.
	APIKey *auth.AuthChain
	// TenantCreate authenticates POST /api/tenants.
	TenantCreate *auth.AuthChain
	// Bearer authenticates the remaining /api/tenants routes and the stats endpoint.
	Bearer *auth.AuthChain

	// Identity resolves user and tenant for /api/users and /api/me.
	// Nil skips resolution and keeps whatever APIKey produced.
	Identity *auth.TenantResolver

	// Directory validates X-Tenant-ID. Nil trusts the header.
	Directory tenant.Directory

	// Ready reports readiness of backing stores. Nil is always ready.
	Ready func(ctx context.Context) error

	// Stats returns the gate statistics served at GET /api/gate/stats.
	// Nil disables the endpoint.
	Stats func(ctx context.Context) (any, error)

	PoweredBy   string
	MetricsPath string // empty disables the metrics endpoint
	Logger      *slog.Logger
}

// NewRouter assembles the gateway's route scopes.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gate := deps.Gate
	if gate.Logger == nil {
		gate.Logger = logger
	}

	r := chi.NewRouter()
	r.Use(
		transport.Recovery(logger),
		transport.RequestID(),
		transport.Logging(logger),
		transport.PoweredBy(deps.PoweredBy),
		observability.MetricsMiddleware,
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		transport.WriteError(w, api.NewNotFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		transport.WriteError(w, api.NewMethodNotAllowedError())
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		transport.WriteSuccess(w, http.StatusOK, "ok", nil)
	})
	r.Get("/readyz", readyHandler(deps.Ready, logger))
	if deps.MetricsPath != "" {
		r.Handle(deps.MetricsPath, promhttp.Handler())
	}

	upstream := deps.Upstream

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(deps.Limiter, gate))
		r.Handle("/api/auth/*", upstream)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			auth.Middleware(deps.APIKey, "users", auth.DefaultBypassEndpoints),
			tenant.Lookup(deps.Directory),
		)
		if deps.Identity != nil {
			r.Use(deps.Identity.Middleware())
		}
		r.Get("/api/me", meHandler)
		r.Handle("/api/users", upstream)
		r.Handle("/api/users/*", upstream)
	})

	r.With(auth.Middleware(deps.TenantCreate, "tenants_create", nil)).Post("/api/tenants", upstream.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(deps.Bearer, "tenants", nil))
		r.Get("/api/tenants", upstream.ServeHTTP)
		r.Handle("/api/tenants/*", upstream)
		if deps.Stats != nil {
			r.Get("/api/gate/stats", statsHandler(deps.Stats, logger))
		}
	})

	return r
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		transport.WriteError(w, api.NewUnauthorizedError())
		return
	}
	view := api.IdentityView{UserID: id.UserID, TenantID: id.TenantID}
	if view.TenantID == "" {
		view.TenantID = tenant.GetTenant(r.Context())
	}
	transport.WriteSuccess(w, http.StatusOK, "Authenticated identity", view)
}

func readyHandler(ready func(context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				logger.Warn("readiness check failed", "error", err)
				transport.WriteErrorResponse(w, api.NewServerError("not ready"), http.StatusServiceUnavailable)
				return
			}
		}
		transport.WriteSuccess(w, http.StatusOK, "ready", nil)
	}
}

func statsHandler(stats func(context.Context) (any, error), logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := stats(r.Context())
		if err != nil {
			logger.Error("reading gate stats", "error", err)
			transport.WriteError(w, api.NewServerError("stats unavailable"))
			return
		}
		transport.WriteSuccess(w, http.StatusOK, "Gate statistics", snap)
	}
}
