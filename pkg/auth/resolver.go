package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rhuss/usergate/pkg/api"
	"github.com/rhuss/usergate/pkg/debug"
	"github.com/rhuss/usergate/pkg/observability"
	"github.com/rhuss/usergate/pkg/tenant"
	"github.com/rhuss/usergate/pkg/transport"
)

// TokenVerifier verifies a bearer token and returns the user it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// TokenVerifierFunc adapts a function to TokenVerifier.
type TokenVerifierFunc func(ctx context.Context, token string) (string, error)

// Verify implements TokenVerifier.
func (f TokenVerifierFunc) Verify(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// TenantResolver builds the request identity from a verified bearer token
// and the tenant injected by tenant.Lookup. It never defaults a tenant.
type TenantResolver struct {
	verifier TokenVerifier
}

// NewTenantResolver creates a resolver over v.
func NewTenantResolver(v TokenVerifier) *TenantResolver {
	return &TenantResolver{verifier: v}
}

// Resolve returns the identity for r. Errors wrap ErrUnauthenticated or
// ErrMissingTenantContext.
func (tr *TenantResolver) Resolve(r *http.Request) (*Identity, error) {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, ErrUnauthenticated
	}

	userID, err := tr.verifier.Verify(r.Context(), token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrUnauthenticated)
	}

	tenantID := tenant.GetTenant(r.Context())
	if tenantID == "" {
		return nil, ErrMissingTenantContext
	}

	return &Identity{UserID: userID, TenantID: tenantID, Scheme: SchemeJWT}, nil
}

// Middleware attaches the resolved identity or rejects with 401. A missing
// tenant is logged as a routing defect but looks like any other 401 to the
// caller.
func (tr *TenantResolver) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := tr.Resolve(r)
			if err != nil {
				if errors.Is(err, ErrMissingTenantContext) {
					slog.Error("tenant context missing", "path", r.URL.Path, "method", r.Method)
					observability.TenantContextMissingTotal.Inc()
					transport.WriteError(w, api.NewMissingTenantContextError())
					return
				}
				slog.Warn("identity resolution failed", "path", r.URL.Path, "error", err)
				observability.AuthFailuresTotal.WithLabelValues("identity", "invalid_token").Inc()
				transport.WriteError(w, api.NewUnauthorizedError())
				return
			}

			debug.Log("auth", "identity resolved", "user_id", id.UserID, "tenant_id", id.TenantID)
			next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), id)))
		})
	}
}
