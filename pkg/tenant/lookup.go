package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rhuss/usergate/pkg/debug"
	"github.com/rhuss/usergate/pkg/storage"
)

// Lookup returns middleware that reads the X-Tenant-ID header and injects
// the tenant into the request context. With a nil dir every non-empty
// header value is trusted. Otherwise only active tenants known to dir are
// injected.
//
// Lookup never rejects: a request without a usable tenant passes through
// without one, and the identity resolver downstream fails closed.
func Lookup(dir Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderTenantID))
			if id == "" {
				debug.Log("tenant", "no tenant header", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			if dir != nil {
				t, err := dir.LookupTenant(r.Context(), id)
				switch {
				case errors.Is(err, storage.ErrNotFound):
					debug.Log("tenant", "unknown tenant", "tenant_id", id)
					next.ServeHTTP(w, r)
					return
				case err != nil:
					slog.Warn("tenant lookup failed", "tenant_id", id, "error", err)
					next.ServeHTTP(w, r)
					return
				case !t.Active:
					debug.Log("tenant", "inactive tenant", "tenant_id", id)
					next.ServeHTTP(w, r)
					return
				}
			}

			debug.Log("tenant", "tenant resolved", "tenant_id", id)
			next.ServeHTTP(w, r.WithContext(SetTenant(r.Context(), id)))
		})
	}
}
