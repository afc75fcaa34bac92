// Package tenant carries the tenant identifier through request-scoped
// context and resolves it from the inbound request ahead of the identity
// resolver.
package tenant

import (
	"context"
	"time"
)

// HeaderTenantID is the request header carrying the tenant identifier.
const HeaderTenantID = "X-Tenant-ID"

// Tenant is a logical tenant known to the directory.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Directory looks tenants up by ID. Implementations return an error
// wrapping storage.ErrNotFound for unknown tenants.
type Directory interface {
	LookupTenant(ctx context.Context, id string) (*Tenant, error)
}

// tenantKey is a private type for the tenant context key.
type tenantKey struct{}

// SetTenant injects a tenant identifier into the context.
func SetTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// GetTenant extracts the tenant identifier from the context.
// Returns an empty string if no tenant is set.
func GetTenant(ctx context.Context) string {
	if v, ok := ctx.Value(tenantKey{}).(string); ok {
		return v
	}
	return ""
}
