// Package tenantsecret authenticates tenant bootstrap requests carrying a
// shared secret in the X-Tenant-Secret-Key header.
package tenantsecret

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rhuss/usergate/pkg/auth"
)

// Header carries the tenant secret.
const Header = "X-Tenant-Secret-Key"

// Principal is the UserID of identities authenticated by tenant secret.
const Principal = "tenant-admin"

// errNotConfigured surfaces to the caller as a 500.
var errNotConfigured = &auth.ConfigError{Message: "Tenant secret key not configured"}

// Authenticator checks the tenant secret header.
type Authenticator struct {
	secret string
}

// New creates a tenant secret authenticator. An empty secret makes every
// request that presents the header fail as a server misconfiguration.
func New(secret string) *Authenticator {
	return &Authenticator{secret: secret}
}

// Authenticate returns Abstain without the header, so a chain can fall
// through to bearer JWT authentication.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	presented := strings.TrimSpace(r.Header.Get(Header))
	if presented == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	if a.secret == "" {
		return auth.AuthResult{Decision: auth.No, Err: errNotConfigured}
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(a.secret)) != 1 {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{UserID: Principal, Scheme: auth.SchemeTenantSecret},
	}
}
