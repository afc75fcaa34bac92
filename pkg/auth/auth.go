package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// AuthDecision represents the three possible outcomes of authentication.
type AuthDecision int

const (
	// Yes means credentials are valid. The chain stops and the identity is used.
	Yes AuthDecision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this authenticator cannot handle the credentials type.
	// The chain continues to the next authenticator.
	Abstain
)

// AuthResult carries the outcome of an authentication attempt.
type AuthResult struct {
	Decision AuthDecision
	Identity *Identity // populated only when Decision == Yes
	Err      error     // populated only when Decision == No
}

// Authentication schemes reported in Identity.Scheme.
const (
	SchemeAPIKey       = "api_key"
	SchemeJWT          = "jwt"
	SchemeTenantSecret = "tenant_secret"
	SchemeNone         = "none"
)

// Identity is the authenticated caller attached to the request context.
// It is never mutated once attached.
type Identity struct {
	// UserID is the unique caller identifier (required, non-empty).
	UserID string

	// TenantID is set by the tenant resolver; empty for scopes that do not
	// require a tenant.
	TenantID string

	// Scheme names the authenticator that produced the identity.
	Scheme string

	// Scopes lists the authorization scopes granted.
	Scopes []string
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// Sentinel errors.
var (
	ErrUnauthenticated      = errors.New("authentication required")
	ErrNotConfigured        = errors.New("credential not configured")
	ErrMissingTenantContext = errors.New("tenant context missing")
)

// ConfigError reports a credential the gateway was never given. Its
// Message is safe to return to the caller.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Unwrap makes ConfigError match ErrNotConfigured.
func (e *ConfigError) Unwrap() error { return ErrNotConfigured }

// AuthChain evaluates authenticators in order using three-outcome voting.
type AuthChain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator

	// DefaultDecision is used when all authenticators abstain.
	// Use Yes for development (NoOp behavior) or No for production.
	DefaultDecision AuthDecision
}

// Authenticate runs the chain. Stops on the first Yes or No.
// If all abstain, returns the default decision.
func (c *AuthChain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}

	if c.DefaultDecision == Yes {
		return AuthResult{
			Decision: Yes,
			Identity: &Identity{UserID: "anonymous", Scheme: SchemeNone},
		}
	}

	return AuthResult{
		Decision: No,
		Err:      ErrUnauthenticated,
	}
}

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively; exactly one token must follow.
func BearerToken(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return "", false
	}
	return fields[1], true
}
