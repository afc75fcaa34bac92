// Package noop provides an authenticator that accepts every request.
// It backs the "none" auth type for local development only.
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/usergate/pkg/auth"
)

// AnonymousUser is the UserID of every identity produced by Authenticator.
const AnonymousUser = "anonymous"

// Authenticator always returns Yes with an anonymous identity.
type Authenticator struct{}

func (a *Authenticator) Authenticate(_ context.Context, _ *http.Request) auth.AuthResult {
	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{UserID: AnonymousUser, Scheme: auth.SchemeNone},
	}
}
