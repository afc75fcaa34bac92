// Package apikey validates a static API key presented as a plain header
// value or as a bearer credential.
package apikey

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rhuss/usergate/pkg/auth"
)

// HeaderAPIKey carries the API key when Authorization holds a user token.
const HeaderAPIKey = "X-API-Key"

// DefaultPrincipal is the UserID of identities authenticated by API key.
const DefaultPrincipal = "api-key"

// Credential classifies an authorization value against the expected secret.
type Credential int

const (
	// Absent: no credential was presented.
	Absent Credential = iota
	// PlainMatch: the value equals the secret.
	PlainMatch
	// BearerMatch: "Bearer <secret>" in any accepted form.
	BearerMatch
	// SchemeMismatch: "<scheme> <token>" with a scheme other than bearer.
	SchemeMismatch
	// ValueMismatch: a credential that does not match the secret.
	ValueMismatch
)

func (c Credential) String() string {
	switch c {
	case Absent:
		return "absent"
	case PlainMatch:
		return "plain_match"
	case BearerMatch:
		return "bearer_match"
	case SchemeMismatch:
		return "scheme_mismatch"
	case ValueMismatch:
		return "value_mismatch"
	default:
		return "unknown"
	}
}

// Authorized reports whether c grants access.
func (c Credential) Authorized() bool {
	return c == PlainMatch || c == BearerMatch
}

// Classify checks header against secret. Accepted forms are the exact
// secret, "Bearer <secret>" or "bearer <secret>", and any two-field
// "<scheme> <secret>" whose scheme equals "bearer" ignoring case. An empty
// secret never matches.
func Classify(header, secret string) Credential {
	header = strings.TrimSpace(header)
	if header == "" {
		return Absent
	}
	if secret == "" {
		return ValueMismatch
	}

	if equal(header, secret) {
		return PlainMatch
	}

	if rest, ok := cutBearerPrefix(header); ok {
		if equal(strings.TrimSpace(rest), secret) {
			return BearerMatch
		}
		return ValueMismatch
	}

	fields := strings.Fields(header)
	if len(fields) != 2 {
		return ValueMismatch
	}
	if !strings.EqualFold(fields[0], "bearer") {
		return SchemeMismatch
	}
	if equal(fields[1], secret) {
		return BearerMatch
	}
	return ValueMismatch
}

// IsAuthorized reports whether header carries secret in an accepted form.
func IsAuthorized(header, secret string) bool {
	return Classify(header, secret).Authorized()
}

func cutBearerPrefix(header string) (string, bool) {
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return rest, true
	}
	return strings.CutPrefix(header, "bearer ")
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Authenticator checks the static API key. X-API-Key takes precedence and
// only accepts the plain form; without it, Authorization is classified.
type Authenticator struct {
	secret    string
	principal string
}

// New creates an API key authenticator. The secret is held as given; an
// empty secret rejects every presented credential.
func New(secret string) *Authenticator {
	return &Authenticator{secret: secret, principal: DefaultPrincipal}
}

// WithPrincipal sets the UserID reported for authenticated requests.
func (a *Authenticator) WithPrincipal(principal string) *Authenticator {
	if principal != "" {
		a.principal = principal
	}
	return a
}

// Authenticate returns Abstain when no credential is presented, Yes on a
// match, and No otherwise.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	cred := a.classify(r)

	switch {
	case cred == Absent:
		return auth.AuthResult{Decision: auth.Abstain}
	case cred.Authorized():
		return auth.AuthResult{
			Decision: auth.Yes,
			Identity: &auth.Identity{UserID: a.principal, Scheme: auth.SchemeAPIKey},
		}
	default:
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}
}

func (a *Authenticator) classify(r *http.Request) Credential {
	if v := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); v != "" {
		if a.secret != "" && equal(v, a.secret) {
			return PlainMatch
		}
		return ValueMismatch
	}
	return Classify(r.Header.Get("Authorization"), a.secret)
}
