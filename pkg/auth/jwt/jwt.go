// Package jwt verifies bearer JWTs, either HS256 tokens signed with a
// shared secret or RSA tokens checked against a JWKS endpoint.
//
// The Verifier serves two roles: as an auth.Authenticator in a chain, and
// as the auth.TokenVerifier behind the tenant resolver.
package jwt

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/usergate/pkg/auth"
	"github.com/rhuss/usergate/pkg/debug"
)

// Config holds the JWT verifier configuration. At least one of Secret and
// JWKSURL must be set.
type Config struct {
	// Secret is the HS256 shared secret. Empty disables HMAC tokens.
	Secret string

	// Issuer is the expected JWT issuer (iss claim). If empty, issuer is not validated.
	Issuer string

	// Audience is the expected JWT audience (aud claim). If empty, audience is not validated.
	Audience string

	// JWKSURL is the URL to fetch the JSON Web Key Set for RSA verification.
	JWKSURL string

	// UserClaim is the JWT claim used as the user id. Default: "sub".
	UserClaim string

	// ScopesClaim is the JWT claim used for authorization scopes. Default: "scope".
	// The value can be a space-separated string or a JSON array.
	ScopesClaim string

	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration

	// CacheTTL controls how long JWKS keys are cached. Default: 1 hour.
	CacheTTL time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	// If nil, http.DefaultClient is used.
	HTTPClient *http.Client
}

func (c *Config) applyDefaults() {
	if c.UserClaim == "" {
		c.UserClaim = "sub"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 1 * time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// ErrNoKeys is returned when neither a secret nor a JWKS URL is configured.
var ErrNoKeys = errors.New("jwt: no verification key configured")

// Verifier validates JWT bearer tokens.
type Verifier struct {
	config    Config
	jwksCache *jwksCache
}

var (
	_ auth.Authenticator = (*Verifier)(nil)
	_ auth.TokenVerifier = (*Verifier)(nil)
)

// NewVerifier creates a verifier with the given configuration.
func NewVerifier(cfg Config) *Verifier {
	cfg.applyDefaults()
	v := &Verifier{config: cfg}
	if cfg.JWKSURL != "" {
		v.jwksCache = &jwksCache{
			keys:    make(map[string]*rsa.PublicKey),
			ttl:     cfg.CacheTTL,
			jwksURL: cfg.JWKSURL,
			client:  cfg.HTTPClient,
		}
	}
	return v
}

// Verify validates tokenStr and returns the user id claim.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (string, error) {
	claims, err := v.parse(ctx, tokenStr)
	if err != nil {
		return "", err
	}
	subject := claimString(claims, v.config.UserClaim)
	if subject == "" {
		return "", fmt.Errorf("JWT missing %q claim", v.config.UserClaim)
	}
	return subject, nil
}

// Authenticate extracts a bearer token from the Authorization header,
// validates it, and returns an identity on success.
//
// Decision outcomes:
//   - Abstain: no Authorization header or not a Bearer scheme
//   - No: bearer token present but invalid (expired, wrong issuer, bad signature, etc.)
//   - Yes: valid JWT with populated Identity
func (v *Verifier) Authenticate(ctx context.Context, r *http.Request) auth.AuthResult {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	tokenStr, ok := auth.BearerToken(header)
	if !ok {
		if strings.EqualFold(header, "bearer") {
			return auth.AuthResult{Decision: auth.No, Err: fmt.Errorf("empty bearer token")}
		}
		return auth.AuthResult{Decision: auth.Abstain}
	}

	claims, err := v.parse(ctx, tokenStr)
	if err != nil {
		return auth.AuthResult{Decision: auth.No, Err: err}
	}

	subject := claimString(claims, v.config.UserClaim)
	if subject == "" {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("JWT missing %q claim", v.config.UserClaim),
		}
	}

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{
			UserID: subject,
			Scheme: auth.SchemeJWT,
			Scopes: extractScopes(claims, v.config.ScopesClaim),
		},
	}
}

func (v *Verifier) parse(ctx context.Context, tokenStr string) (jwtlib.MapClaims, error) {
	if v.config.Secret == "" && v.jwksCache == nil {
		return nil, ErrNoKeys
	}

	token, err := jwtlib.Parse(tokenStr, func(token *jwtlib.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwtlib.SigningMethodHMAC:
			if v.config.Secret == "" {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(v.config.Secret), nil

		case *jwtlib.SigningMethodRSA:
			if v.jwksCache == nil {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			kid, ok := token.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, fmt.Errorf("token missing kid header")
			}
			key, fetchErr := v.jwksCache.getKey(ctx, kid)
			if fetchErr != nil {
				return nil, fmt.Errorf("fetching JWKS key for kid %q: %w", kid, fetchErr)
			}
			return key, nil

		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
	}, v.parserOptions()...)
	if err != nil {
		debug.Log("auth", "JWT validation failed", "error", err)
		return nil, fmt.Errorf("invalid JWT: %w", err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid JWT claims")
	}
	return claims, nil
}

func (v *Verifier) parserOptions() []jwtlib.ParserOption {
	var methods []string
	if v.config.Secret != "" {
		methods = append(methods, "HS256")
	}
	if v.jwksCache != nil {
		methods = append(methods, "RS256", "RS384", "RS512")
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods(methods),
		jwtlib.WithExpirationRequired(),
	}
	if v.config.Leeway > 0 {
		opts = append(opts, jwtlib.WithLeeway(v.config.Leeway))
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(v.config.Audience))
	}
	return opts
}

// claimString extracts a string value from JWT claims.
// Returns empty string if the claim is missing or not a string.
func claimString(claims jwtlib.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// extractScopes extracts scopes from JWT claims.
// The scope claim can be either a space-separated string or a JSON array.
func extractScopes(claims jwtlib.MapClaims, key string) []string {
	switch val := claims[key].(type) {
	case string:
		parts := strings.Fields(val)
		if len(parts) == 0 {
			return nil
		}
		return parts
	case []interface{}:
		var scopes []string
		for _, item := range val {
			if s, ok := item.(string); ok {
				scopes = append(scopes, s)
			}
		}
		return scopes
	default:
		return nil
	}
}
