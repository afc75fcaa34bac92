package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Issuer mints HS256 tokens accepted by a Verifier configured with the
// same secret. The gateway itself never issues tokens; the mock upstream
// and tests do.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an HS256 token issuer. A zero ttl means one hour.
func NewIssuer(secret, issuer string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt: issuer secret is empty")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID. Extra claims are merged in and may
// override the defaults.
func (i *Issuer) Issue(userID string, extra map[string]any) (string, error) {
	now := i.now()
	claims := jwtlib.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}
	for k, v := range extra {
		claims[k] = v
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
}
