package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/usergate/pkg/tenant"
)

var errBadToken = errors.New("signature invalid")

func fakeVerifier() TokenVerifier {
	return TokenVerifierFunc(func(_ context.Context, token string) (string, error) {
		switch token {
		case "good":
			return "user-42", nil
		case "empty":
			return "", nil
		default:
			return "", errBadToken
		}
	})
}

func newResolverRequest(authz, tenantID string) *http.Request {
	r := httptest.NewRequest("GET", "/api/me", nil)
	if authz != "" {
		r.Header.Set("Authorization", authz)
	}
	if tenantID != "" {
		r = r.WithContext(tenant.SetTenant(r.Context(), tenantID))
	}
	return r
}

func TestTenantResolver_Resolve(t *testing.T) {
	tr := NewTenantResolver(fakeVerifier())

	tests := []struct {
		name    string
		authz   string
		tenant  string
		wantErr error
	}{
		{name: "ok", authz: "Bearer good", tenant: "acme"},
		{name: "lowercase scheme", authz: "bearer good", tenant: "acme"},
		{name: "no token", authz: "", tenant: "acme", wantErr: ErrUnauthenticated},
		{name: "wrong scheme", authz: "Basic good", tenant: "acme", wantErr: ErrUnauthenticated},
		{name: "invalid token", authz: "Bearer bad", tenant: "acme", wantErr: ErrUnauthenticated},
		{name: "empty user", authz: "Bearer empty", tenant: "acme", wantErr: ErrUnauthenticated},
		{name: "no tenant", authz: "Bearer good", tenant: "", wantErr: ErrMissingTenantContext},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := tr.Resolve(newResolverRequest(tt.authz, tt.tenant))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id.UserID != "user-42" || id.TenantID != "acme" {
				t.Errorf("identity = %+v", id)
			}
		})
	}
}

func TestTenantResolver_InvalidTokenWrapsCause(t *testing.T) {
	tr := NewTenantResolver(fakeVerifier())
	_, err := tr.Resolve(newResolverRequest("Bearer bad", "acme"))
	if !errors.Is(err, errBadToken) {
		t.Errorf("err = %v, want wrapped verifier error", err)
	}
}

func TestTenantResolver_Middleware(t *testing.T) {
	tr := NewTenantResolver(fakeVerifier())

	var got *Identity
	h := tr.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newResolverRequest("Bearer good", "acme"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.UserID != "user-42" || got.TenantID != "acme" {
		t.Errorf("identity = %+v", got)
	}
}

func TestTenantResolver_MissingTenantLooksUnauthorized(t *testing.T) {
	tr := NewTenantResolver(fakeVerifier())
	reached := false
	h := tr.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }))

	missing := httptest.NewRecorder()
	h.ServeHTTP(missing, newResolverRequest("Bearer good", ""))

	invalid := httptest.NewRecorder()
	h.ServeHTTP(invalid, newResolverRequest("Bearer bad", "acme"))

	if reached {
		t.Fatal("handler must not run without identity")
	}
	if missing.Code != http.StatusUnauthorized || invalid.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d / %d, want 401 / 401", missing.Code, invalid.Code)
	}
	if missing.Body.String() != invalid.Body.String() {
		t.Errorf("bodies differ: %s vs %s", missing.Body.String(), invalid.Body.String())
	}
}
