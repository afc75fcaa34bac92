package apikey

import (
	"context"
	"net/http"
	"testing"

	"github.com/rhuss/usergate/pkg/auth"
)

const secret = "sk-test-key-1"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		header string
		secret string
		want   Credential
	}{
		{"exact", secret, secret, PlainMatch},
		{"exact with padding", "  " + secret + " ", secret, PlainMatch},
		{"Bearer", "Bearer " + secret, secret, BearerMatch},
		{"bearer", "bearer " + secret, secret, BearerMatch},
		{"BEARER via split", "BEARER " + secret, secret, BearerMatch},
		{"bEaReR tab", "bEaReR\t" + secret, secret, BearerMatch},
		{"Bearer extra spaces", "Bearer    " + secret, secret, BearerMatch},
		{"Bearer wrong", "Bearer nope", secret, ValueMismatch},
		{"split wrong", "BEARER nope", secret, ValueMismatch},
		{"wrong scheme", "Basic " + secret, secret, SchemeMismatch},
		{"extra token", "Bearer " + secret + " extra", secret, ValueMismatch},
		{"extra token split", "BEARER " + secret + " extra", secret, ValueMismatch},
		{"prefix only", secret[:4], secret, ValueMismatch},
		{"secret prefix", secret + "x", secret, ValueMismatch},
		{"absent", "", secret, Absent},
		{"blank", "   ", secret, Absent},
		{"empty secret", "anything", "", ValueMismatch},
		{"empty secret and header", "", "", Absent},
		{"empty secret bearer", "Bearer ", "", ValueMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.header, tt.secret); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestIsAuthorized(t *testing.T) {
	for _, h := range []string{secret, "Bearer " + secret, "bearer " + secret, "BEARER " + secret} {
		if !IsAuthorized(h, secret) {
			t.Errorf("IsAuthorized(%q) = false, want true", h)
		}
	}
	for _, h := range []string{"", "Token " + secret, "Bearer " + secret + " x", "Bearer"} {
		if IsAuthorized(h, secret) {
			t.Errorf("IsAuthorized(%q) = true, want false", h)
		}
	}
	if IsAuthorized("", "") {
		t.Error("empty secret must never authorize")
	}
}

func authenticate(t *testing.T, a *Authenticator, headers map[string]string) auth.AuthResult {
	t.Helper()
	r, _ := http.NewRequest("GET", "/api/users", nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return a.Authenticate(context.Background(), r)
}

func TestAuthenticate_AuthorizationHeader(t *testing.T) {
	a := New(secret)

	result := authenticate(t, a, map[string]string{"Authorization": "Bearer " + secret})
	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
	if result.Identity.UserID != DefaultPrincipal || result.Identity.Scheme != auth.SchemeAPIKey {
		t.Errorf("Identity = %+v", result.Identity)
	}

	if result := authenticate(t, a, map[string]string{"Authorization": "Bearer wrong"}); result.Decision != auth.No {
		t.Errorf("wrong key: Decision = %d, want No", result.Decision)
	}
	if result := authenticate(t, a, nil); result.Decision != auth.Abstain {
		t.Errorf("no header: Decision = %d, want Abstain", result.Decision)
	}
}

func TestAuthenticate_XAPIKeyTakesPrecedence(t *testing.T) {
	a := New(secret).WithPrincipal("svc")

	result := authenticate(t, a, map[string]string{
		HeaderAPIKey:    secret,
		"Authorization": "Bearer some.user.jwt",
	})
	if result.Decision != auth.Yes || result.Identity.UserID != "svc" {
		t.Fatalf("result = %+v, want Yes for svc", result)
	}

	result = authenticate(t, a, map[string]string{HeaderAPIKey: "Bearer " + secret})
	if result.Decision != auth.No {
		t.Errorf("bearer form in X-API-Key: Decision = %d, want No", result.Decision)
	}
}

func TestAuthenticate_EmptySecretRejects(t *testing.T) {
	a := New("")
	if result := authenticate(t, a, map[string]string{HeaderAPIKey: "x"}); result.Decision != auth.No {
		t.Errorf("Decision = %d, want No", result.Decision)
	}
	if result := authenticate(t, a, map[string]string{"Authorization": "Bearer x"}); result.Decision != auth.No {
		t.Errorf("Decision = %d, want No", result.Decision)
	}
}
