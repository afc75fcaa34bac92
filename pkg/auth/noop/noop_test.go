package noop

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/usergate/pkg/auth"
)

func TestAuthenticatorAcceptsEverything(t *testing.T) {
	result := (&Authenticator{}).Authenticate(context.Background(), httptest.NewRequest("GET", "/", nil))
	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes", result.Decision)
	}
	if result.Identity.UserID != AnonymousUser || result.Identity.Scheme != auth.SchemeNone {
		t.Errorf("Identity = %+v", result.Identity)
	}
}
