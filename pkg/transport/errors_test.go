package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rhuss/usergate/pkg/api"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name       string
		kind       api.ErrorKind
		wantStatus int
	}{
		{"blocked -> 403", api.KindBlocked, http.StatusForbidden},
		{"rate_limit_exceeded -> 429", api.KindRateLimitExceeded, http.StatusTooManyRequests},
		{"unauthorized -> 401", api.KindUnauthorized, http.StatusUnauthorized},
		{"missing_tenant_context -> 401", api.KindMissingTenantContext, http.StatusUnauthorized},
		{"bad_gateway -> 502", api.KindBadGateway, http.StatusBadGateway},
		{"not_found -> 404", api.KindNotFound, http.StatusNotFound},
		{"method_not_allowed -> 405", api.KindMethodNotAllowed, http.StatusMethodNotAllowed},
		{"server_error -> 500", api.KindServerError, http.StatusInternalServerError},
		{"unknown kind -> 500", api.ErrorKind("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusFromError(&api.GateError{Kind: tt.kind})
			if got != tt.wantStatus {
				t.Errorf("StatusFromError(%q) = %d, want %d", tt.kind, got, tt.wantStatus)
			}
		})
	}
}

func TestWriteError_RateLimitExceeded(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, api.NewRateLimitExceededError(1800*time.Second))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got != "1800" {
		t.Errorf("Retry-After = %q, want %q", got, "1800")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var resp api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success {
		t.Error("success = true, want false")
	}
	if resp.Message != "Rate limit exceeded" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Details == nil || *resp.Details != "Too many requests. IP blocked for 1800 seconds" {
		t.Errorf("details = %v", resp.Details)
	}
}

func TestWriteError_UnauthorizedHasNoRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, api.NewUnauthorizedError())

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := rec.Header().Get("Retry-After"); got != "" {
		t.Errorf("Retry-After = %q, want empty", got)
	}
	want := `{"success":false,"message":"Unauthorized","details":null,"result":null}` + "\n"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteSuccess(rec, http.StatusOK, "ok", map[string]string{"k": "v"})

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want 200", rec.Code)
	}
	var resp struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data["k"] != "v" {
		t.Errorf("unexpected body: %+v", resp)
	}
}
