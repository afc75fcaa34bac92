// Package integration provides end-to-end tests for the usergate gateway.
//
// Tests run against a real gateway HTTP server in front of a mock
// user-management API, both started in-process using net/http/httptest.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/rhuss/usergate/pkg/api"
	"github.com/rhuss/usergate/pkg/auth"
	"github.com/rhuss/usergate/pkg/auth/apikey"
	"github.com/rhuss/usergate/pkg/auth/jwt"
	"github.com/rhuss/usergate/pkg/auth/tenantsecret"
	"github.com/rhuss/usergate/pkg/ratelimit"
	"github.com/rhuss/usergate/pkg/storage/memory"
	"github.com/rhuss/usergate/pkg/tenant"
	transporthttp "github.com/rhuss/usergate/pkg/transport/http"
)

const (
	apiKey       = "sk-integration"
	jwtSecret    = "integration-jwt-secret"
	tenantSecret = "integration-tenant-secret"
	maxRequests  = 3
)

// testEnv holds the shared servers for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the gateway and mock user-management API.
type TestEnvironment struct {
	Gateway   *httptest.Server
	UserAPI   *httptest.Server
	Directory *memory.Directory
	Stats     *memory.Stats
}

// TestMain starts the mock user API and the gateway before running tests.
func TestMain(m *testing.M) {
	testEnv = setupTestEnvironment()
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

// setupTestEnvironment wires the gateway the way cmd/server does for
// auth mode "enforce" with memory storage and memory stats.
func setupTestEnvironment() *TestEnvironment {
	issuer, err := jwt.NewIssuer(jwtSecret, "user-api", time.Hour)
	if err != nil {
		panic(fmt.Sprintf("creating issuer: %v", err))
	}
	userAPI := startMockUserAPI(issuer)

	target, err := url.Parse(userAPI.URL)
	if err != nil {
		panic(fmt.Sprintf("parsing user api url: %v", err))
	}

	verifier := jwt.NewVerifier(jwt.Config{Secret: jwtSecret, Issuer: "user-api"})
	dir := memory.NewDirectory(tenant.Tenant{ID: "acme", Name: "Acme Corp", Active: true})
	stats := memory.NewStats(memory.WithTrackClients(true))

	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.Config{
		MaxRequests:   maxRequests,
		Window:        time.Minute,
		BlockDuration: 10 * time.Minute,
	}, nil)

	router := transporthttp.NewRouter(transporthttp.Deps{
		Upstream: transporthttp.NewProxy(target, 5*time.Second, nil),
		Limiter:  limiter,
		Gate:     ratelimit.Options{TrustProxy: true, Stats: stats},
		APIKey: &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(apiKey)},
			DefaultDecision: auth.No,
		},
		TenantCreate: &auth.AuthChain{
			Authenticators:  []auth.Authenticator{tenantsecret.New(tenantSecret), verifier},
			DefaultDecision: auth.No,
		},
		Bearer: &auth.AuthChain{
			Authenticators:  []auth.Authenticator{verifier},
			DefaultDecision: auth.No,
		},
		Identity:    auth.NewTenantResolver(verifier),
		Directory:   dir,
		Stats:       func(context.Context) (any, error) { return stats.Snapshot(), nil },
		PoweredBy:   "usergate",
		MetricsPath: "/metrics",
	})

	return &TestEnvironment{
		Gateway:   httptest.NewServer(router),
		UserAPI:   userAPI,
		Directory: dir,
		Stats:     stats,
	}
}

// Teardown stops both servers.
func (env *TestEnvironment) Teardown() {
	if env.Gateway != nil {
		env.Gateway.Close()
	}
	if env.UserAPI != nil {
		env.UserAPI.Close()
	}
}

// BaseURL returns the gateway base URL.
func (env *TestEnvironment) BaseURL() string {
	return env.Gateway.URL
}

// --- HTTP helpers ---

// do sends a request with optional JSON body and headers.
func do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, testEnv.BaseURL()+path, r)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(body)
}

// decodeJSON reads the response body and decodes it into the target.
func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding JSON: %v", err)
	}
}

// login obtains a token from the user API through the gateway. Each call
// uses its own client address so the gate budget of other tests is untouched.
func login(t *testing.T, user, client string) string {
	t.Helper()
	resp := do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": user},
		map[string]string{"X-Forwarded-For": client})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body %s", resp.StatusCode, readBody(t, resp))
	}
	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	decodeJSON(t, resp, &out)
	if out.Data.Token == "" {
		t.Fatal("login returned no token")
	}
	return out.Data.Token
}

// --- Mock user API ---

// startMockUserAPI serves login, an identity echo under /api/users and
// tenant creation.
func startMockUserAPI(issuer *jwt.Issuer) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
			writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "username is required"})
			return
		}
		token, err := issuer.Issue(req.Username, nil)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, api.NewSuccessResponse("Login successful", map[string]string{"token": token}))
	})

	echo := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.NewSuccessResponse("ok", map[string]string{
			"user_id":   r.Header.Get(transporthttp.HeaderUserID),
			"tenant_id": r.Header.Get(tenant.HeaderTenantID),
			"path":      r.URL.Path,
		}))
	}
	mux.HandleFunc("/api/users/", echo)
	mux.HandleFunc("POST /api/tenants", echo)

	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
