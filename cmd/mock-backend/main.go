// Command mock-backend runs a small stand-in for the user-management API
// so the gateway can be exercised end to end. It issues HS256 tokens on
// login and echoes the identity headers the gateway forwards.
//
// Configuration:
//
//	MOCK_PORT  - Listen port (default: 9090)
//	JWT_SECRET - Secret used to sign tokens (default: "dev-secret")
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rhuss/usergate/pkg/api"
	"github.com/rhuss/usergate/pkg/auth/jwt"
	"github.com/rhuss/usergate/pkg/tenant"
	transporthttp "github.com/rhuss/usergate/pkg/transport/http"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret"
	}

	issuer, err := jwt.NewIssuer(secret, "mock-backend", time.Hour)
	if err != nil {
		slog.Error("creating token issuer", "error", err)
		os.Exit(1)
	}

	b := &backend{issuer: issuer, tenants: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.handleLogin)
	mux.HandleFunc("POST /api/auth/register", b.handleLogin)
	mux.HandleFunc("GET /api/users/{path...}", b.handleEcho)
	mux.HandleFunc("GET /api/users", b.handleEcho)
	mux.HandleFunc("POST /api/tenants", b.handleCreateTenant)
	mux.HandleFunc("GET /api/tenants", b.handleListTenants)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type backend struct {
	issuer *jwt.Issuer

	mu      sync.Mutex
	tenants map[string]string
}

type loginRequest struct {
	Username string `json:"username"`
}

func (b *backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "username is required"})
		return
	}

	token, err := b.issuer.Issue(req.Username, nil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, api.NewSuccessResponse("Login successful", map[string]string{"token": token}))
}

func (b *backend) handleEcho(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.NewSuccessResponse("ok", api.IdentityView{
		UserID:   r.Header.Get(transporthttp.HeaderUserID),
		TenantID: r.Header.Get(tenant.HeaderTenantID),
	}))
}

type tenantRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (b *backend) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Message: "id is required"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tenants[req.ID]; ok {
		writeJSON(w, http.StatusConflict, api.ErrorResponse{Message: "tenant already exists"})
		return
	}
	b.tenants[req.ID] = req.Name
	writeJSON(w, http.StatusCreated, api.NewSuccessResponse("Tenant created", req))
}

func (b *backend) handleListTenants(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	list := make([]tenantRequest, 0, len(b.tenants))
	for id, name := range b.tenants {
		list = append(list, tenantRequest{ID: id, Name: name})
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, api.NewSuccessResponse("ok", list))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
