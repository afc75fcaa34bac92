package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/usergate/pkg/storage"
)

func TestSetGetTenant(t *testing.T) {
	ctx := context.Background()

	if got := GetTenant(ctx); got != "" {
		t.Errorf("GetTenant(empty ctx) = %q, want %q", got, "")
	}

	ctx = SetTenant(ctx, "tenant-abc")
	if got := GetTenant(ctx); got != "tenant-abc" {
		t.Errorf("GetTenant = %q, want %q", got, "tenant-abc")
	}

	ctx = SetTenant(ctx, "tenant-xyz")
	if got := GetTenant(ctx); got != "tenant-xyz" {
		t.Errorf("GetTenant = %q, want %q", got, "tenant-xyz")
	}
}

func TestGetTenant_NoCollision(t *testing.T) {
	ctx := context.WithValue(context.Background(), "tenant", "wrong")
	if got := GetTenant(ctx); got != "" {
		t.Errorf("GetTenant should not match string key, got %q", got)
	}
}

type mapDirectory map[string]*Tenant

func (d mapDirectory) LookupTenant(_ context.Context, id string) (*Tenant, error) {
	if id == "broken" {
		return nil, errors.New("connection refused")
	}
	t, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", id, storage.ErrNotFound)
	}
	return t, nil
}

func TestLookup(t *testing.T) {
	dir := mapDirectory{
		"acme":    {ID: "acme", Active: true},
		"retired": {ID: "retired", Active: false},
	}

	tests := []struct {
		name   string
		dir    Directory
		header string
		want   string
	}{
		{name: "no header", dir: dir, header: "", want: ""},
		{name: "known active", dir: dir, header: "acme", want: "acme"},
		{name: "trimmed", dir: dir, header: "  acme ", want: "acme"},
		{name: "unknown", dir: dir, header: "nobody", want: ""},
		{name: "inactive", dir: dir, header: "retired", want: ""},
		{name: "directory error", dir: dir, header: "broken", want: ""},
		{name: "no directory trusts header", dir: nil, header: "anything", want: "anything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			reached := false
			h := Lookup(tt.dir)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				got = GetTenant(r.Context())
			}))

			req := httptest.NewRequest("GET", "/api/users", nil)
			if tt.header != "" {
				req.Header.Set(HeaderTenantID, tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if !reached {
				t.Fatal("Lookup must never reject")
			}
			if got != tt.want {
				t.Errorf("tenant = %q, want %q", got, tt.want)
			}
		})
	}
}
