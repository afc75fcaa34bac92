// Package memory provides in-process implementations of the tenant
// directory and the gate statistics sink, for tests and single-node
// deployments. All state is lost when the process restarts.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rhuss/usergate/pkg/storage"
	"github.com/rhuss/usergate/pkg/tenant"
)

// Directory is an in-memory tenant.Directory.
type Directory struct {
	mu      sync.RWMutex
	tenants map[string]tenant.Tenant
}

var _ tenant.Directory = (*Directory)(nil)

// NewDirectory creates a directory holding the given tenants.
func NewDirectory(seed ...tenant.Tenant) *Directory {
	d := &Directory{tenants: make(map[string]tenant.Tenant, len(seed))}
	for _, t := range seed {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		d.tenants[t.ID] = t
	}
	return d
}

// LookupTenant returns a copy of the tenant with the given ID.
func (d *Directory) LookupTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %q: %w", id, storage.ErrNotFound)
	}
	return &t, nil
}

// CreateTenant adds t. Returns storage.ErrConflict if the ID is taken.
func (d *Directory) CreateTenant(_ context.Context, t *tenant.Tenant) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.tenants[t.ID]; exists {
		return storage.ErrConflict
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	d.tenants[t.ID] = *t
	return nil
}

// SetActive toggles a tenant's active flag.
func (d *Directory) SetActive(_ context.Context, id string, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tenants[id]
	if !ok {
		return fmt.Errorf("tenant %q: %w", id, storage.ErrNotFound)
	}
	t.Active = active
	d.tenants[id] = t
	return nil
}

// ListTenants returns all tenants ordered by ID.
func (d *Directory) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]tenant.Tenant, 0, len(d.tenants))
	for _, t := range d.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
