// Package postgres provides a PostgreSQL-backed tenant directory.
// It uses pgx/v5 for connection pooling and embedded SQL migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/usergate/pkg/debug"
	"github.com/rhuss/usergate/pkg/storage"
	"github.com/rhuss/usergate/pkg/tenant"
)

// Store is a PostgreSQL-backed tenant.Directory.
type Store struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

var _ tenant.Directory = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool, queryTimeout: cfg.QueryTimeout}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// LookupTenant returns the tenant with the given ID, or an error wrapping
// storage.ErrNotFound.
func (s *Store) LookupTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var t tenant.Tenant
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, active, created_at FROM tenants WHERE id = $1",
		id,
	).Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tenant %q: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying tenant: %w", err)
	}

	debug.Log("storage", "tenant loaded", "tenant_id", t.ID, "active", t.Active)
	return &t, nil
}

// CreateTenant inserts t. Returns storage.ErrConflict if the ID is taken.
func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		"INSERT INTO tenants (id, name, active, created_at) VALUES ($1, $2, $3, $4)",
		t.ID, t.Name, t.Active, t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}

// SetActive toggles a tenant's active flag.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := s.pool.Exec(ctx, "UPDATE tenants SET active = $2 WHERE id = $1", id, active)
	if err != nil {
		return fmt.Errorf("updating tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tenant %q: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ListTenants returns all tenants ordered by ID.
func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, active, created_at FROM tenants ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (tenant.Tenant, error) {
		var t tenant.Tenant
		err := row.Scan(&t.ID, &t.Name, &t.Active, &t.CreatedAt)
		return t, err
	})
}

// HealthCheck verifies database connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
