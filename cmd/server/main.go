// Command server runs the usergate gateway in front of the user-management API.
//
// Configuration is loaded from defaults, an optional .env file, a YAML file
// (--config, USERGATE_CONFIG, ./config.yaml, /etc/usergate/config.yaml) and
// environment overrides. The most common variables:
//
//	USERGATE_UPSTREAM_URL - user-management API base URL (required)
//	JWT_SECRET            - HS256 secret for bearer tokens
//	API_KEY               - static API key for /api/users
//	TENANT_SECRET_KEY     - secret for tenant bootstrapping
//	RATE_LIMIT_*          - gate thresholds for /api/auth
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rhuss/usergate/pkg/auth"
	"github.com/rhuss/usergate/pkg/auth/apikey"
	"github.com/rhuss/usergate/pkg/auth/jwt"
	"github.com/rhuss/usergate/pkg/auth/noop"
	"github.com/rhuss/usergate/pkg/auth/tenantsecret"
	"github.com/rhuss/usergate/pkg/config"
	"github.com/rhuss/usergate/pkg/debug"
	"github.com/rhuss/usergate/pkg/ratelimit"
	"github.com/rhuss/usergate/pkg/storage"
	"github.com/rhuss/usergate/pkg/storage/memory"
	"github.com/rhuss/usergate/pkg/storage/postgres"
	"github.com/rhuss/usergate/pkg/storage/redis"
	"github.com/rhuss/usergate/pkg/tenant"
	transporthttp "github.com/rhuss/usergate/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)
	logger := slog.Default()

	ctx := context.Background()
	var checks []func(context.Context) error

	dir, closeDir, dirCheck, err := buildDirectory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDir()
	if dirCheck != nil {
		checks = append(checks, dirCheck)
	}

	sink, statsFn, closeStats, statsCheck, err := buildStats(cfg)
	if err != nil {
		return err
	}
	defer closeStats()
	if statsCheck != nil {
		checks = append(checks, statsCheck)
	}

	limits := cfg.RateLimit.Limits()
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), limits, nil)
	slog.Info("rate limit configured",
		"max_requests", limits.MaxRequests,
		"window", limits.Window,
		"block_duration", limits.BlockDuration,
		"trust_proxy", cfg.RateLimit.TrustProxy,
	)

	target, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		return fmt.Errorf("parsing upstream url: %w", err)
	}

	deps := transporthttp.Deps{
		Upstream: transporthttp.NewProxy(target, cfg.Upstream.Timeout, logger),
		Limiter:  limiter,
		Gate: ratelimit.Options{
			TrustProxy: cfg.RateLimit.TrustProxy,
			Stats:      sink,
			Logger:     logger,
		},
		Directory: dir,
		Ready: func(ctx context.Context) error {
			var errs []error
			for _, check := range checks {
				errs = append(errs, check(ctx))
			}
			return errors.Join(errs...)
		},
		Stats:     statsFn,
		PoweredBy: cfg.Server.PoweredBy,
		Logger:    logger,
	}
	if cfg.Observability.Metrics.Enabled {
		deps.MetricsPath = cfg.Observability.Metrics.Path
	}
	wireAuth(&deps, cfg)

	srv := transporthttp.NewServer(transporthttp.NewRouter(deps),
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	)

	slog.Info("gateway configured",
		"upstream", target.Host,
		"auth_mode", cfg.Auth.Mode,
		"storage", cfg.Storage.Type,
		"stats", cfg.Stats.Type,
	)
	return srv.ListenAndServe()
}

// wireAuth builds the credential chains for each route scope.
func wireAuth(deps *transporthttp.Deps, cfg *config.Config) {
	if cfg.Auth.Mode == "none" {
		slog.Warn("authentication disabled, every request runs as the anonymous user")
		open := &auth.AuthChain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Yes,
		}
		deps.APIKey, deps.TenantCreate, deps.Bearer = open, open, open
		return
	}

	if cfg.Auth.APIKey == "" {
		slog.Warn("API_KEY is not set, /api/users rejects every request")
	}

	verifier := jwt.NewVerifier(jwt.Config{
		Secret:    cfg.Auth.JWT.Secret,
		Issuer:    cfg.Auth.JWT.Issuer,
		Audience:  cfg.Auth.JWT.Audience,
		JWKSURL:   cfg.Auth.JWT.JWKSURL,
		UserClaim: cfg.Auth.JWT.UserClaim,
		Leeway:    cfg.Auth.JWT.Leeway,
	})

	deps.APIKey = &auth.AuthChain{
		Authenticators:  []auth.Authenticator{apikey.New(cfg.Auth.APIKey)},
		DefaultDecision: auth.No,
	}
	deps.TenantCreate = &auth.AuthChain{
		Authenticators:  []auth.Authenticator{tenantsecret.New(cfg.Auth.TenantSecret), verifier},
		DefaultDecision: auth.No,
	}
	deps.Bearer = &auth.AuthChain{
		Authenticators:  []auth.Authenticator{verifier},
		DefaultDecision: auth.No,
	}
	deps.Identity = auth.NewTenantResolver(verifier)
}

// buildDirectory returns the tenant directory, its closer and an optional
// readiness check. Storage type "none" returns a nil directory, which makes
// tenant lookup trust the X-Tenant-ID header.
func buildDirectory(ctx context.Context, cfg *config.Config) (tenant.Directory, func(), func(context.Context) error, error) {
	seed := make([]tenant.Tenant, 0, len(cfg.Storage.Tenants))
	for _, t := range cfg.Storage.Tenants {
		seed = append(seed, tenant.Tenant{ID: t.ID, Name: t.Name, Active: t.IsActive()})
	}

	switch cfg.Storage.Type {
	case "memory":
		slog.Info("tenant directory enabled", "type", "memory", "tenants", len(seed))
		return memory.NewDirectory(seed...), func() {}, nil, nil

	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("creating postgres directory: %w", err)
		}
		for i := range seed {
			if err := store.CreateTenant(ctx, &seed[i]); err != nil && !errors.Is(err, storage.ErrConflict) {
				store.Close()
				return nil, nil, nil, fmt.Errorf("seeding tenant %q: %w", seed[i].ID, err)
			}
		}
		slog.Info("tenant directory enabled", "type", "postgres", "seeded", len(seed))
		return store, func() { store.Close() }, store.HealthCheck, nil

	default:
		slog.Info("tenant directory disabled, X-Tenant-ID is trusted as sent")
		return nil, func() {}, nil, nil
	}
}

// buildStats returns the gate stats sink, a reader for the stats endpoint,
// a closer and an optional readiness check.
func buildStats(cfg *config.Config) (ratelimit.StatsSink, func(context.Context) (any, error), func(), func(context.Context) error, error) {
	switch cfg.Stats.Type {
	case "memory":
		stats := memory.NewStats(memory.WithTrackClients(cfg.Stats.TrackClients))
		read := func(context.Context) (any, error) { return stats.Snapshot(), nil }
		return stats, read, func() {}, nil, nil

	case "redis":
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Stats.Redis.Addr,
			Password: cfg.Stats.Redis.Password,
			DB:       cfg.Stats.Redis.DB,
		})
		stats := redis.NewStats(rdb,
			redis.WithPrefix(cfg.Stats.Redis.Prefix),
			redis.WithTTL(cfg.Stats.Redis.TTL),
			redis.WithTrackClients(cfg.Stats.TrackClients),
		)
		read := func(ctx context.Context) (any, error) { return stats.Totals(ctx) }
		slog.Info("gate stats enabled", "type", "redis", "addr", cfg.Stats.Redis.Addr)
		return stats, read, func() { rdb.Close() }, stats.Ping, nil

	default:
		return nil, nil, func() {}, nil, nil
	}
}
