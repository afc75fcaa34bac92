// Package config provides unified configuration for the usergate gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. .env file (optional, never overrides variables already set)
//  3. YAML config file (discovered or explicitly specified)
//  4. Environment variable overrides
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import (
	"time"

	"github.com/rhuss/usergate/pkg/ratelimit"
)

// Config holds all configuration for the usergate gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Storage       StorageConfig       `yaml:"storage"`
	Stats         StatsConfig         `yaml:"stats"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 60s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 15s
	PoweredBy       string        `yaml:"powered_by"`       // X-Powered-By value, default: "usergate"
}

// UpstreamConfig points at the user-management API that accepted
// requests are forwarded to.
type UpstreamConfig struct {
	URL     string        `yaml:"url"`     // required
	Timeout time.Duration `yaml:"timeout"` // default: 30s
}

// AuthConfig holds credential settings. Secrets may come from _file fields.
type AuthConfig struct {
	// Mode is "enforce" (default) or "none". "none" replaces every
	// credential check with an anonymous identity; for local development only.
	Mode string `yaml:"mode"`

	APIKey           string    `yaml:"api_key"`
	APIKeyFile       string    `yaml:"api_key_file"`
	TenantSecret     string    `yaml:"tenant_secret"`
	TenantSecretFile string    `yaml:"tenant_secret_file"`
	JWT              JWTConfig `yaml:"jwt"`
}

// JWTConfig configures bearer token verification.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	SecretFile string        `yaml:"secret_file"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	JWKSURL    string        `yaml:"jwks_url"`
	UserClaim  string        `yaml:"user_claim"` // default: "sub"
	Leeway     time.Duration `yaml:"leeway"`
}

// RateLimitConfig holds the IP gate thresholds for the /api/auth scope.
// Non-positive values fall back to 5 requests / 900s window / 1800s block.
type RateLimitConfig struct {
	MaxRequests       int   `yaml:"max_requests"`
	WindowSecs        int64 `yaml:"window_secs"`
	BlockDurationSecs int64 `yaml:"block_duration_secs"`

	// TrustProxy derives the client from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool `yaml:"trust_proxy"`
}

// Limits converts to the limiter's configuration.
func (c RateLimitConfig) Limits() ratelimit.Config {
	return ratelimit.Config{
		MaxRequests:   c.MaxRequests,
		Window:        secondsToDuration(c.WindowSecs),
		BlockDuration: secondsToDuration(c.BlockDurationSecs),
	}.Normalize()
}

func secondsToDuration(secs int64) time.Duration {
	if secs <= 0 || secs > int64(1<<63-1)/int64(time.Second) {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// StorageConfig selects the tenant directory.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory", "postgres", or "none"; default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`

	// Tenants seeds the directory at startup.
	Tenants []TenantConfig `yaml:"tenants"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// TenantConfig describes a tenant to seed.
type TenantConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Active *bool  `yaml:"active"` // default: true
}

// IsActive reports the seeded active flag.
func (t TenantConfig) IsActive() bool {
	return t.Active == nil || *t.Active
}

// StatsConfig selects where gate decisions are recorded.
type StatsConfig struct {
	Type         string      `yaml:"type"` // "none", "memory", or "redis"; default: "memory"
	TrackClients bool        `yaml:"track_clients"`
	Redis        RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the stats sink.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	PasswordFile string        `yaml:"password_file"`
	DB           int           `yaml:"db"`
	Prefix       string        `yaml:"prefix"`
	TTL          time.Duration `yaml:"ttl"` // default: 24h
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig configures slog output and debug categories.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	limits := ratelimit.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			PoweredBy:       "usergate",
		},
		Upstream: UpstreamConfig{
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Mode: "enforce",
		},
		RateLimit: RateLimitConfig{
			MaxRequests:       limits.MaxRequests,
			WindowSecs:        int64(limits.Window / time.Second),
			BlockDurationSecs: int64(limits.BlockDuration / time.Second),
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Stats: StatsConfig{
			Type: "memory",
			Redis: RedisConfig{
				TTL: 24 * time.Hour,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
