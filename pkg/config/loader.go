package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rhuss/usergate/pkg/debug"
	"github.com/rhuss/usergate/pkg/ratelimit"
)

// Environment variables read by Load. The unprefixed names match the
// user-management API so both services can share one environment.
const (
	EnvConfigPath   = "USERGATE_CONFIG"
	EnvDotEnvPath   = "USERGATE_ENV_FILE"
	EnvAPIKey       = "API_KEY"
	EnvJWTSecret    = "JWT_SECRET"
	EnvTenantSecret = "TENANT_SECRET_KEY"
	EnvPort         = "USERGATE_PORT"
	EnvUpstreamURL  = "USERGATE_UPSTREAM_URL"
	EnvTrustProxy   = "USERGATE_TRUST_PROXY"
	EnvAuthMode     = "USERGATE_AUTH_MODE"
	EnvStorage      = "USERGATE_STORAGE"
	EnvPostgresDSN  = "USERGATE_POSTGRES_DSN"
	EnvStats        = "USERGATE_STATS"
	EnvRedisAddr    = "USERGATE_REDIS_ADDR"
	EnvLogFormat    = "USERGATE_LOG_FORMAT"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. .env file (USERGATE_ENV_FILE or ./.env); existing variables win
//  3. YAML config file (explicit path, USERGATE_CONFIG env, ./config.yaml, /etc/usergate/config.yaml)
//  4. Environment variable overrides
//  5. File reference resolution (_file suffix)
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "config file loaded", "path", filePath)
	}

	applyEnvOverrides(&cfg, os.LookupEnv)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. A missing file is not an error.
func loadDotEnv() error {
	path := os.Getenv(EnvDotEnvPath)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	debug.Log("config", ".env loaded", "path", path)
	return nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. USERGATE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/usergate/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath
	}
	for _, path := range []string{"config.yaml", "/etc/usergate/config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables onto config fields.
// Rate-limit variables use the limiter's own parsing, so malformed values
// keep whatever the file or defaults set.
func applyEnvOverrides(cfg *Config, lookup ratelimit.LookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str(EnvAPIKey, &cfg.Auth.APIKey)
	str(EnvJWTSecret, &cfg.Auth.JWT.Secret)
	str(EnvTenantSecret, &cfg.Auth.TenantSecret)
	str(EnvAuthMode, &cfg.Auth.Mode)
	str(EnvUpstreamURL, &cfg.Upstream.URL)
	str(EnvStorage, &cfg.Storage.Type)
	str(EnvPostgresDSN, &cfg.Storage.Postgres.DSN)
	str(EnvStats, &cfg.Stats.Type)
	str(EnvRedisAddr, &cfg.Stats.Redis.Addr)
	str(EnvLogFormat, &cfg.Logging.Format)

	if v, ok := lookup(EnvPort); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Server.Port = port
		}
	}
	if v, ok := lookup(EnvTrustProxy); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.RateLimit.TrustProxy = b
		}
	}

	limits := ratelimit.Overlay(cfg.RateLimit.Limits(), lookup)
	cfg.RateLimit.MaxRequests = limits.MaxRequests
	cfg.RateLimit.WindowSecs = int64(limits.Window / time.Second)
	cfg.RateLimit.BlockDurationSecs = int64(limits.BlockDuration / time.Second)
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	refs := []struct {
		name  string
		file  string
		value *string
	}{
		{"auth.api_key_file", cfg.Auth.APIKeyFile, &cfg.Auth.APIKey},
		{"auth.tenant_secret_file", cfg.Auth.TenantSecretFile, &cfg.Auth.TenantSecret},
		{"auth.jwt.secret_file", cfg.Auth.JWT.SecretFile, &cfg.Auth.JWT.Secret},
		{"storage.postgres.dsn_file", cfg.Storage.Postgres.DSNFile, &cfg.Storage.Postgres.DSN},
		{"stats.redis.password_file", cfg.Stats.Redis.PasswordFile, &cfg.Stats.Redis.Password},
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.value != "" {
			continue
		}
		val, err := readSecretFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.name, err)
		}
		*ref.value = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
