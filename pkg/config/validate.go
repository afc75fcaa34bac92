package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Upstream.URL == "" {
		errs = append(errs, fmt.Errorf("upstream.url is required"))
	} else if u, err := url.Parse(c.Upstream.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("upstream.url must be an absolute URL, got %q", c.Upstream.URL))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}

	switch c.Auth.Mode {
	case "enforce":
		if c.Auth.JWT.Secret == "" && c.Auth.JWT.JWKSURL == "" {
			errs = append(errs, fmt.Errorf("auth.jwt.secret (JWT_SECRET) or auth.jwt.jwks_url is required when auth.mode is \"enforce\""))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("auth.mode must be \"enforce\" or \"none\", got %q", c.Auth.Mode))
	}

	switch c.Storage.Type {
	case "memory", "none":
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"postgres\", or \"none\", got %q", c.Storage.Type))
	}

	seen := make(map[string]bool, len(c.Storage.Tenants))
	for i, t := range c.Storage.Tenants {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("storage.tenants[%d].id is required", i))
			continue
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Errorf("storage.tenants[%d].id %q is duplicated", i, t.ID))
		}
		seen[t.ID] = true
	}

	switch c.Stats.Type {
	case "none", "memory":
	case "redis":
		if c.Stats.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("stats.redis.addr is required when stats.type is \"redis\""))
		}
	default:
		errs = append(errs, fmt.Errorf("stats.type must be \"none\", \"memory\", or \"redis\", got %q", c.Stats.Type))
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
