package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// Environment variable names read by ParseConfig.
const (
	EnvMaxRequests   = "RATE_LIMIT_MAX_REQUESTS"
	EnvWindowSecs    = "RATE_LIMIT_WINDOW_SECS"
	EnvBlockDuration = "RATE_LIMIT_BLOCK_DURATION_SECS"
)

// Defaults applied when a value is unset or malformed.
const (
	DefaultMaxRequests   = 5
	DefaultWindow        = 900 * time.Second
	DefaultBlockDuration = 1800 * time.Second
)

// Config holds the gate thresholds. It is immutable once handed to a Limiter.
type Config struct {
	// MaxRequests is the number of requests accepted per window.
	MaxRequests int

	// Window is the fixed counting window.
	Window time.Duration

	// BlockDuration is how long a client is rejected after crossing MaxRequests.
	BlockDuration time.Duration
}

// DefaultConfig returns 5 requests per 15 minutes with a 30 minute block.
func DefaultConfig() Config {
	return Config{
		MaxRequests:   DefaultMaxRequests,
		Window:        DefaultWindow,
		BlockDuration: DefaultBlockDuration,
	}
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ParseConfig reads the gate thresholds through lookup. Missing,
// unparsable, or non-positive values silently fall back to the defaults.
func ParseConfig(lookup LookupFunc) Config {
	return Overlay(DefaultConfig(), lookup)
}

// Overlay reads the gate thresholds through lookup on top of base.
// Any missing or malformed value keeps the (normalized) base value.
func Overlay(base Config, lookup LookupFunc) Config {
	cfg := base.Normalize()
	if lookup == nil {
		return cfg
	}

	if v, ok := lookup(EnvMaxRequests); ok {
		if n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32); err == nil && n > 0 {
			cfg.MaxRequests = int(n)
		}
	}
	if v, ok := lookup(EnvWindowSecs); ok {
		if d, ok := parseSeconds(v); ok {
			cfg.Window = d
		}
	}
	if v, ok := lookup(EnvBlockDuration); ok {
		if d, ok := parseSeconds(v); ok {
			cfg.BlockDuration = d
		}
	}

	return cfg
}

// Normalize replaces every non-positive field with its default.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.MaxRequests <= 0 {
		c.MaxRequests = def.MaxRequests
	}
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.BlockDuration <= 0 {
		c.BlockDuration = def.BlockDuration
	}
	return c
}

// maxSeconds keeps second counts convertible to time.Duration.
const maxSeconds = int64(1<<63-1) / int64(time.Second)

func parseSeconds(v string) (time.Duration, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n <= 0 || n > maxSeconds {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
