// Package redis records gate statistics in Redis hashes so several
// gateway replicas can report into one place. Gate state itself stays
// in-process; only the counters are shared.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rhuss/usergate/pkg/ratelimit"
)

// DefaultPrefix namespaces every key written by Stats.
const DefaultPrefix = "usergate:stats"

// Stats is a Redis-backed ratelimit.StatsSink.
//
// Keys written:
//
//	<prefix>:total              hash outcome -> count (no expiry)
//	<prefix>:minute:<YYYYMMDDhhmm> hash outcome -> count (TTL)
//	<prefix>:route              hash "<method> <path>:<outcome>" -> count
//	<prefix>:client:<id>        hash outcome -> count (TTL, opt-in)
type Stats struct {
	rdb goredis.UniversalClient

	prefix       string
	ttl          time.Duration
	bucket       string
	trackClients bool
}

var _ ratelimit.StatsSink = (*Stats)(nil)

// Option configures Stats.
type Option func(*Stats)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Stats) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

// WithTTL sets the expiry of per-minute and per-client keys.
func WithTTL(d time.Duration) Option {
	return func(s *Stats) { s.ttl = d }
}

// WithBucket selects the time series granularity: "minute" (default) or "none".
func WithBucket(bucket string) Option {
	return func(s *Stats) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

// WithTrackClients enables per-client hashes.
func WithTrackClients(track bool) Option {
	return func(s *Stats) { s.trackClients = track }
}

// NewStats creates a stats sink writing through rdb.
func NewStats(rdb goredis.UniversalClient, opts ...Option) *Stats {
	s := &Stats{
		rdb:    rdb,
		prefix: DefaultPrefix,
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record implements ratelimit.StatsSink. All increments for one event are
// sent in a single pipeline.
func (s *Stats) Record(ctx context.Context, ev ratelimit.Event) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := ev.Outcome.String()

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.key("total"), field, 1)

	if s.bucket == "minute" {
		bucketKey := s.key("minute", at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if route := strings.TrimSpace(ev.Method + " " + ev.Path); route != "" {
		pipe.HIncrBy(ctx, s.key("route"), route+":"+field, 1)
	}

	if s.trackClients {
		if c := strings.TrimSpace(ev.Client); c != "" {
			clientKey := s.key("client", c)
			pipe.HIncrBy(ctx, clientKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, clientKey, s.ttl)
			}
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording gate stats: %w", err)
	}
	return nil
}

// Totals returns the cumulative count per outcome.
func (s *Stats) Totals(ctx context.Context) (map[string]int64, error) {
	return s.readHash(ctx, s.key("total"))
}

// Minute returns the per-outcome counts of the minute containing at.
func (s *Stats) Minute(ctx context.Context, at time.Time) (map[string]int64, error) {
	return s.readHash(ctx, s.key("minute", at.UTC().Format("200601021504")))
}

// Client returns the per-outcome counts for one client. Empty unless
// client tracking is enabled.
func (s *Stats) Client(ctx context.Context, client string) (map[string]int64, error) {
	return s.readHash(ctx, s.key("client", client))
}

func (s *Stats) readHash(ctx context.Context, key string) (map[string]int64, error) {
	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s[%s]: %w", key, k, err)
		}
		out[k] = n
	}
	return out, nil
}

// Ping checks connectivity.
func (s *Stats) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Stats) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}
