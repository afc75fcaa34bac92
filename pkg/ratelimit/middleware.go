package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/rhuss/usergate/pkg/api"
	"github.com/rhuss/usergate/pkg/debug"
	"github.com/rhuss/usergate/pkg/observability"
	"github.com/rhuss/usergate/pkg/transport"
)

// Options configures the gate middleware.
type Options struct {
	// TrustProxy makes ClientIP honor X-Forwarded-For and X-Real-IP.
	TrustProxy bool

	// Stats optionally receives every decision.
	Stats StatsSink

	// StatsTimeout bounds each Stats.Record call. Default: DefaultStatsTimeout.
	StatsTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultStatsTimeout bounds stats recording when Options.StatsTimeout is unset.
const DefaultStatsTimeout = 50 * time.Millisecond

// Middleware wraps next with the IP gate. Rejected requests never reach
// next: blocked clients get 403, threshold crossings get 429 with
// Retry-After.
func Middleware(l *Limiter, opts Options) transport.Middleware {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	statsTimeout := opts.StatsTimeout
	if statsTimeout <= 0 {
		statsTimeout = DefaultStatsTimeout
	}
	blockedLog := &rate.Sometimes{Interval: time.Second}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientIP(r, opts.TrustProxy)
			d := l.Check(client)

			observability.GateDecisionsTotal.WithLabelValues(d.Outcome.String()).Inc()
			if opts.Stats != nil {
				ev := Event{Client: client, Outcome: d.Outcome, Method: r.Method, Path: r.URL.Path, At: l.clock.Now()}
				ctx, cancel := context.WithTimeout(r.Context(), statsTimeout)
				if err := opts.Stats.Record(ctx, ev); err != nil {
					debug.Log("ratelimit", "stats record failed", "error", err)
				}
				cancel()
			}

			switch d.Outcome {
			case Blocked:
				secs := int64(d.RetryAfter / time.Second)
				blockedLog.Do(func() {
					logger.Warn("blocked client rejected", "client", client, "remaining_seconds", secs)
				})
				transport.WriteError(w, api.NewBlockedError(secs))
				return

			case RateLimited:
				observability.BlocksStartedTotal.Inc()
				logger.Warn("rate limit exceeded, client blocked",
					"client", client,
					"count", d.Count,
					"block_seconds", int64(d.RetryAfter/time.Second),
				)
				transport.WriteError(w, api.NewRateLimitExceededError(d.RetryAfter))
				return
			}

			debug.Log("ratelimit", "request allowed", "client", client, "count", d.Count)
			next.ServeHTTP(w, r)
		})
	}
}
