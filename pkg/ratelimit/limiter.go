package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/rhuss/usergate/pkg/clock"
)

// Outcome is the verdict of a gate check.
type Outcome int

const (
	Allowed Outcome = iota
	Blocked
	RateLimited
)

// String returns the metric label for the outcome.
func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Blocked:
		return "blocked"
	case RateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Decision is the result of Limiter.Check.
type Decision struct {
	Outcome Outcome

	// Count is the request count in the current window. Zero for Blocked.
	Count int

	// RetryAfter is the remaining block time for Blocked (rounded up to whole
	// seconds) and the full block duration for RateLimited.
	RetryAfter time.Duration
}

const lockStripes = 64

// Limiter applies the gate algorithm atomically per client identifier.
type Limiter struct {
	store Store
	cfg   Config
	clock clock.Clock
	locks [lockStripes]sync.Mutex
}

// NewLimiter creates a Limiter over store. A zero Config field takes its
// default and a nil clock uses wall time.
func NewLimiter(store Store, cfg Config, clk clock.Clock) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Limiter{
		store: store,
		cfg:   cfg.Normalize(),
		clock: clk,
	}
}

// Config returns the thresholds in use.
func (l *Limiter) Config() Config { return l.cfg }

// Store returns the backing store.
func (l *Limiter) Store() Store { return l.store }

// Check runs the block check, window bookkeeping, and counting for id as
// one step. Concurrent checks for the same id are linearized.
func (l *Limiter) Check(id string) Decision {
	mu := &l.locks[xxhash.Sum64String(id)%lockStripes]
	mu.Lock()
	defer mu.Unlock()

	now := l.clock.Now()

	if st := l.store.CheckAndRecordBlock(id, now); st.Blocked {
		return Decision{
			Outcome:    Blocked,
			RetryAfter: time.Duration(remainingSeconds(st.BlockedUntil.Sub(now))) * time.Second,
		}
	}

	res := l.store.CheckAndIncrement(id, now, l.cfg)
	if res.Exceeded {
		return Decision{
			Outcome:    RateLimited,
			Count:      res.Count,
			RetryAfter: l.cfg.BlockDuration,
		}
	}

	return Decision{Outcome: Allowed, Count: res.Count}
}

// remainingSeconds rounds up so a client is never told to retry before the
// block has actually lifted.
func remainingSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
