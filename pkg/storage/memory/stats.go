package memory

import (
	"context"
	"sync"

	"github.com/rhuss/usergate/pkg/ratelimit"
)

// Counters tallies gate outcomes.
type Counters struct {
	Allowed     int64 `json:"allowed"`
	Blocked     int64 `json:"blocked"`
	RateLimited int64 `json:"rate_limited"`
}

func (c *Counters) add(o ratelimit.Outcome) {
	switch o {
	case ratelimit.Allowed:
		c.Allowed++
	case ratelimit.Blocked:
		c.Blocked++
	case ratelimit.RateLimited:
		c.RateLimited++
	}
}

// Snapshot is a point-in-time copy of the recorded statistics.
type Snapshot struct {
	Total    Counters            `json:"total"`
	ByRoute  map[string]Counters `json:"by_route"`
	ByClient map[string]Counters `json:"by_client,omitempty"`
}

// Stats is an in-memory ratelimit.StatsSink. Per-client counters are
// only kept when enabled, since client cardinality is unbounded.
type Stats struct {
	mu           sync.Mutex
	total        Counters
	byRoute      map[string]Counters
	byClient     map[string]Counters
	trackClients bool
}

var _ ratelimit.StatsSink = (*Stats)(nil)

// StatsOption configures Stats.
type StatsOption func(*Stats)

// WithTrackClients enables per-client counters.
func WithTrackClients(track bool) StatsOption {
	return func(s *Stats) { s.trackClients = track }
}

// NewStats creates an empty stats sink.
func NewStats(opts ...StatsOption) *Stats {
	s := &Stats{
		byRoute:  make(map[string]Counters),
		byClient: make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record implements ratelimit.StatsSink.
func (s *Stats) Record(_ context.Context, ev ratelimit.Event) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Outcome)

	c := s.byRoute[route]
	c.add(ev.Outcome)
	s.byRoute[route] = c

	if s.trackClients {
		k := s.byClient[ev.Client]
		k.add(ev.Outcome)
		s.byClient[ev.Client] = k
	}
	return nil
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Total:   s.total,
		ByRoute: make(map[string]Counters, len(s.byRoute)),
	}
	for k, v := range s.byRoute {
		snap.ByRoute[k] = v
	}
	if s.trackClients {
		snap.ByClient = make(map[string]Counters, len(s.byClient))
		for k, v := range s.byClient {
			snap.ByClient[k] = v
		}
	}
	return snap
}
