package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/usergate/pkg/clock"
)

func newTestLimiter(cfg Config) (*Limiter, *MemoryStore, *clock.Fake) {
	store := NewMemoryStore()
	clk := clock.NewFake(t0)
	return NewLimiter(store, cfg, clk), store, clk
}

func TestLimiter_AllowsUpToMax(t *testing.T) {
	l, _, _ := newTestLimiter(Config{MaxRequests: 5, Window: time.Minute, BlockDuration: time.Minute})

	for i := 1; i <= 5; i++ {
		d := l.Check("10.0.0.1")
		if d.Outcome != Allowed || d.Count != i {
			t.Fatalf("request %d: %+v", i, d)
		}
	}

	d := l.Check("10.0.0.1")
	if d.Outcome != RateLimited {
		t.Fatalf("request 6: outcome = %v, want rate_limited", d.Outcome)
	}
	if d.RetryAfter != time.Minute {
		t.Errorf("RetryAfter = %v, want 1m", d.RetryAfter)
	}

	if d := l.Check("10.0.0.1"); d.Outcome != Blocked {
		t.Errorf("request 7: outcome = %v, want blocked", d.Outcome)
	}
}

func TestLimiter_BlockThenFreshWindow(t *testing.T) {
	l, _, clk := newTestLimiter(Config{MaxRequests: 2, Window: time.Minute, BlockDuration: 2 * time.Minute})

	l.Check("a")
	l.Check("a")
	if d := l.Check("a"); d.Outcome != RateLimited {
		t.Fatalf("outcome = %v, want rate_limited", d.Outcome)
	}

	clk.Advance(2 * time.Minute)
	d := l.Check("a")
	if d.Outcome != Allowed || d.Count != 1 {
		t.Errorf("after block: %+v, want allowed with count 1", d)
	}
}

func TestLimiter_WindowExpiry(t *testing.T) {
	l, _, clk := newTestLimiter(Config{MaxRequests: 2, Window: time.Minute, BlockDuration: time.Minute})

	l.Check("a")
	l.Check("a")
	clk.Advance(61 * time.Second)

	d := l.Check("a")
	if d.Outcome != Allowed || d.Count != 1 {
		t.Errorf("after window: %+v, want allowed with count 1", d)
	}
}

func TestLimiter_HardWindowAllowsBoundaryBurst(t *testing.T) {
	l, _, clk := newTestLimiter(Config{MaxRequests: 3, Window: time.Minute, BlockDuration: time.Minute})

	l.Check("a")
	clk.Advance(59 * time.Second)
	l.Check("a")
	l.Check("a")
	clk.Advance(2 * time.Second)

	for i := 1; i <= 3; i++ {
		if d := l.Check("a"); d.Outcome != Allowed {
			t.Fatalf("burst request %d: %v, want allowed", i, d.Outcome)
		}
	}
}

func TestLimiter_BlockedRemainingRoundsUp(t *testing.T) {
	l, _, clk := newTestLimiter(Config{MaxRequests: 1, Window: time.Minute, BlockDuration: 10 * time.Second})

	l.Check("a")
	l.Check("a")
	clk.Advance(500 * time.Millisecond)

	d := l.Check("a")
	if d.Outcome != Blocked || d.RetryAfter != 10*time.Second {
		t.Errorf("decision = %+v, want blocked with 10s remaining", d)
	}
}

func TestLimiter_IdentifiersAreIndependent(t *testing.T) {
	l, _, _ := newTestLimiter(Config{MaxRequests: 3, Window: time.Minute, BlockDuration: time.Minute})

	var wg sync.WaitGroup
	results := make([][]Outcome, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("10.0.0.%d", i)
			for j := 0; j < 3; j++ {
				results[i] = append(results[i], l.Check(id).Outcome)
			}
		}(i)
	}
	wg.Wait()

	for i, outs := range results {
		for j, o := range outs {
			if o != Allowed {
				t.Errorf("client %d request %d: %v, want allowed", i, j, o)
			}
		}
	}
}

func TestLimiter_SameIdentifierIsLinearizable(t *testing.T) {
	const maxReq = 10
	l, store, _ := newTestLimiter(Config{MaxRequests: maxReq, Window: time.Minute, BlockDuration: time.Minute})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		counts  = map[Outcome]int{}
		workers = maxReq + 5
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := l.Check("shared")
			mu.Lock()
			counts[d.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if counts[Allowed] != maxReq {
		t.Errorf("allowed = %d, want %d", counts[Allowed], maxReq)
	}
	if counts[RateLimited] != 1 {
		t.Errorf("rate_limited = %d, want 1", counts[RateLimited])
	}
	if counts[Blocked] != workers-maxReq-1 {
		t.Errorf("blocked = %d, want %d", counts[Blocked], workers-maxReq-1)
	}
	if _, ok := store.Block("shared"); !ok {
		t.Error("expected block record")
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{Allowed: "allowed", Blocked: "blocked", RateLimited: "rate_limited", Outcome(9): "unknown"} {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
