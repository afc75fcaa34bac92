package ratelimit

import (
	"context"
	"time"
)

// Event describes one gate decision for statistics.
type Event struct {
	Client  string
	Outcome Outcome
	Method  string
	Path    string
	At      time.Time
}

// StatsSink receives gate events. Recording is best effort: errors are
// logged by the caller and never affect the decision.
type StatsSink interface {
	Record(ctx context.Context, ev Event) error
}

// StatsSinkFunc adapts a function to StatsSink.
type StatsSinkFunc func(ctx context.Context, ev Event) error

// Record implements StatsSink.
func (f StatsSinkFunc) Record(ctx context.Context, ev Event) error { return f(ctx, ev) }
