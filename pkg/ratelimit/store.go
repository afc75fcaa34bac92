package ratelimit

import "time"

// ClientWindow is the counting state of one client identifier.
type ClientWindow struct {
	Count       int
	WindowStart time.Time
}

// BlockRecord marks a client as rejected until BlockedUntil.
type BlockRecord struct {
	BlockedUntil time.Time
}

// BlockStatus is the result of a block check.
type BlockStatus struct {
	Blocked      bool
	BlockedUntil time.Time
}

// IncrementResult is the result of counting one request.
type IncrementResult struct {
	// Count is the request count observed by this call, before any reset.
	Count int

	// Exceeded reports that Count crossed MaxRequests and a block was recorded.
	Exceeded bool
}

// Store holds per-client gate state. Implementations must be safe for
// concurrent use; Limiter serializes calls for the same identifier, so a
// Store only needs to keep its own maps consistent.
type Store interface {
	// CheckAndRecordBlock reports whether id is blocked at now. A block
	// that has expired is removed and reported as not blocked.
	CheckAndRecordBlock(id string, now time.Time) BlockStatus

	// CheckAndIncrement performs window bookkeeping and counts one request.
	// When the count exceeds cfg.MaxRequests it records a block until
	// now+cfg.BlockDuration and resets the window to zero at now.
	CheckAndIncrement(id string, now time.Time, cfg Config) IncrementResult
}
