// Package ratelimit implements the IP gate that runs before any credential
// check: a fixed-window request counter per client identifier with an
// automatic temporary block once the threshold is crossed.
//
// Per client the state moves Unseen -> Counting -> (Counting | Blocked),
// and a block always expires back into a fresh counting window:
//
//  1. If the client is blocked and the block has not expired, reject with
//     the remaining seconds. Expired blocks are evicted on observation.
//  2. Reset the window when more than Window has elapsed since it started.
//     The reset is hard, not sliding: a burst of up to 2x MaxRequests
//     across a window boundary is accepted.
//  3. Count the request. Above MaxRequests, block the client for
//     BlockDuration, reset its window to zero, and reject.
//
// Steps 1-3 run atomically per client identifier inside [Limiter.Check].
// Different identifiers only contend on a lock stripe.
//
// There is no background sweeper. Stale entries stay in the [MemoryStore]
// until the same client is seen again, or until [MemoryStore.Sweep] is called.
package ratelimit
