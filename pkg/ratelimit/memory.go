package ratelimit

import (
	"sync"
	"time"

	"github.com/rhuss/usergate/pkg/debug"
)

// MemoryStore is the in-process Store. Window and block state live in two
// maps, each guarded by its own mutex. Lock order is windows then blocks.
//
// Entries are evicted lazily: an expired block is dropped the next time its
// client is checked, and a stale window is reset on the next request.
type MemoryStore struct {
	winMu   sync.Mutex
	windows map[string]*ClientWindow

	blockMu sync.Mutex
	blocks  map[string]BlockRecord
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*ClientWindow),
		blocks:  make(map[string]BlockRecord),
	}
}

// CheckAndRecordBlock implements Store.
func (s *MemoryStore) CheckAndRecordBlock(id string, now time.Time) BlockStatus {
	s.blockMu.Lock()
	defer s.blockMu.Unlock()

	rec, ok := s.blocks[id]
	if !ok {
		return BlockStatus{}
	}
	if now.Before(rec.BlockedUntil) {
		return BlockStatus{Blocked: true, BlockedUntil: rec.BlockedUntil}
	}

	debug.Log("ratelimit", "block expired", "client", id)
	delete(s.blocks, id)
	return BlockStatus{}
}

// CheckAndIncrement implements Store.
func (s *MemoryStore) CheckAndIncrement(id string, now time.Time, cfg Config) IncrementResult {
	s.winMu.Lock()
	defer s.winMu.Unlock()

	win, ok := s.windows[id]
	if !ok {
		debug.Log("ratelimit", "new client tracked", "client", id)
		win = &ClientWindow{WindowStart: now}
		s.windows[id] = win
	}

	if now.Sub(win.WindowStart) > cfg.Window {
		debug.Log("ratelimit", "window reset", "client", id)
		win.Count = 0
		win.WindowStart = now
	}

	win.Count++
	count := win.Count
	debug.Log("ratelimit", "request counted", "client", id, "count", count, "max", cfg.MaxRequests)

	if count <= cfg.MaxRequests {
		return IncrementResult{Count: count}
	}

	s.blockMu.Lock()
	s.blocks[id] = BlockRecord{BlockedUntil: now.Add(cfg.BlockDuration)}
	s.blockMu.Unlock()

	win.Count = 0
	win.WindowStart = now

	return IncrementResult{Count: count, Exceeded: true}
}

// Window returns a copy of the window state for id.
func (s *MemoryStore) Window(id string) (ClientWindow, bool) {
	s.winMu.Lock()
	defer s.winMu.Unlock()
	win, ok := s.windows[id]
	if !ok {
		return ClientWindow{}, false
	}
	return *win, true
}

// Block returns the block record for id, expired or not.
func (s *MemoryStore) Block(id string) (BlockRecord, bool) {
	s.blockMu.Lock()
	defer s.blockMu.Unlock()
	rec, ok := s.blocks[id]
	return rec, ok
}

// Len returns the number of tracked windows and block records.
func (s *MemoryStore) Len() (windows, blocks int) {
	s.winMu.Lock()
	windows = len(s.windows)
	s.winMu.Unlock()

	s.blockMu.Lock()
	blocks = len(s.blocks)
	s.blockMu.Unlock()
	return windows, blocks
}

// Sweep drops expired blocks and windows idle for longer than window.
// A swept client is indistinguishable from one whose state would have been
// reset on its next request, so Sweep never changes a gate decision.
func (s *MemoryStore) Sweep(now time.Time, window time.Duration) (windows, blocks int) {
	s.winMu.Lock()
	for id, win := range s.windows {
		if now.Sub(win.WindowStart) > window {
			delete(s.windows, id)
			windows++
		}
	}
	s.winMu.Unlock()

	s.blockMu.Lock()
	for id, rec := range s.blocks {
		if !now.Before(rec.BlockedUntil) {
			delete(s.blocks, id)
			blocks++
		}
	}
	s.blockMu.Unlock()

	return windows, blocks
}
