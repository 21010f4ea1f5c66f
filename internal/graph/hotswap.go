package graph

import (
	"sync"
)

// HotSwap is a thread-safe holder for the currently served forest. A fresh
// import builds and validates its forest off to the side, then swaps it in
// atomically; readers either see the old complete forest or the new one,
// never partial writes.
type HotSwap struct {
	mu      sync.RWMutex
	current *Forest
}

// NewHotSwap returns a holder with no forest loaded (not ready).
func NewHotSwap() *HotSwap {
	return &HotSwap{}
}

// Swap replaces the served forest.
func (h *HotSwap) Swap(f *Forest) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = f
}

// Current returns the served forest, or nil while none has been loaded.
func (h *HotSwap) Current() *Forest {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Ready reports whether a complete, validated forest is being served.
func (h *HotSwap) Ready() bool {
	return h.Current() != nil
}
