package memory

import (
	"sync"

	"github.com/dylansturg/weakevent/pkg/domain"
)

// History keeps the most recent notices seen by a feed, up to a fixed
// capacity. Once full, each Add evicts the oldest entry.
// Safe for concurrent use.
type History struct {
	mu    sync.RWMutex
	ring  []domain.Notice
	next  int
	count int
	total uint64
}

// NewHistory creates a history bounded to capacity entries. A capacity
// below one falls back to 128.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 128
	}
	return &History{
		ring: make([]domain.Notice, capacity),
	}
}

// OnNotice records a notice. The signature matches what Event.Attach
// expects, so a History can subscribe directly with h.OnNotice.
func (h *History) OnNotice(_ any, n domain.Notice) {
	h.Add(n)
}

// Add records a notice, evicting the oldest entry when full.
func (h *History) Add(n domain.Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ring[h.next] = n
	h.next = (h.next + 1) % len(h.ring)
	if h.count < len(h.ring) {
		h.count++
	}
	h.total++
}

// Recent returns up to n notices, newest first. A non-positive n returns
// everything retained. The result is a copy; callers can't mutate the
// history through it.
func (h *History) Recent(n int) []domain.Notice {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > h.count {
		n = h.count
	}

	out := make([]domain.Notice, 0, n)
	for i := 1; i <= n; i++ {
		// next points at the slot the following Add will overwrite, so
		// the newest entry sits just behind it.
		idx := (h.next - i + len(h.ring)) % len(h.ring)
		out = append(out, h.ring[idx])
	}
	return out
}

// Len returns how many notices are currently retained.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Total returns how many notices were ever recorded, including evicted
// ones.
func (h *History) Total() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}
