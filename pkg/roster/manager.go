package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dylansturg/weakevent/internal/logging"
)

// ErrNameTaken is returned when registering a subscriber under a name
// that is already held.
var ErrNameTaken = errors.New("subscriber name already taken")

// Entry describes one registration. A zero Expires means the lease
// never runs out on its own.
type Entry struct {
	Name    string    `json:"name"`
	Expires time.Time `json:"expires,omitzero"`
}

// Manager keeps named strong references to subscribers and drops them
// when their lease runs out.
type Manager[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]

	logger *slog.Logger
	now    func() time.Time
}

type entry[T any] struct {
	sub     *T
	expires time.Time
}

// Option configures the Manager.
type Option[T any] func(*Manager[T])

// WithLogger configures a logger for lease expiry events.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(m *Manager[T]) {
		m.logger = logger
	}
}

// WithClock overrides the time source. Tests use it to expire leases
// without sleeping.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(m *Manager[T]) {
		m.now = now
	}
}

// NewManager creates an empty roster.
func NewManager[T any](opts ...Option[T]) *Manager[T] {
	m := &Manager[T]{
		entries: make(map[string]*entry[T]),
		logger:  logging.NewNop(), // Default to no-op
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add registers sub under name for ttl. A ttl of zero or less means
// the entry is held until removed.
func (m *Manager[T]) Add(name string, sub *T, ttl time.Duration) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[name]; exists {
		return Entry{}, fmt.Errorf("%w: %q", ErrNameTaken, name)
	}

	e := &entry[T]{sub: sub}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[name] = e
	return Entry{Name: name, Expires: e.expires}, nil
}

// Remove drops the strong reference held under name and reports whether
// the name was present. The subscriber becomes collectable as soon as
// no caller holds it.
func (m *Manager[T]) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[name]; !exists {
		return false
	}
	delete(m.entries, name)
	return true
}

// Get returns the subscriber held under name. The returned pointer is a
// strong reference; callers must let go of it for the lease to matter.
func (m *Manager[T]) Get(name string) (*T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.entries[name]
	if !exists {
		return nil, false
	}
	return e.sub, true
}

// Sweep drops every expired entry and returns how many went.
func (m *Manager[T]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	dropped := 0
	for name, e := range m.entries {
		if e.expires.IsZero() || now.Before(e.expires) {
			continue
		}
		delete(m.entries, name)
		dropped++
		m.logger.Info("subscriber lease expired", "name", name)
	}
	return dropped
}

// Entries lists the current registrations.
func (m *Manager[T]) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.entries))
	for name, e := range m.entries {
		out = append(out, Entry{Name: name, Expires: e.expires})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name }) // Deterministic order
	return out
}

// Len returns the number of held references.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Run sweeps on every tick until the context ends.
func (m *Manager[T]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
