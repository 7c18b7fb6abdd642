package weakevent

import "sync"

// Event is a minimal in-process event producer: an ordered list of
// callbacks invoked synchronously, in attach order, on every Raise.
//
// It exists so weak handlers have a producer to hang off without an
// external event framework, but nothing couples Handler to it; any
// mechanism that can register and call a func(sender, args) works with
// Handler.Raise directly.
//
// The zero value is ready to use. All methods are safe for concurrent
// use.
type Event[A any] struct {
	mu     sync.RWMutex
	lastID int
	subs   []subscription[A]
}

// subscription pairs an invocation entry point with the handler that
// produced it, when there is one. handler stays nil for plain functions
// registered via Attach.
type subscription[A any] struct {
	id      int
	invoke  func(sender any, args A)
	handler *Handler[A]
}

// Attach registers fn and returns a detach function that removes it.
// The detach function is idempotent.
//
// fn is held strongly. If it closes over the subscriber, the subscriber
// stays alive until detach; use AttachHandler with a bound Handler to
// avoid that.
//
// Attach panics if fn is nil.
func (e *Event[A]) Attach(fn func(sender any, args A)) (detach func()) {
	if fn == nil {
		panic("weakevent: Attach with nil fn")
	}
	return e.add(subscription[A]{invoke: fn})
}

// AttachHandler registers h's forwarding entry point and returns a
// detach function that removes it. The event holds h strongly, but h
// holds its subscriber only weakly, so attaching does not pin the
// subscriber.
//
// AttachHandler panics if h is nil.
func (e *Event[A]) AttachHandler(h *Handler[A]) (detach func()) {
	if h == nil {
		panic("weakevent: AttachHandler with nil handler")
	}
	return e.add(subscription[A]{invoke: h.raise, handler: h})
}

func (e *Event[A]) add(sub subscription[A]) func() {
	e.mu.Lock()
	e.lastID++
	sub.id = e.lastID
	id := sub.id
	e.subs = append(e.subs, sub)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.remove(id)
		})
	}
}

func (e *Event[A]) remove(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.subs {
		if e.subs[i].id != id {
			continue
		}
		copy(e.subs[i:], e.subs[i+1:])
		// Zero the vacated tail slot so the backing array drops its
		// strong reference to the removed callback.
		e.subs[len(e.subs)-1] = subscription[A]{}
		e.subs = e.subs[:len(e.subs)-1]
		return
	}
}

// Raise invokes every attached callback in attach order, synchronously,
// on the calling goroutine. The subscription list is snapshotted first:
// attaching or detaching from inside a callback takes effect on the next
// Raise, not the one in flight. A callback panic propagates to the
// caller and skips the callbacks remaining in this Raise.
func (e *Event[A]) Raise(sender any, args A) {
	e.mu.RLock()
	snapshot := make([]func(any, A), len(e.subs))
	for i := range e.subs {
		snapshot[i] = e.subs[i].invoke
	}
	e.mu.RUnlock()

	for _, invoke := range snapshot {
		invoke(sender, args)
	}
}

// Len returns the number of attached callbacks, live or not.
func (e *Event[A]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

// Live returns the number of attached callbacks that would forward a
// Raise right now: plain functions, unbound handlers and bound handlers
// whose subscriber is still reachable. Len minus Live is the count of
// inert registrations Prune would remove.
func (e *Event[A]) Live() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, sub := range e.subs {
		if sub.handler == nil || sub.handler.Alive() {
			n++
		}
	}
	return n
}

// Prune removes subscriptions whose handler reports its subscriber
// reclaimed and returns how many were removed. Raising to a dead handler
// is already a no-op; what Prune reclaims is the inert registration
// itself, which otherwise stays attached for the event's whole lifetime.
// Plain functions registered via Attach are never pruned.
func (e *Event[A]) Prune() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	kept := e.subs[:0]
	for _, sub := range e.subs {
		if sub.handler != nil && !sub.handler.Alive() {
			continue
		}
		kept = append(kept, sub)
	}
	pruned := len(e.subs) - len(kept)
	for i := len(kept); i < len(e.subs); i++ {
		e.subs[i] = subscription[A]{}
	}
	e.subs = kept
	return pruned
}
