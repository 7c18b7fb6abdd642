package weakevent

import "weak"

// Handler stands in for a subscriber's callback without keeping the
// subscriber alive. It is registered with an event producer in place of
// the callback; while the subscriber remains reachable through other
// owners every Raise is forwarded to it, and once the subscriber has
// been reclaimed the handler degrades to a permanent no-op.
//
// Handler is generic over the event payload type A only. The concrete
// subscriber type is captured by the constructors and never surfaces in
// the handler's type, so a single event can fan out to subscribers of
// unrelated types.
//
// The zero value is not usable; construct handlers with Bind,
// BindSender, BindNotify, Func, FuncSender or FuncNotify.
type Handler[A any] struct {
	raise  func(sender any, args A)
	target func() any
	alive  func() bool
}

// settings carries construction-time configuration shared by every
// handler shape.
type settings struct {
	deliver func()
	drop    func()
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) delivered() {
	if s.deliver != nil {
		s.deliver()
	}
}

func (s settings) dropped() {
	if s.drop != nil {
		s.drop()
	}
}

// Option defines a functional option for configuring a Handler.
type Option func(*settings)

// WithDeliverHook registers fn to run immediately before each forwarded
// invocation, including invocations that end in a subscriber panic.
func WithDeliverHook(fn func()) Option {
	return func(s *settings) {
		s.deliver = fn
	}
}

// WithDropHook registers fn to run each time Raise finds the subscriber
// reclaimed and discards the invocation. Forwarding stays silent without
// it.
func WithDropHook(fn func()) Option {
	return func(s *settings) {
		s.drop = fn
	}
}

// Bind wraps a method taking (sender, payload), bound weakly to target.
//
// method must not itself retain the target; pass a method expression
// such as (*Subscriber).OnEvent, never the method value sub.OnEvent,
// whose closure would defeat the weak reference. Any plain function of
// the same shape works too.
//
// Bind panics if target or method is nil.
func Bind[A any, T any](target *T, method func(t *T, sender any, args A), opts ...Option) *Handler[A] {
	if target == nil {
		panic("weakevent: Bind with nil target")
	}
	if method == nil {
		panic("weakevent: Bind with nil method")
	}
	return newBound(target, method, opts)
}

// BindSender wraps a method that takes only the sender. The payload is
// discarded before forwarding.
//
// A does not occur in the arguments, so the payload type is given
// explicitly and the subscriber type is still inferred:
//
//	h := weakevent.BindSender[float64](display, (*Display).OnAnyReading)
//
// BindSender panics if target or method is nil.
func BindSender[A any, T any](target *T, method func(t *T, sender any), opts ...Option) *Handler[A] {
	if target == nil {
		panic("weakevent: BindSender with nil target")
	}
	if method == nil {
		panic("weakevent: BindSender with nil method")
	}
	return newBound(target, func(t *T, sender any, _ A) {
		method(t, sender)
	}, opts)
}

// BindNotify wraps a niladic method. Sender and payload are both
// discarded before forwarding. The payload type is given explicitly, as
// with BindSender.
//
// BindNotify panics if target or method is nil.
func BindNotify[A any, T any](target *T, method func(t *T), opts ...Option) *Handler[A] {
	if target == nil {
		panic("weakevent: BindNotify with nil target")
	}
	if method == nil {
		panic("weakevent: BindNotify with nil method")
	}
	return newBound(target, func(t *T, _ any, _ A) {
		method(t)
	}, opts)
}

// Func wraps a free function taking (sender, payload). There is no
// subscriber to track, so the handler forwards forever and Target always
// returns nil.
//
// Func panics if fn is nil.
func Func[A any](fn func(sender any, args A), opts ...Option) *Handler[A] {
	if fn == nil {
		panic("weakevent: Func with nil fn")
	}
	return newUnbound(fn, opts)
}

// FuncSender wraps a free function that takes only the sender. The
// payload type is given explicitly, as with BindSender.
//
// FuncSender panics if fn is nil.
func FuncSender[A any](fn func(sender any), opts ...Option) *Handler[A] {
	if fn == nil {
		panic("weakevent: FuncSender with nil fn")
	}
	return newUnbound[A](func(sender any, _ A) {
		fn(sender)
	}, opts)
}

// FuncNotify wraps a niladic free function.
//
// FuncNotify panics if fn is nil.
func FuncNotify[A any](fn func(), opts ...Option) *Handler[A] {
	if fn == nil {
		panic("weakevent: FuncNotify with nil fn")
	}
	return newUnbound[A](func(any, A) {
		fn()
	}, opts)
}

// newBound builds a handler around a weak reference to target. The
// adapter closures above fix the call shape here, at construction time;
// Raise itself never inspects arity or types.
func newBound[A any, T any](target *T, invoke func(*T, any, A), opts []Option) *Handler[A] {
	s := newSettings(opts)
	ref := weak.Make(target)
	return &Handler[A]{
		raise: func(sender any, args A) {
			// Pin a strong handle before invoking, and call through
			// that same handle. The target cannot be reclaimed between
			// the liveness check and the call.
			t := ref.Value()
			if t == nil {
				s.dropped()
				return
			}
			s.delivered()
			invoke(t, sender, args)
		},
		target: func() any {
			if t := ref.Value(); t != nil {
				return t
			}
			// Untyped nil, not a typed nil boxed in the interface.
			return nil
		},
		alive: func() bool {
			return ref.Value() != nil
		},
	}
}

func newUnbound[A any](invoke func(any, A), opts []Option) *Handler[A] {
	s := newSettings(opts)
	return &Handler[A]{
		raise: func(sender any, args A) {
			s.delivered()
			invoke(sender, args)
		},
		target: func() any { return nil },
		alive:  func() bool { return true },
	}
}

// Raise forwards the event to the subscriber, passing sender and args
// through unchanged. If the subscriber has been reclaimed the call is a
// silent no-op; nothing is logged and no error surfaces. A panic raised
// by the subscriber's own method propagates to the caller unchanged.
func (h *Handler[A]) Raise(sender any, args A) {
	h.raise(sender, args)
}

// Target returns the subscriber while it is still reachable through
// other owners, or nil once it has been reclaimed. Unbound handlers
// always return nil.
//
// The returned reference is strong. Callers that retain it past their
// own stack frame re-extend the subscriber's lifetime.
func (h *Handler[A]) Target() any {
	return h.target()
}

// Alive reports whether a Raise at this moment would forward. Bound
// handlers report false once the subscriber is reclaimed; unbound
// handlers always report true.
func (h *Handler[A]) Alive() bool {
	return h.alive()
}
