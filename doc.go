/*
Package weakevent provides weak-reference event subscriptions: handlers that forward events to a subscriber without keeping the subscriber alive.

Registering a callback normally hands the producer a strong reference to the subscriber, directly or through the callback's closure. Unless someone remembers to unregister, the subscriber stays reachable for as long as the producer does, which for long-lived producers is an effective memory leak. A Handler breaks that ownership path: it is registered in place of the callback and holds the subscriber only weakly, so invocations are forwarded while the subscriber is reachable through other owners and dropped once it has been reclaimed.

# Concept

A Handler decomposes a bound callback into two parts: the subscriber instance, stored as a weak reference, and the method to invoke, stored as a plain function value that does not capture the instance. On Raise it resolves the weak reference to a strong handle. If resolution succeeds, the method runs on the live subscriber with the original sender and payload; if it fails, the call returns without doing anything. The ownership chain is producer (strong) -> handler (weak) -> subscriber, so subscriber reclamation is fully decoupled from producer lifetime.

A handler whose subscriber is gone stays registered and alive for as long as the producer retains it. It is small and inert, but it is not free; Event.Prune exists to sweep such registrations when the residual cost matters.

# Key Features

  - Weak subscription: attaching a handler never extends the subscriber's lifetime.
  - Silent degradation: a reclaimed subscriber stops receiving events with no error and no log line, indistinguishable from a no-op callback.
  - Arity adaptation: methods taking (sender, payload), (sender) or nothing are wrapped by Bind, BindSender and BindNotify, with the call shape fixed at construction time.
  - Payload-generic: Handler and Event pass the payload through opaquely and can be instantiated for any payload type.
  - Opt-in diagnostics: deliver and drop hooks observe forwarding without altering it, feeding loggers or metrics collectors.

# Usage

Bind a handler from a subscriber and a method expression, then register it with any event mechanism. The included Event is the simplest one:

	package main

	import (
		"fmt"

		"github.com/dylansturg/weakevent"
	)

	type Display struct {
		name string
	}

	func (d *Display) OnTemperature(sender any, degrees float64) {
		fmt.Printf("%s: %.1f\n", d.name, degrees)
	}

	func main() {
		var thermometer weakevent.Event[float64]

		display := &Display{name: "hall"}
		h := weakevent.Bind(display, (*Display).OnTemperature)
		thermometer.AttachHandler(h)

		// Delivered while display is reachable.
		thermometer.Raise(nil, 21.5)

		// Once display's last strong reference is gone and the garbage
		// collector has run, the same Raise degrades to a no-op. The
		// handler stays attached but forwards nothing.
		display = nil
		thermometer.Raise(nil, 22.0)
	}

The method expression (*Display).OnTemperature is the crucial ingredient: unlike the method value display.OnTemperature, it is a free function that does not capture the receiver, so the handler retains code without retaining the instance.
*/
package weakevent
