package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dylansturg/weakevent"
)

// namespace prefixes every metric exported by this package.
const namespace = "weakevent"

// Collector owns the Prometheus instruments for weak event traffic.
// All instruments are instance-scoped: nothing is registered globally,
// so independent collectors can coexist in one process, each against
// its own registry.
type Collector struct {
	reg prometheus.Registerer

	deliveries   prometheus.Counter
	drops        prometheus.Counter
	messages     prometheus.Counter
	decodeErrors prometheus.Counter
}

// New creates a Collector and registers its instruments with reg.
// A nil reg falls back to prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		reg: reg,
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total invocations forwarded to live subscribers.",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drops_total",
			Help:      "Total invocations dropped because the subscriber was reclaimed.",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "messages_total",
			Help:      "Total messages received from external feeds.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "decode_errors_total",
			Help:      "Total malformed messages skipped by external feeds.",
		}),
	}
	c.reg.MustRegister(c.deliveries, c.drops, c.messages, c.decodeErrors)
	return c
}

// DeliverHook returns a hook counting forwarded invocations. Pass it to
// a handler via weakevent.WithDeliverHook.
func (c *Collector) DeliverHook() func() {
	return c.deliveries.Inc
}

// DropHook returns a hook counting invocations dropped after the
// subscriber was reclaimed. Pass it to a handler via
// weakevent.WithDropHook.
func (c *Collector) DropHook() func() {
	return c.drops.Inc
}

// Options bundles both hooks for handler construction:
//
//	h := weakevent.Bind(sub, (*Sub).OnEvent, collector.Options()...)
func (c *Collector) Options() []weakevent.Option {
	return []weakevent.Option{
		weakevent.WithDeliverHook(c.DeliverHook()),
		weakevent.WithDropHook(c.DropHook()),
	}
}

// MessageReceived counts one payload arriving from an external feed.
func (c *Collector) MessageReceived() {
	c.messages.Inc()
}

// DecodeError counts one malformed payload an external feed skipped.
func (c *Collector) DecodeError() {
	c.decodeErrors.Inc()
}

// ObserveEvent registers a pair of gauges for ev, labelled with name.
// The gauges read the event lazily at scrape time, so they track
// attachment, reclamation and pruning without any bookkeeping on the
// raise path. Observing an event keeps it reachable for the lifetime of
// the registry.
func ObserveEvent[A any](c *Collector, name string, ev *weakevent.Event[A]) {
	attached := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "handlers_attached",
		Help:        "Callbacks currently attached, live or not.",
		ConstLabels: prometheus.Labels{"event": name},
	}, func() float64 {
		return float64(ev.Len())
	})
	live := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "handlers_live",
		Help:        "Attached callbacks that would forward a raise right now.",
		ConstLabels: prometheus.Labels{"event": name},
	}, func() float64 {
		return float64(ev.Live())
	})
	c.reg.MustRegister(attached, live)
}
