package observability

import (
	"runtime"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylansturg/weakevent"
	"github.com/dylansturg/weakevent/internal/testutils"
)

type ticker struct {
	ticks *int
}

func (t *ticker) OnTick(sender any, n int) {
	*t.ticks++
}

// leakTicker builds a counted handler whose subscriber becomes
// unreachable as soon as the call returns. One delivery happens while
// the subscriber is still pinned, so counters start from 1.
func leakTicker(c *Collector) (*weakevent.Handler[int], *int) {
	var ticks int
	tk := &ticker{ticks: &ticks}
	h := weakevent.Bind(tk, (*ticker).OnTick, c.Options()...)
	h.Raise(nil, 0)
	runtime.KeepAlive(tk)
	return h, &ticks
}

func settle(t *testing.T, h *weakevent.Handler[int]) {
	t.Helper()
	testutils.Settle(t, func() bool { return !h.Alive() })
}

func TestCollector_CountsDeliveriesAndDrops(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	h, ticks := leakTicker(c)
	require.Equal(t, 1, *ticks)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deliveries))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.drops))

	settle(t, h)
	h.Raise(nil, 1)
	h.Raise(nil, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.deliveries), "deliveries must stop at reclamation")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.drops))
	assert.Equal(t, 1, *ticks)
}

func TestCollector_EventGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	var ev weakevent.Event[int]
	ObserveEvent(c, "ticks", &ev)

	ev.Attach(func(any, int) {})
	h, _ := leakTicker(c)
	ev.AttachHandler(h)

	settle(t, h)

	assert.Equal(t, 2.0, gaugeValue(t, reg, "weakevent_handlers_attached"))
	assert.Equal(t, 1.0, gaugeValue(t, reg, "weakevent_handlers_live"))

	ev.Prune()

	assert.Equal(t, 1.0, gaugeValue(t, reg, "weakevent_handlers_attached"))
	assert.Equal(t, 1.0, gaugeValue(t, reg, "weakevent_handlers_live"))
}

func TestCollector_BridgeCounters(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.MessageReceived()
	c.MessageReceived()
	c.DecodeError()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.messages))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decodeErrors))
}

// gaugeValue scrapes reg and returns the single sample value of the
// named metric family.
func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found in registry", name)
	return 0
}
