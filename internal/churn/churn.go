// Package churn runs subscriber churn scenarios against a weak event.
//
// A scenario attaches a generation of subscribers, raises the event while
// they are strongly reachable, releases every strong reference, waits for
// the garbage collector to reclaim them, and raises again to show the
// handlers going silent. Each run produces a Report with the full
// delivery accounting.
package churn

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/dylansturg/weakevent"
	"github.com/dylansturg/weakevent/internal/logging"
)

// Scenario configures a churn run. Zero fields fall back to defaults.
type Scenario struct {
	Generations int
	Subscribers int
	Raises      int
	SettleLimit time.Duration
}

// WithDefaults returns a copy of the scenario with zero fields filled in.
func (s Scenario) WithDefaults() Scenario {
	if s.Generations == 0 {
		s.Generations = 3
	}
	if s.Subscribers == 0 {
		s.Subscribers = 100
	}
	if s.Raises == 0 {
		s.Raises = 10
	}
	if s.SettleLimit == 0 {
		s.SettleLimit = 10 * time.Second
	}
	return s
}

// Validate reports the first configuration problem, if any.
func (s Scenario) Validate() error {
	if s.Generations < 0 {
		return fmt.Errorf("invalid scenario: generations must not be negative, got %d", s.Generations)
	}
	if s.Subscribers < 0 {
		return fmt.Errorf("invalid scenario: subscribers must not be negative, got %d", s.Subscribers)
	}
	if s.Raises < 0 {
		return fmt.Errorf("invalid scenario: raises must not be negative, got %d", s.Raises)
	}
	if s.SettleLimit < 0 {
		return fmt.Errorf("invalid scenario: settle_limit must not be negative, got %s", s.SettleLimit)
	}
	return nil
}

// Report aggregates what a run observed.
type Report struct {
	Scenario   Scenario
	Deliveries int64
	Drops      int64
	Pruned     int
	GCRounds   int
	Elapsed    time.Duration
}

// meter is the throwaway subscriber attached during a run. It only has
// to be a heap object the collector can reclaim once the run lets go.
type meter struct {
	last int
}

func (m *meter) OnTick(sender any, seq int) {
	m.last = seq
}

// Run executes the scenario and returns its report. The context cancels
// a run between generations; a generation whose subscribers are not
// reclaimed within the settle limit fails the run.
func Run(ctx context.Context, sc Scenario, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	sc = sc.WithDefaults()
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	report := &Report{Scenario: sc}
	var ev weakevent.Event[int]
	opts := []weakevent.Option{
		weakevent.WithDeliverHook(func() { report.Deliveries++ }),
		weakevent.WithDropHook(func() { report.Drops++ }),
	}

	start := time.Now()
	for gen := 0; gen < sc.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// The closure scopes the generation's strong references: when it
		// returns, only the handlers' weak references remain.
		handlers := func() []*weakevent.Handler[int] {
			subs := make([]*meter, sc.Subscribers)
			handlers := make([]*weakevent.Handler[int], sc.Subscribers)
			for i := range subs {
				subs[i] = &meter{}
				handlers[i] = weakevent.Bind(subs[i], (*meter).OnTick, opts...)
				ev.AttachHandler(handlers[i])
			}

			for seq := 0; seq < sc.Raises; seq++ {
				ev.Raise(&ev, gen*sc.Raises+seq)
			}
			runtime.KeepAlive(subs)
			return handlers
		}()

		rounds, err := settle(ctx, handlers, sc.SettleLimit)
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen, err)
		}
		report.GCRounds += rounds

		// The registrations are inert now: this raise reaches nobody.
		ev.Raise(&ev, -1)
		report.Pruned += ev.Prune()

		logger.Debug("generation settled",
			"generation", gen,
			"gc_rounds", rounds,
			"deliveries", report.Deliveries,
			"drops", report.Drops)
	}
	report.Elapsed = time.Since(start)

	return report, nil
}

// settle forces collections until every handler is dead or the limit
// passes, returning the number of GC rounds it took.
func settle(ctx context.Context, handlers []*weakevent.Handler[int], limit time.Duration) (int, error) {
	deadline := time.Now().Add(limit)
	rounds := 0
	for {
		alive := 0
		for _, h := range handlers {
			if h.Alive() {
				alive++
			}
		}
		if alive == 0 {
			return rounds, nil
		}
		if err := ctx.Err(); err != nil {
			return rounds, err
		}
		if time.Now().After(deadline) {
			return rounds, fmt.Errorf("%d of %d subscribers still alive after %s", alive, len(handlers), limit)
		}
		runtime.GC()
		rounds++
		time.Sleep(time.Millisecond)
	}
}

// Markdown renders the report as a markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Churn Report\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	fmt.Fprintf(&b, "| Generations | %d |\n", r.Scenario.Generations)
	fmt.Fprintf(&b, "| Subscribers per generation | %d |\n", r.Scenario.Subscribers)
	fmt.Fprintf(&b, "| Raises per generation | %d |\n", r.Scenario.Raises)
	fmt.Fprintf(&b, "| Deliveries | %d |\n", r.Deliveries)
	fmt.Fprintf(&b, "| Silent drops | %d |\n", r.Drops)
	fmt.Fprintf(&b, "| Handlers pruned | %d |\n", r.Pruned)
	fmt.Fprintf(&b, "| GC rounds to settle | %d |\n", r.GCRounds)
	fmt.Fprintf(&b, "| Elapsed | %s |\n", r.Elapsed.Round(time.Millisecond))
	b.WriteString("\nEvery delivery happened while its subscriber was strongly reachable. ")
	b.WriteString("Every silent drop was a raise that found the subscriber already reclaimed.\n")
	return b.String()
}
