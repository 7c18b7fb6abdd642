package main

import (
	"log/slog"
	"time"

	"github.com/dylansturg/weakevent"
	redisadapter "github.com/dylansturg/weakevent/pkg/adapters/redis"
	"github.com/dylansturg/weakevent/pkg/domain"
	"github.com/dylansturg/weakevent/pkg/roster"
)

// noticeSink is the relay's managed subscriber. It only logs what it
// hears; what matters is that the roster holds its single strong
// reference.
type noticeSink struct {
	name   string
	logger *slog.Logger
}

func (s *noticeSink) OnNotice(sender any, n domain.Notice) {
	attrs := []any{
		"subscriber", s.name,
		"title", n.Title,
		"level", string(n.Severity()),
	}
	if remote, ok := sender.(*redisadapter.Remote); ok {
		attrs = append(attrs, "origin", remote.Origin)
	}
	s.logger.Info("notice delivered", attrs...)
}

// demoRegistry creates subscribers on demand, binds them weakly to the
// event and parks their only strong reference in the roster. From then
// on the roster's lease decides how long they live.
type demoRegistry struct {
	roster     *roster.Manager[noticeSink]
	event      *weakevent.Event[domain.Notice]
	logger     *slog.Logger
	opts       []weakevent.Option
	defaultTTL time.Duration
}

func (d *demoRegistry) Register(name string, ttl time.Duration) (roster.Entry, error) {
	if ttl <= 0 {
		ttl = d.defaultTTL
	}

	s := &noticeSink{name: name, logger: d.logger}
	entry, err := d.roster.Add(name, s, ttl)
	if err != nil {
		return roster.Entry{}, err
	}

	h := weakevent.Bind(s, (*noticeSink).OnNotice, d.opts...)
	d.event.AttachHandler(h)
	d.logger.Info("subscriber registered", "name", name, "expires", entry.Expires)
	return entry, nil
}

func (d *demoRegistry) Drop(name string) bool {
	ok := d.roster.Remove(name)
	if ok {
		d.logger.Info("subscriber reference dropped", "name", name)
	}
	return ok
}

func (d *demoRegistry) Entries() []roster.Entry {
	return d.roster.Entries()
}
