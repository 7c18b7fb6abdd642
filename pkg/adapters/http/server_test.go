package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dylansturg/weakevent"
	"github.com/dylansturg/weakevent/pkg/adapters/memory"
	"github.com/dylansturg/weakevent/pkg/domain"
	"github.com/dylansturg/weakevent/pkg/roster"
)

// fakePublisher records what would have gone out over the transport.
type fakePublisher struct {
	notices []domain.Notice
	origins []string
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, origin string, n domain.Notice) error {
	if p.err != nil {
		return p.err
	}
	p.origins = append(p.origins, origin)
	p.notices = append(p.notices, n)
	return nil
}

// fakeRegistrar is a map-backed stand-in for the relay's registry.
type fakeRegistrar struct {
	entries map[string]roster.Entry
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{entries: make(map[string]roster.Entry)}
}

func (f *fakeRegistrar) Register(name string, ttl time.Duration) (roster.Entry, error) {
	if _, ok := f.entries[name]; ok {
		return roster.Entry{}, fmt.Errorf("%w: %q", roster.ErrNameTaken, name)
	}
	e := roster.Entry{Name: name}
	if ttl > 0 {
		e.Expires = time.Now().Add(ttl)
	}
	f.entries[name] = e
	return e, nil
}

func (f *fakeRegistrar) Drop(name string) bool {
	if _, ok := f.entries[name]; !ok {
		return false
	}
	delete(f.entries, name)
	return true
}

func (f *fakeRegistrar) Entries() []roster.Entry {
	out := make([]roster.Entry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out
}

func newTestServer() (*Server, *fakePublisher, *fakeRegistrar) {
	pub := &fakePublisher{}
	reg := newFakeRegistrar()
	srv := &Server{
		Publisher: pub,
		Registrar: reg,
		Event:     &weakevent.Event[domain.Notice]{},
		Version:   "0.0.0-test\n",
	}
	return srv, pub, reg
}

func TestGetHealth(t *testing.T) {
	srv, _, _ := newTestServer()
	handler := NewHandler(srv)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 OK, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("Expected ok status, got %s", w.Body.String())
	}
}

func TestGetInfo(t *testing.T) {
	srv, _, _ := newTestServer()
	handler := NewHandler(srv)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/info", nil))

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["app"] != "weakevent-relay" {
		t.Errorf("Expected app weakevent-relay, got %q", resp["app"])
	}
	if resp["version"] != "0.0.0-test" {
		t.Errorf("Expected trimmed version, got %q", resp["version"])
	}
}

func TestGetHandlers(t *testing.T) {
	srv, _, _ := newTestServer()
	srv.Event.AttachHandler(weakevent.Func(func(sender any, n domain.Notice) {}))
	srv.Event.AttachHandler(weakevent.Func(func(sender any, n domain.Notice) {}))
	handler := NewHandler(srv)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/handlers", nil))

	var resp map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["attached"] != 2 || resp["live"] != 2 || resp["inert"] != 0 {
		t.Errorf("Unexpected gauge response: %+v", resp)
	}
}

func TestAddSubscriber(t *testing.T) {
	srv, _, reg := newTestServer()
	handler := NewHandler(srv)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/subscribers/display?ttl=30s", nil))

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 Created, got %d %s", w.Code, w.Body.String())
	}
	var entry roster.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if entry.Name != "display" {
		t.Errorf("Expected entry for display, got %q", entry.Name)
	}
	if entry.Expires.IsZero() {
		t.Error("Expected a bounded lease")
	}
	if len(reg.entries) != 1 {
		t.Errorf("Expected one registration, got %d", len(reg.entries))
	}

	// Same name again must conflict.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/subscribers/display", nil))
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 Conflict, got %d", w.Code)
	}

	// Unparseable lease duration.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/subscribers/other?ttl=soon", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 Bad Request, got %d", w.Code)
	}
}

func TestDropSubscriber(t *testing.T) {
	srv, _, reg := newTestServer()
	handler := NewHandler(srv)

	if _, err := reg.Register("display", 0); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("DELETE", "/subscribers/display", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 No Content, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("DELETE", "/subscribers/display", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 Not Found, got %d", w.Code)
	}
}

func TestListSubscribers(t *testing.T) {
	srv, _, reg := newTestServer()
	handler := NewHandler(srv)

	if _, err := reg.Register("display", time.Minute); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/subscribers", nil))

	var entries []roster.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "display" {
		t.Errorf("Unexpected entries: %+v", entries)
	}
}

func TestListNotices(t *testing.T) {
	srv, _, _ := newTestServer()
	history := memory.NewHistory(8)
	history.Add(domain.Notice{Title: "first"})
	history.Add(domain.Notice{Title: "second"})
	history.Add(domain.Notice{Title: "third"})
	srv.History = history
	handler := NewHandler(srv)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/notices?limit=2", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", w.Code)
	}
	var notices []domain.Notice
	if err := json.Unmarshal(w.Body.Bytes(), &notices); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(notices) != 2 || notices[0].Title != "third" {
		t.Errorf("Expected two newest notices, got %+v", notices)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/notices?limit=many", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", w.Code)
	}
}

func TestListNotices_DisabledWithoutHistory(t *testing.T) {
	srv, _, _ := newTestServer()
	handler := NewHandler(srv)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/notices", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 when no history is wired, got %d", w.Code)
	}
}

func TestPostNotice(t *testing.T) {
	srv, pub, _ := newTestServer()
	handler := NewHandler(srv)

	body := strings.NewReader(`{"title": "deploy finished", "level": "info"}`)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/notices", body))

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202 Accepted, got %d %s", w.Code, w.Body.String())
	}
	if len(pub.notices) != 1 || pub.notices[0].Title != "deploy finished" {
		t.Errorf("Unexpected published notices: %+v", pub.notices)
	}
	if pub.origins[0] != "http" {
		t.Errorf("Expected origin http, got %q", pub.origins[0])
	}
}

func TestPostNotice_Rejections(t *testing.T) {
	srv, pub, _ := newTestServer()
	handler := NewHandler(srv)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/notices", strings.NewReader("{not json")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/notices", strings.NewReader(`{"title": "  "}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty title, got %d", w.Code)
	}

	pub.err = errors.New("redis is down")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/notices", strings.NewReader(`{"title": "x"}`)))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for publish failure, got %d", w.Code)
	}
	if len(pub.notices) != 0 {
		t.Errorf("Expected nothing recorded, got %+v", pub.notices)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer()
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "relay_test_total"})
	reg.MustRegister(c)
	c.Inc()
	srv.Gatherer = reg
	handler := NewHandler(srv)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "relay_test_total 1") {
		t.Errorf("Expected exposed counter, got %s", w.Body.String())
	}
}
