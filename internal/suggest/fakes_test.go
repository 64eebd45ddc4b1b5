package suggest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/alias"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/clock"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/metrics"
)

type fetchCall struct {
	Key   string
	Query string
}

type saveCall struct {
	Key   string
	Value string
}

// fakeStore serves canned suggestions per key. A gate registered for a query
// blocks fetches of that query until it is closed; gates ignore cancellation,
// like a network call that cannot be aborted.
type fakeStore struct {
	mu      sync.Mutex
	results map[string][]models.Suggestion
	errs    map[string]error
	saveErr error
	// saveGate, when set, holds every Save until closed.
	saveGate chan struct{}
	gates    map[string]chan struct{}
	fetches  []fetchCall
	saves    []saveCall
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		results: make(map[string][]models.Suggestion),
		errs:    make(map[string]error),
		gates:   make(map[string]chan struct{}),
	}
}

func (f *fakeStore) set(key string, list ...models.Suggestion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[key] = list
}

func (f *fakeStore) fail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[key] = err
}

func (f *fakeStore) gate(query string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[query] = ch
	return ch
}

func (f *fakeStore) Fetch(ctx context.Context, key, query string) ([]models.Suggestion, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, fetchCall{Key: key, Query: query})
	gate := f.gates[query]
	list := f.results[key]
	err := f.errs[key]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	var out []models.Suggestion
	for _, sug := range list {
		if models.Matches(sug.Value, query) {
			out = append(out, sug)
		}
	}
	return out, nil
}

func (f *fakeStore) Save(ctx context.Context, key, value string) error {
	f.mu.Lock()
	gate := f.saveGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, saveCall{Key: key, Value: value})
	return f.saveErr
}

func (f *fakeStore) Fetches() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.fetches...)
}

func (f *fakeStore) Saves() []saveCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]saveCall(nil), f.saves...)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) Of(kind EventKind) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	engine  *Engine
	clock   *clock.Fake
	store   *fakeStore
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	store := newFakeStore()
	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	m := metrics.NewMetrics()
	require.NoError(t, m.Register(prometheus.NewRegistry()))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := NewEngine(store, alias.NewResolver(alias.DefaultTable()), cfg,
		WithClock(clk), WithMetrics(m), WithLogger(logger))
	return &harness{engine: engine, clock: clk, store: store, metrics: m}
}

func (h *harness) open(t *testing.T, fieldID, initial string) (*FieldSession, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := h.engine.Open(fieldID, initial, rec.handle)
	t.Cleanup(func() { _ = s.Close() })
	return s, rec
}

func snapshot(t *testing.T, s *FieldSession) Snapshot {
	t.Helper()
	snap, err := s.Snapshot()
	require.NoError(t, err)
	return snap
}

// waitSettled waits until the session has applied a response and is no longer loading.
func waitSettled(t *testing.T, s *FieldSession) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		snap, err := s.Snapshot()
		return err == nil && snap.LoadedOnce && !snap.Loading
	}, time.Second, 2*time.Millisecond)
	return snapshot(t, s)
}
