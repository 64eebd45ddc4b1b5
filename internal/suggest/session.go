package suggest

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/clock"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/ports"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/metrics"
)

// FieldSession is the suggestion state of one mounted field.
type FieldSession struct {
	id      string
	fieldID string
	group   models.FieldGroup
	cfg     Config
	merger  *Merger
	store   ports.SuggestionStore
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	handler EventHandler
	saves   *saveTracker

	inbox  chan message
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the run goroutine.
	text          string
	state         State
	suggestions   []models.Suggestion
	open          bool
	loading       bool
	loadedOnce    bool
	interacted    bool
	blurred       bool
	generation    uint64
	query         task
	persist       task
	pendingCommit string
	abortFetch    context.CancelFunc
	closed        bool
}

type message struct {
	apply func()
	done  chan struct{}
}

// Snapshot is a copy of a session's state.
type Snapshot struct {
	ID             string
	FieldID        string
	Group          models.FieldGroup
	Text           string
	State          State
	Suggestions    []models.Suggestion
	Open           bool
	Loading        bool
	LoadedOnce     bool
	Interacted     bool
	Generation     uint64
	QueryPending   bool
	PersistPending bool
}

func newFieldSession(id, fieldID, initial string, group models.FieldGroup, e *Engine, handler EventHandler) *FieldSession {
	if handler == nil {
		handler = func(Event) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &FieldSession{
		id:      id,
		fieldID: fieldID,
		group:   group,
		cfg:     e.cfg,
		merger:  e.merger,
		store:   e.store,
		clock:   e.clock,
		logger:  e.logger.With("session", id, "field", fieldID),
		metrics: e.metrics,
		handler: handler,
		saves:   &e.saves,
		inbox:   make(chan message),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		text:    initial,
		state:   Idle,
	}
	s.metrics.SessionOpened()
	go s.run()
	return s
}

func (s *FieldSession) run() {
	defer close(s.done)
	for {
		msg := <-s.inbox
		msg.apply()
		close(msg.done)
		if s.closed {
			return
		}
	}
}

// do runs fn on the session goroutine and waits for it to finish.
func (s *FieldSession) do(fn func()) error {
	msg := message{apply: fn, done: make(chan struct{})}
	select {
	case s.inbox <- msg:
	case <-s.done:
		return models.ErrSessionClosed
	}
	<-msg.done
	return nil
}

// ID returns the session identifier.
func (s *FieldSession) ID() string { return s.id }

// FieldID returns the identifier the session was mounted with.
func (s *FieldSession) FieldID() string { return s.fieldID }

// Group returns the canonical keys the session queries.
func (s *FieldSession) Group() models.FieldGroup {
	out := make(models.FieldGroup, len(s.group))
	copy(out, s.group)
	return out
}

// SetValue handles a keystroke: the field becomes dirty and a debounced query
// is scheduled, or the list is cleared if text is shorter than MinLength.
func (s *FieldSession) SetValue(text string) error {
	return s.do(func() {
		s.text = text
		s.interacted = true
		s.blurred = false
		s.state = Dirty
		s.schedule()
	})
}

// NotifyFocus loads every known value when the field gains focus while empty.
func (s *FieldSession) NotifyFocus() error {
	return s.do(func() {
		s.blurred = false
		if s.text == "" {
			s.startQuery("", "browse")
			return
		}
		if s.loadedOnce && len(s.suggestions) > 0 && (s.state == Dirty || s.state == Searching) {
			s.setOpen(true)
		}
	})
}

// NotifyBlur closes the dropdown. A query still in flight publishes its
// results but leaves the list closed until the field is focused again.
func (s *FieldSession) NotifyBlur() error {
	return s.do(func() {
		s.blurred = true
		s.setOpen(false)
	})
}

// NotifySelection records that the user picked value from the list.
func (s *FieldSession) NotifySelection(value string) error {
	return s.do(func() {
		s.stopQuerying()
		s.text = value
		s.state = Selected
		s.setLoading(false)
		s.setOpen(false)
		s.commit(value)
	})
}

// NotifyCommit records a free-typed value the user confirmed without picking
// it from the list.
func (s *FieldSession) NotifyCommit(value string) error {
	return s.do(func() {
		s.stopQuerying()
		s.setLoading(false)
		s.setOpen(false)
		s.commit(value)
	})
}

// NotifyExternalValueChange handles a programmatic value change, such as a
// record loaded into the form. It never opens the list or queries.
func (s *FieldSession) NotifyExternalValueChange(text string) error {
	return s.do(func() {
		s.stopQuerying()
		s.text = text
		s.state = Idle
		if s.persist.pending() && s.pendingCommit != text {
			s.persist.cancel()
			s.pendingCommit = ""
		}
		s.setLoading(false)
		s.setOpen(false)
		s.clearSuggestions()
	})
}

// Snapshot returns a copy of the session state.
func (s *FieldSession) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := s.do(func() {
		list := make([]models.Suggestion, len(s.suggestions))
		copy(list, s.suggestions)
		snap = Snapshot{
			ID:             s.id,
			FieldID:        s.fieldID,
			Group:          s.Group(),
			Text:           s.text,
			State:          s.state,
			Suggestions:    list,
			Open:           s.open,
			Loading:        s.loading,
			LoadedOnce:     s.loadedOnce,
			Interacted:     s.interacted,
			Generation:     s.generation,
			QueryPending:   s.query.pending(),
			PersistPending: s.persist.pending(),
		}
	})
	return snap, err
}

// Close tears the session down, cancelling both timers. In-flight queries
// are aborted; a save that already started is left to finish. Close is
// idempotent.
func (s *FieldSession) Close() error {
	err := s.do(func() {
		s.query.cancel()
		s.persist.cancel()
		s.pendingCommit = ""
		if s.abortFetch != nil {
			s.abortFetch()
			s.abortFetch = nil
		}
		s.cancel()
		s.closed = true
		s.metrics.SessionClosed()
	})
	if errors.Is(err, models.ErrSessionClosed) {
		return nil
	}
	return err
}

// Done is closed once the session is torn down.
func (s *FieldSession) Done() <-chan struct{} {
	return s.done
}

// send delivers fn from a timer or fetch goroutine. It is dropped if the
// session is already closed.
func (s *FieldSession) send(fn func()) {
	_ = s.do(fn)
}

func (s *FieldSession) schedule() {
	if utf8.RuneCountInString(s.text) < s.cfg.MinLength {
		s.stopQuerying()
		s.setLoading(false)
		s.setOpen(false)
		s.clearSuggestions()
		return
	}
	s.query.arm(s.clock, s.cfg.QueryDelay, func(token uint64) {
		s.send(func() { s.onQueryTimer(token) })
	})
}

func (s *FieldSession) onQueryTimer(token uint64) {
	if s.closed || !s.query.claim(token) {
		return
	}
	s.state = Searching
	s.startQuery(s.text, "search")
}

// startQuery supersedes any in-flight query and issues a new one for text.
func (s *FieldSession) startQuery(text, kind string) {
	if s.abortFetch != nil {
		s.abortFetch()
	}
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(s.ctx)
	s.abortFetch = cancel
	s.metrics.IncQuery(kind)
	s.setLoading(true)

	group := s.group
	go func() {
		list := s.merger.Search(ctx, group, text)
		s.send(func() { s.onResults(gen, list) })
		cancel()
	}()
}

func (s *FieldSession) onResults(gen uint64, list []models.Suggestion) {
	if s.closed {
		return
	}
	if gen != s.generation {
		s.metrics.IncStale()
		s.logger.Debug("discarding stale suggestions", "generation", gen, "current", s.generation)
		return
	}
	s.abortFetch = nil
	s.loadedOnce = true
	s.publish(list)
	s.setLoading(false)
	s.setOpen(len(list) > 0 && !s.blurred)
}

// stopQuerying cancels the pending query timer and makes any in-flight
// response stale.
func (s *FieldSession) stopQuerying() {
	s.query.cancel()
	if s.abortFetch != nil {
		s.abortFetch()
		s.abortFetch = nil
	}
	s.generation++
}

func (s *FieldSession) publish(list []models.Suggestion) {
	if list == nil {
		list = []models.Suggestion{}
	}
	s.suggestions = list
	out := make([]models.Suggestion, len(list))
	copy(out, list)
	s.emit(Event{Kind: SuggestionsChanged, Suggestions: out})
}

func (s *FieldSession) clearSuggestions() {
	if len(s.suggestions) == 0 {
		s.suggestions = nil
		return
	}
	s.publish(nil)
}

func (s *FieldSession) setLoading(loading bool) {
	if s.loading == loading {
		return
	}
	s.loading = loading
	s.emit(Event{Kind: LoadingChanged, Loading: loading})
}

func (s *FieldSession) setOpen(open bool) {
	if s.open == open {
		return
	}
	s.open = open
	s.emit(Event{Kind: DropdownOpenChanged, Open: open})
}

func (s *FieldSession) emit(ev Event) {
	ev.SessionID = s.id
	ev.FieldID = s.fieldID
	s.handler(ev)
}
