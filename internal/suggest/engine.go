package suggest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/alias"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/clock"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/ports"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/metrics"
)

// Engine holds what field sessions share: the store, the alias resolver,
// timing configuration and instrumentation.
type Engine struct {
	store    ports.SuggestionStore
	resolver *alias.Resolver
	cfg      Config
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	merger   *Merger

	// in-flight write-backs, including those of closed sessions
	saves saveTracker
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(store ports.SuggestionStore, resolver *alias.Resolver, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		resolver: resolver,
		cfg:      cfg.withDefaults(),
		clock:    clock.Real(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = alias.NewResolver(alias.DefaultTable())
	}
	e.merger = NewMerger(store, e.logger, e.metrics, e.cfg.MaxResults)
	return e
}

// Open mounts a field session for fieldID holding initial. The session starts
// Idle, so an initial value never opens the suggestion list.
func (e *Engine) Open(fieldID, initial string, handler EventHandler) *FieldSession {
	group := e.resolver.Resolve(fieldID)
	return newFieldSession(uuid.NewString(), fieldID, initial, group, e, handler)
}

// Resolver returns the alias resolver used for new sessions.
func (e *Engine) Resolver() *alias.Resolver {
	return e.resolver
}

// Merger returns the merger shared by the engine's sessions.
func (e *Engine) Merger() *Merger {
	return e.merger
}

// NewManager starts a form session that owns the fields opened through it.
func (e *Engine) NewManager() *Manager {
	return &Manager{
		engine:   e,
		sessions: make(map[string]*FieldSession),
	}
}

// Drain stops new write-backs and waits for those already handed to the
// store. A persist timer that fires once draining has begun drops its value.
func (e *Engine) Drain(ctx context.Context) error {
	return e.saves.drain(ctx)
}
