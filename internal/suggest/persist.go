package suggest

import (
	"context"
	"strings"
	"sync"
)

// commit arms the write-back of value. A newer commit replaces a pending one.
func (s *FieldSession) commit(value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	s.pendingCommit = value
	s.persist.arm(s.clock, s.cfg.PersistDelay, func(token uint64) {
		s.send(func() { s.onPersistTimer(token) })
	})
}

func (s *FieldSession) onPersistTimer(token uint64) {
	if s.closed || !s.persist.claim(token) {
		return
	}
	value := s.pendingCommit
	s.pendingCommit = ""
	key := s.group.Primary()

	// The write outlives the field: unmounting right after the timer fired
	// must not cancel it.
	ctx := context.WithoutCancel(s.ctx)
	if !s.saves.begin() {
		s.metrics.ObserveSave(key, ErrDraining)
		s.logger.Warn("suggestion save dropped while draining", "key", key)
		return
	}
	go func() {
		defer s.saves.done()
		s.save(ctx, key, value)
	}()
}

func (s *FieldSession) save(ctx context.Context, key, value string) {
	err := s.store.Save(ctx, key, value)
	s.metrics.ObserveSave(key, err)
	if err != nil {
		s.logger.Warn("suggestion save failed", "key", key, "error", err)
		return
	}
	s.logger.Debug("suggestion saved", "key", key)
}

// saveTracker counts write-backs in flight. Once drain starts, begin refuses
// new ones so Wait never races an Add.
type saveTracker struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool
}

func (t *saveTracker) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.draining {
		return false
	}
	t.wg.Add(1)
	return true
}

func (t *saveTracker) done() {
	t.wg.Done()
}

func (t *saveTracker) drain(ctx context.Context) error {
	t.mu.Lock()
	t.draining = true
	t.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
