package suggest

import (
	"time"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/clock"
)

// task is a delayed action with a single owner. Arming always cancels the
// previous timer, and a fire is honoured only if its token is still current,
// so a timer that raced with Stop is a no-op.
type task struct {
	timer clock.Timer
	token uint64
}

func (t *task) arm(c clock.Clock, d time.Duration, fire func(token uint64)) {
	t.cancel()
	t.token++
	token := t.token
	t.timer = c.AfterFunc(d, func() { fire(token) })
}

func (t *task) cancel() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// claim disarms the task if token belongs to the armed timer.
func (t *task) claim(token uint64) bool {
	if t.timer == nil || token != t.token {
		return false
	}
	t.timer = nil
	return true
}

func (t *task) pending() bool {
	return t.timer != nil
}
