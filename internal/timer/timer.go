package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Handle owns at most one pending single-shot timer. Scheduling a new fire
// always cancels the previous one, so fires never stack.
type Handle struct {
	clock clockwork.Clock

	mu      sync.Mutex
	pending clockwork.Timer
	gen     uint64
}

// New returns a Handle scheduling on the provided clock, or the real clock when nil.
func New(clock clockwork.Clock) *Handle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handle{clock: clock}
}

// Reset cancels any pending fire and schedules fn after d. The token passed to
// fn identifies this schedule; see Current.
func (h *Handle) Reset(d time.Duration, fn func(token uint64)) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
	h.gen++
	token := h.gen

	h.pending = h.clock.AfterFunc(d, func() {
		h.mu.Lock()
		if h.gen != token {
			h.mu.Unlock()
			return
		}
		h.pending = nil
		h.mu.Unlock()

		fn(token)
	})
	return token
}

// Stop cancels the pending fire, if any.
func (h *Handle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
	h.gen++
}

// scheduled reports whether a fire is pending and has not run yet.
func (h *Handle) scheduled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending != nil
}

// Current reports whether token still belongs to the latest schedule. A fire
// that had to wait on its owner's lock uses this to detect that a Reset or
// Stop happened in the meantime.
func (h *Handle) Current(token uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen == token
}

func (h *Handle) stopLocked() {
	if h.pending != nil {
		h.pending.Stop()
		h.pending = nil
	}
}
