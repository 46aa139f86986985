package usecase

import (
	"sync"
	"time"

	"captionview/internal/ports"
)

// DefaultHeaderCollapseDelay is the idle time before the header folds away.
const DefaultHeaderCollapseDelay = 10 * time.Second

// HeaderCollapser folds the header after a period without user activity.
type HeaderCollapser struct {
	delay  time.Duration
	events ports.EventSink

	mu        sync.Mutex
	collapsed bool
	timer     *time.Timer
	seq       uint64
	stopped   bool
}

func NewHeaderCollapser(delay time.Duration, events ports.EventSink) *HeaderCollapser {
	if delay <= 0 {
		delay = DefaultHeaderCollapseDelay
	}
	return &HeaderCollapser{delay: delay, events: events}
}

// Activity expands the header and restarts the idle timer.
func (h *HeaderCollapser) Activity() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.setCollapsedLocked(false)
	h.armLocked()
}

// Toggle flips the header by hand. Expanding restarts the idle timer.
func (h *HeaderCollapser) Toggle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelLocked()
	h.setCollapsedLocked(!h.collapsed)
	if !h.collapsed && !h.stopped {
		h.armLocked()
	}
	return h.collapsed
}

func (h *HeaderCollapser) Collapsed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.collapsed
}

// Stop cancels the pending timer for good.
func (h *HeaderCollapser) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	h.cancelLocked()
}

func (h *HeaderCollapser) armLocked() {
	h.cancelLocked()
	seq := h.seq
	h.timer = time.AfterFunc(h.delay, func() { h.fire(seq) })
}

func (h *HeaderCollapser) cancelLocked() {
	h.seq++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *HeaderCollapser) fire(seq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if seq != h.seq || h.stopped {
		return
	}
	h.timer = nil
	h.setCollapsedLocked(true)
}

func (h *HeaderCollapser) setCollapsedLocked(collapsed bool) {
	if h.collapsed == collapsed {
		return
	}
	h.collapsed = collapsed
	h.events.HeaderCollapsedChanged(collapsed)
}
