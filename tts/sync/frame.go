package sync

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultFrameRate is the default number of display refreshes per second.
const DefaultFrameRate = 60

// FrameScheduler defers work to the next display refresh. Refreshes are
// rate limited, and a scheduled function runs through post so it executes
// on the caller's event loop.
type FrameScheduler struct {
	post    func(fn func())
	limiter *rate.Limiter
}

// NewFrameScheduler creates a scheduler allowing fps refreshes per second.
func NewFrameScheduler(post func(fn func()), fps int) *FrameScheduler {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &FrameScheduler{
		post:    post,
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
	}
}

// Schedule runs fn at the next available refresh. The returned cancel func
// prevents fn from running if it has not run yet; it is safe to call more
// than once.
func (f *FrameScheduler) Schedule(fn func()) (cancel func()) {
	var cancelled atomic.Bool
	r := f.limiter.Reserve()

	timer := time.AfterFunc(r.Delay(), func() {
		f.post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			cancelled.Store(true)
			if timer.Stop() {
				r.Cancel()
			}
		})
	}
}

// ManualScheduler queues scheduled functions until Flush is called. It is
// meant for tests and single-step drivers.
type ManualScheduler struct {
	pending []*manualTask
}

type manualTask struct {
	fn        func()
	cancelled bool
}

// Schedule queues fn.
func (m *ManualScheduler) Schedule(fn func()) (cancel func()) {
	t := &manualTask{fn: fn}
	m.pending = append(m.pending, t)
	return func() { t.cancelled = true }
}

// Pending returns the number of queued functions that were not cancelled.
func (m *ManualScheduler) Pending() int {
	n := 0
	for _, t := range m.pending {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Flush runs every queued function that was not cancelled and returns how
// many ran. Functions scheduled while flushing wait for the next Flush.
func (m *ManualScheduler) Flush() int {
	tasks := m.pending
	m.pending = nil

	ran := 0
	for _, t := range tasks {
		if t.cancelled {
			continue
		}
		t.cancelled = true
		t.fn()
		ran++
	}
	return ran
}
