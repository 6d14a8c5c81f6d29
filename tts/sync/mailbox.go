// Package sync serializes speech backend callbacks and paces highlight
// updates.
//
// Everything the playback orchestrator does must happen on one logical
// thread. A Mailbox provides that thread: callbacks arriving on backend
// goroutines are posted to it and run one at a time in posting order.
package sync

import (
	"context"
	"sync"
)

// Mailbox is an unbounded FIFO of functions drained by a single loop.
// Post never blocks, so it is safe to call from inside a function the
// loop is currently running.
type Mailbox struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	notify chan struct{}

	deliver func(fn func())
}

// NewMailbox creates a mailbox. When deliver is nil, Run calls every posted
// function itself. Otherwise Run hands each function to deliver, which lets
// another event loop (such as a bubbletea program) execute it.
func NewMailbox(deliver func(fn func())) *Mailbox {
	return &Mailbox{
		notify:  make(chan struct{}, 1),
		deliver: deliver,
	}
}

// Post queues fn. Functions posted after Close are dropped.
func (m *Mailbox) Post(fn func()) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Run drains the mailbox until ctx is done or the mailbox is closed and
// empty. It must only be called once.
func (m *Mailbox) Run(ctx context.Context) error {
	for {
		m.mu.Lock()
		batch := m.queue
		m.queue = nil
		closed := m.closed
		m.mu.Unlock()

		for _, fn := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			m.dispatch(fn)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.notify:
		}
	}
}

// Do posts fn and waits until it has run. It must not be called from a
// function running on the loop.
func (m *Mailbox) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	m.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new functions. Run returns once the queue is empty.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of queued functions.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Mailbox) dispatch(fn func()) {
	if m.deliver != nil {
		m.deliver(fn)
		return
	}
	fn()
}

// Immediate runs posted functions synchronously on the caller's goroutine.
// It suits callers that already serialize every call themselves.
type Immediate struct{}

// Post runs fn.
func (Immediate) Post(fn func()) { fn() }

// Schedule runs fn without waiting for a refresh.
func (Immediate) Schedule(fn func()) (cancel func()) {
	fn()
	return func() {}
}
