package mock

import (
	"sync"

	"github.com/fwojciec/campus"
)

// Feed drives a campus.Subscription from a test. Push delivers a full
// snapshot, latest wins. Closing the subscription closes the channel, after
// which Push is a no-op.
type Feed[T any] struct {
	mu     sync.Mutex
	ch     chan campus.Snapshot[T]
	closed bool
	done   chan struct{}
}

// NewFeed creates an open Feed.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{
		ch:   make(chan campus.Snapshot[T], 1),
		done: make(chan struct{}),
	}
}

// Subscription returns the subscription backed by f.
func (f *Feed[T]) Subscription() *campus.Subscription[T] {
	return campus.NewSubscription[T](f.ch, f.close)
}

// Push delivers items as the next snapshot. It reports whether the feed
// was still open.
func (f *Feed[T]) Push(items ...T) bool {
	return f.deliver(campus.Snapshot[T]{Items: items})
}

// Fail delivers a subscription error.
func (f *Feed[T]) Fail(err error) bool {
	return f.deliver(campus.Snapshot[T]{Err: err})
}

// Closed reports whether the subscription was closed.
func (f *Feed[T]) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Done is closed when the subscription is closed.
func (f *Feed[T]) Done() <-chan struct{} { return f.done }

func (f *Feed[T]) deliver(snap campus.Snapshot[T]) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	campus.Deliver(f.ch, snap)
	return true
}

func (f *Feed[T]) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
	close(f.done)
}
