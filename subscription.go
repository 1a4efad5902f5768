package campus

import "sync"

// Snapshot is one delivery of a continuous query: either the full result
// set or the error that interrupted it.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// Subscription is a cancellable stream of snapshots. The channel is closed
// after Close is called or when the producer stops.
type Subscription[T any] struct {
	c      <-chan Snapshot[T]
	cancel func()
	once   sync.Once
}

// NewSubscription wraps a snapshot channel and the function that stops its
// producer. cancel may be nil.
func NewSubscription[T any](c <-chan Snapshot[T], cancel func()) *Subscription[T] {
	return &Subscription[T]{c: c, cancel: cancel}
}

// Snapshots returns the delivery channel.
func (s *Subscription[T]) Snapshots() <-chan Snapshot[T] { return s.c }

// Close stops the producer. It is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Deliver replaces any undelivered snapshot in ch with snap. ch must have a
// capacity of one and a single sender, so the send never blocks.
func Deliver[T any](ch chan Snapshot[T], snap Snapshot[T]) {
	select {
	case <-ch:
	default:
	}
	ch <- snap
}
