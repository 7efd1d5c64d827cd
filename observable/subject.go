// Package observable provides a single-slot value holder that replays its
// latest value to new subscribers.
package observable

import "sync"

// Subject holds the most recent published value and notifies subscribers of
// every publish. A new subscriber immediately receives the current value.
//
// Notifications run synchronously on the publishing goroutine, in
// subscription order, after the value has been stored.
type Subject[T any] struct {
	mu     sync.RWMutex
	value  T
	subs   []subscription[T]
	nextID uint64
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// NewSubject creates a subject holding initial.
func NewSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{value: initial}
}

// Value returns the most recently published value.
func (s *Subject[T]) Value() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Publish replaces the current value and notifies all subscribers.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	s.value = v
	subs := make([]subscription[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(v)
	}
}

// Subscribe registers fn and delivers the current value to it before
// returning. The returned function removes the subscription; calling it more
// than once is harmless.
func (s *Subject[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription[T]{id: id, fn: fn})
	current := s.value
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Subject[T]) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
