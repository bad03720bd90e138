// Package feed delivers a sequence of values to listeners in publish order.
//
// Deliveries never run under the feed's lock. A Publish issued from inside a
// listener is queued and delivered once the current delivery returns, so a
// listener may publish, subscribe or cancel without deadlocking, and every
// listener observes values in the order they were published.
package feed

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Feed holds a current value and fans it out to listeners.
// The zero value is ready to use.
type Feed[T any] struct {
	mu        sync.Mutex
	current   T
	listeners map[uint64]*listener[T]
	nextID    uint64
	seq       uint64
	queue     []delivery[T]
	draining  bool
}

type listener[T any] struct {
	fn     func(T)
	since  uint64
	closed atomic.Bool
}

type delivery[T any] struct {
	seq    uint64
	target uint64 // 0 delivers to every listener subscribed before seq
	value  T
}

// Subscribe registers fn and delivers the current value to it immediately,
// then every subsequently published value. The returned cancel is idempotent.
func (f *Feed[T]) Subscribe(fn func(T)) (cancel func()) {
	f.mu.Lock()
	if f.listeners == nil {
		f.listeners = make(map[uint64]*listener[T])
	}
	f.nextID++
	id := f.nextID
	l := &listener[T]{fn: fn, since: f.seq}
	f.listeners[id] = l
	f.seq++
	f.queue = append(f.queue, delivery[T]{seq: f.seq, target: id, value: f.current})
	f.drainLocked()

	return func() {
		if l.closed.Swap(true) {
			return
		}
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// Publish replaces the current value and delivers it to all listeners.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	f.current = v
	f.seq++
	f.queue = append(f.queue, delivery[T]{seq: f.seq, value: v})
	f.drainLocked()
}

// Stage replaces the current value and queues its delivery without running
// any listener. Callers that must order updates under their own lock stage
// them there and Flush after unlocking.
func (f *Feed[T]) Stage(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = v
	f.seq++
	f.queue = append(f.queue, delivery[T]{seq: f.seq, value: v})
}

// Flush delivers queued values.
func (f *Feed[T]) Flush() {
	f.mu.Lock()
	f.drainLocked()
}

// Current returns the most recently published value.
func (f *Feed[T]) Current() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Len returns the number of active listeners.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

// Close drops every listener without notifying them and discards queued deliveries.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	for id, l := range f.listeners {
		l.closed.Store(true)
		delete(f.listeners, id)
	}
	f.queue = nil
	f.mu.Unlock()
}

// drainLocked is entered with f.mu held and returns with it released.
// Only one goroutine drains at a time; others leave their delivery queued.
func (f *Feed[T]) drainLocked() {
	if f.draining {
		f.mu.Unlock()
		return
	}
	f.draining = true
	for len(f.queue) > 0 {
		d := f.queue[0]
		f.queue = f.queue[1:]
		targets := f.targetsLocked(d)
		f.mu.Unlock()

		for _, l := range targets {
			if !l.closed.Load() {
				l.fn(d.value)
			}
		}

		f.mu.Lock()
	}
	f.draining = false
	f.mu.Unlock()
}

func (f *Feed[T]) targetsLocked(d delivery[T]) []*listener[T] {
	if d.target != 0 {
		if l, ok := f.listeners[d.target]; ok {
			return []*listener[T]{l}
		}
		return nil
	}
	ids := make([]uint64, 0, len(f.listeners))
	for id, l := range f.listeners {
		if l.since < d.seq {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	targets := make([]*listener[T], len(ids))
	for i, id := range ids {
		targets[i] = f.listeners[id]
	}
	return targets
}
