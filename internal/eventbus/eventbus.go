// Package eventbus is a small typed publish/subscribe hub.
package eventbus

import "sync"

// Handler receives published events.
type Handler[T any] func(T)

type subscription[T any] struct {
	id int
	fn Handler[T]
}

// Bus delivers events to its subscribers synchronously, in subscription order.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   []subscription[T]
	nextID int
}

// New creates an empty Bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Bus[T]) Subscribe(fn Handler[T]) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription[T]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish calls every current subscriber with ev. The subscriber list is
// snapshotted first, so handlers may subscribe or unsubscribe freely.
func (b *Bus[T]) Publish(ev T) {
	b.mu.RLock()
	snapshot := make([]Handler[T], len(b.subs))
	for i, s := range b.subs {
		snapshot[i] = s.fn
	}
	b.mu.RUnlock()

	for _, fn := range snapshot {
		fn(ev)
	}
}

// Len returns the number of subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
