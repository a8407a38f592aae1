package broadcast

import (
	"sync"
)

// Listener receives published values.
type Listener[T any] func(value T)

// Topic is a typed, process-wide publish/subscribe channel.
// Listeners are called synchronously, in subscription order, outside the topic lock,
// so a listener may subscribe, unsubscribe or publish without deadlocking.
type Topic[T any] struct {
	mux       sync.RWMutex
	next      uint64
	listeners []subscription[T]
}

type subscription[T any] struct {
	id       uint64
	listener Listener[T]
}

// NewTopic creates an empty topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{}
}

// Subscribe registers listener and returns an idempotent unsubscribe function.
func (t *Topic[T]) Subscribe(listener Listener[T]) func() {
	t.mux.Lock()
	t.next++
	id := t.next
	t.listeners = append(t.listeners, subscription[T]{id: id, listener: listener})
	t.mux.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic[T]) remove(id uint64) {
	t.mux.Lock()
	defer t.mux.Unlock()
	for i, sub := range t.listeners {
		if sub.id == id {
			t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
			return
		}
	}
}

// Publish delivers value to every current listener.
func (t *Topic[T]) Publish(value T) {
	t.mux.RLock()
	snapshot := make([]subscription[T], len(t.listeners))
	copy(snapshot, t.listeners)
	t.mux.RUnlock()
	for _, sub := range snapshot {
		sub.listener(value)
	}
}

// Len returns the number of active listeners.
func (t *Topic[T]) Len() int {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return len(t.listeners)
}
