// Package events provides a typed in-process emitter, scoped to whoever
// constructs it, instead of ambient global subscriber lists.
package events

import "sync"

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Emitter delivers values synchronously, in subscription order. Delivery is
// serialized by the internal mutex; handlers must not block.
type Emitter[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber[T]
}

func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{}
}

// Subscribe registers fn and returns a function that removes it again.
func (e *Emitter[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.subs = append(e.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every current subscriber with v.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	subs := make([]subscriber[T], len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}
