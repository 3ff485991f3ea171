package link

import (
	"sync"

	"golang.org/x/exp/slices"
)

// emitter delivers values to subscribers in subscription order, one value
// at a time, in the order they were emitted. Subscribing or unsubscribing
// never disturbs an in-flight delivery.
type emitter[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

// subscribe registers fn and returns a cancel func that removes it.
func (e *emitter[T]) subscribe(fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs == nil {
		e.subs = make(map[int]func(T))
	}
	id := e.next
	e.next++
	e.subs[id] = fn

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// emit calls every current subscriber with v. Callbacks run outside the
// registry lock so they may subscribe or unsubscribe freely.
func (e *emitter[T]) emit(v T) {
	e.mu.Lock()
	ids := make([]int, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.subs[id])
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
