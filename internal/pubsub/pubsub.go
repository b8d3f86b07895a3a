package pubsub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Dispatcher schedules fn on the goroutine that owns UI state. In the
// application this is glib.IdleAdd.
type Dispatcher func(fn func())

// Immediate runs fn on the calling goroutine.
func Immediate(fn func()) {
	fn()
}

type EventHandler[T any] func(T)

type Topic[T any] interface {
	Pub(value T)
	// Sub registers fn until ctx is done.
	Sub(ctx context.Context, fn EventHandler[T])
	// Once registers fn for the next published value only.
	Once(ctx context.Context, fn EventHandler[T])
}

func NewTopic[T any]() Topic[T] {
	return &topic[T]{}
}

type topic[T any] struct {
	mutex sync.RWMutex
	subs  map[string]EventHandler[T]
}

func (t *topic[T]) Sub(ctx context.Context, fn EventHandler[T]) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	uid := uuid.NewString()
	if t.subs == nil {
		t.subs = map[string]EventHandler[T]{}
	}
	t.subs[uid] = fn
	go func() {
		<-ctx.Done()
		t.mutex.Lock()
		defer t.mutex.Unlock()
		delete(t.subs, uid)
	}()
}

func (t *topic[T]) Once(ctx context.Context, fn EventHandler[T]) {
	ctx, cancel := context.WithCancel(ctx)
	var fired atomic.Bool
	t.Sub(ctx, func(value T) {
		// removal happens asynchronously, so a second Pub may still reach us
		if !fired.CompareAndSwap(false, true) {
			return
		}
		cancel()
		fn(value)
	})
}

func (t *topic[T]) Pub(value T) {
	t.mutex.RLock()
	handlers := make([]EventHandler[T], 0, len(t.subs))
	for _, fn := range t.subs {
		handlers = append(handlers, fn)
	}
	t.mutex.RUnlock()

	for _, fn := range handlers {
		fn(value)
	}
}

// Len returns the number of registered handlers.
func (t *topic[T]) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.subs)
}

type Property[T any] interface {
	Topic[T]
	Value() T
}

func NewProperty[T any](value T) Property[T] {
	return &property[T]{
		value: value,
	}
}

type property[T any] struct {
	topic[T]
	valueMutex sync.RWMutex
	value      T
}

// Sub registers fn and calls it with the current value.
func (p *property[T]) Sub(ctx context.Context, fn EventHandler[T]) {
	p.topic.Sub(ctx, fn)
	fn(p.Value())
}

func (p *property[T]) Pub(value T) {
	p.valueMutex.Lock()
	p.value = value
	p.valueMutex.Unlock()
	p.topic.Pub(value)
}

func (p *property[T]) Value() T {
	p.valueMutex.RLock()
	defer p.valueMutex.RUnlock()
	return p.value
}
