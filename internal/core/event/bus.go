package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered notification bus. Events emitted during frame N are
// delivered by the Flush at the end of frame N, in emission order. Events emitted
// by handlers during a Flush are delivered by the next one.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    []any
	back     []any
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		front:    make([]any, 0, 64),
		back:     make([]any, 0, 64),
		handlers: make(map[reflect.Type][]any),
	}
}

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, event T) {
	b.back = append(b.back, event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// Pending returns the number of queued events.
func (b *Bus) Pending() int { return len(b.back) }

// Flush rotates back→front and delivers every front event to its handlers.
// It returns the number of events delivered.
func (b *Bus) Flush() int {
	b.front, b.back = b.back, b.front[:0]
	for _, ev := range b.front {
		for _, h := range b.handlers[reflect.TypeOf(ev)] {
			// Safe: Subscribe and Emit use the same type key.
			callHandler(h, ev)
		}
	}
	n := len(b.front)
	clear(b.front)
	b.front = b.front[:0]
	return n
}

// Discard drops queued events without delivering them.
func (b *Bus) Discard() {
	clear(b.back)
	b.back = b.back[:0]
}

func callHandler(handler any, event any) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
