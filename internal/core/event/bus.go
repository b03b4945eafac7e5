// Package event provides a double-buffered notification bus for the host
// loop. Notifications emitted during frame N are delivered when the host
// dispatches at the start of tick N+1, so consumers never observe the tree
// mid-mutation. The bus is confined to the host loop's goroutine; nothing
// here locks.
package event

import "reflect"

// Bus buffers typed notifications. Rotate swaps the buffers once per host
// tick; Dispatch delivers the previous tick's batch.
type Bus struct {
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

// Emit queues a notification into the back buffer, readable after the next
// Rotate.
func Emit[T any](b *Bus, ev T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.back[t] = append(b.back[t], ev)
}

// Subscribe registers a typed handler. The assertion closure is built here
// so Dispatch needs no reflection per delivery.
func Subscribe[T any](b *Bus, fn func(T)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// Rotate swaps back to front and clears the new back buffer. Called once at
// tick start, before Dispatch.
func (b *Bus) Rotate() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// Dispatch delivers every front-buffer notification to its handlers, in
// emission order per type.
func (b *Bus) Dispatch() {
	for t, events := range b.front {
		handlers := b.handlers[t]
		for _, ev := range events {
			for _, h := range handlers {
				h(ev)
			}
		}
	}
}
