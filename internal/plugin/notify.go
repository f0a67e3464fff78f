package plugin

import (
	"context"
	"fmt"
)

// Notifier tells a plugin handle that an event happened. Implementations must
// be safe to call concurrently for different handles, and must return only
// once the handle has finished processing the event.
type Notifier interface {
	Notify(ctx context.Context, handle any, ev Event) error
}

// NotifyFunc adapts a function to the Notifier interface.
type NotifyFunc func(ctx context.Context, handle any, ev Event) error

// Notify calls f(ctx, handle, ev).
func (f NotifyFunc) Notify(ctx context.Context, handle any, ev Event) error {
	return f(ctx, handle, ev)
}

// Initializer is implemented by handles that want the initialization event.
type Initializer interface {
	OnInit(ctx context.Context, ev Event) error
}

// InitializerFunc adapts a function to the Initializer interface. Handy for
// handles that are nothing more than an init hook.
type InitializerFunc func(ctx context.Context, ev Event) error

// OnInit calls f(ctx, ev).
func (f InitializerFunc) OnInit(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Dispatcher is the default Notifier: it calls OnInit directly on the handle.
// Panics raised by the handle are recovered and returned as errors.
type Dispatcher struct{}

// Notify implements Notifier.
func (Dispatcher) Notify(ctx context.Context, handle any, ev Event) (err error) {
	init, ok := handle.(Initializer)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotInitializable, handle)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin panicked during %s: %v", ev.Kind, r)
		}
	}()
	return init.OnInit(ctx, ev)
}
