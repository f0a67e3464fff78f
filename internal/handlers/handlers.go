// Package handlers maps the handler names used in plugin manifests to the Go
// code that creates plugin handles.
package handlers

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// Factory creates a fresh plugin handle.
type Factory func() any

// Module is implemented by built-in packages that provide handlers.
type Module interface {
	Register(h *Handlers)
}

// Handlers holds all the registered handle factories.
type Handlers struct {
	all map[string]Factory
}

// New creates an empty handler table, optionally registering modules.
func New(modules ...Module) *Handlers {
	h := &Handlers{all: make(map[string]Factory)}
	for _, m := range modules {
		m.Register(h)
	}
	return h
}

// Register adds a factory under name. Registering the same name twice is a
// programming error and panics.
func (h *Handlers) Register(name string, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("plugin handler '%s' has a nil factory", name))
	}
	if _, exists := h.all[name]; exists {
		panic(fmt.Sprintf("plugin handler with name '%s' already registered", name))
	}
	slog.Debug("Registering plugin handler.", "name", name)
	h.all[name] = factory
}

// New instantiates the handle registered under name.
func (h *Handlers) New(name string) (any, error) {
	factory, ok := h.all[name]
	if !ok {
		return nil, fmt.Errorf("no plugin handler registered with name '%s' (known: %v)", name, h.Names())
	}
	return factory(), nil
}

// Has reports whether a handler is registered under name.
func (h *Handlers) Has(name string) bool {
	_, ok := h.all[name]
	return ok
}

// Names returns the registered names, sorted.
func (h *Handlers) Names() []string {
	return slices.Sorted(maps.Keys(h.all))
}
