package plugin

import "time"

// EventKind identifies a lifecycle event.
type EventKind string

// InitializationEvent tells a plugin that all of its dependencies have
// initialized and it may run its own initialization.
const InitializationEvent EventKind = "initialize"

// Event is delivered to plugin handles. The scheduler creates one value per
// run and hands the same value to every plugin.
type Event struct {
	Kind EventKind
	// RunID identifies the scheduler run that produced the event.
	RunID string
	Time  time.Time
	// Plugins lets a handle look up its peers, including itself, while it
	// initializes. It may be nil.
	Plugins Directory
}

// Directory gives read access to registered plugins.
type Directory interface {
	Lookup(domain string) (*Record, bool)
}
