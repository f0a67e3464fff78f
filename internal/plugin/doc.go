// Package plugin defines the plugin record shared by every stage of the
// bring-up pipeline, the initialization event, and the notify capability the
// scheduler uses to tell a plugin it may initialize.
//
// # Lifecycle
//
// A Record is created once from a discovery Descriptor, has its Dependents
// assembled once by the graph builder, survives (or not) validation, and is
// then consumed by the scheduler exactly once. Only the scheduler task that
// owns a record writes its State.
package plugin
