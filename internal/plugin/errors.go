package plugin

import (
	"errors"
	"fmt"
)

// Bring-up errors.
var (
	// ErrInvalidDomain is returned when a descriptor has a blank domain.
	ErrInvalidDomain = errors.New("plugin domain must not be blank")

	// ErrDuplicateDomain is returned when a normalized domain is registered twice.
	ErrDuplicateDomain = errors.New("plugin domain already registered")

	// ErrMissingDependency classifies a plugin dropped because a dependency is absent.
	ErrMissingDependency = errors.New("plugin dependency not found")

	// ErrCircularDependency is returned when the dependency graph contains a cycle.
	ErrCircularDependency = errors.New("circular plugin dependency detected")

	// ErrInitTimeout is recorded when a plugin's dependencies did not finish in time.
	ErrInitTimeout = errors.New("timed out waiting for plugin dependencies")

	// ErrNotInitializable is returned by Dispatcher for a handle with no OnInit method.
	ErrNotInitializable = errors.New("plugin handle does not implement Initializer")
)

// NotifyError wraps a failure raised by a plugin while handling its
// initialization event.
type NotifyError struct {
	Domain string
	Err    error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("plugin '%s' failed to initialize: %v", e.Domain, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }
