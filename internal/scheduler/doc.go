// Package scheduler initializes every plugin in a registry exactly once, in
// dependency order.
//
// Each plugin runs in its own goroutine and waits on a count-down latch sized
// to its number of dependencies. When a plugin finishes, successfully or not,
// it counts down the latch of each of its dependents, so independent branches
// of the graph initialize concurrently and a failure never stalls the rest of
// the run. Every wait is bounded by a per-plugin timeout.
package scheduler
