// Package registry owns the mapping from normalized plugin domain to
// plugin.Record.
//
// The registry is populated once by a discovery source, shrunk by the
// validator, and then sealed before the scheduler starts. Once sealed it is
// read-only for the rest of the process; nothing in the scheduler locks
// records, only the per-domain latches.
package registry
