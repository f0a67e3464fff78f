// Package validate makes a plugin graph safe to schedule.
//
// Validation runs two passes over the registry. The first drops every plugin
// that names a dependency which is not registered, logging a warning that
// names both domains. By default that pass repeats until nothing else is
// dropped, so a plugin whose only dependency was itself dropped goes too;
// PruneSinglePass keeps the one-pass behavior. The second pass walks the
// full transitive dependency closure of every plugin and fails with a
// CycleError if a plugin can reach itself.
package validate
