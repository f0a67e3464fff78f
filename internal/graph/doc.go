// Package graph assembles the reverse edges of the plugin dependency graph.
//
// Plugins only declare forward edges (the domains they depend on). The
// scheduler needs the opposite direction: when a plugin finishes it counts
// down the latch of every plugin that depends on it. PopulateDependents
// derives those "dependents" sets; Detach keeps them the exact transpose of
// the dependencies once the validator starts dropping records.
package graph
