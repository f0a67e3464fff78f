package graph

import (
	"context"
	"time"

	"github.com/vk/plugstrap/internal/ctxlog"
	"github.com/vk/plugstrap/internal/plugin"
	"github.com/vk/plugstrap/internal/registry"
)

// PopulateDependents rebuilds every record's dependents from the declared
// dependencies: for records A != B, if B depends on A then A gains B as a
// dependent. Dependencies naming unregistered domains are skipped; the
// validator deals with those.
//
// Dependencies are indexed by domain, so the cost is O(n * avg-deps) rather
// than a pairwise scan; the result is the same.
func PopulateDependents(ctx context.Context, reg *registry.Registry) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Populating dependents for all plugins...")
	start := time.Now()

	for rec := range reg.All() {
		rec.ClearDependents()
	}

	edges := 0
	for dependent := range reg.All() {
		for _, dep := range dependent.Dependencies {
			if dep == dependent.Domain {
				continue
			}
			target, ok := reg.Lookup(dep)
			if !ok {
				continue
			}
			target.AddDependent(dependent.Domain)
			edges++
			logger.Debug("Linked dependent.", "domain", target.Domain, "dependent", dependent.Domain)
		}
	}

	logger.Info("Finished populating dependents for all plugins.", "plugins", reg.Len(), "edges", edges, "duration", time.Since(start))
}

// Detach removes rec from the dependents of the records it depends on,
// which are the only ones that can list it.
func Detach(reg *registry.Registry, rec *plugin.Record) {
	for _, dep := range rec.Dependencies {
		if target, ok := reg.Lookup(dep); ok {
			target.RemoveDependent(rec.Domain)
		}
	}
}

// Roots returns the domains of records without dependencies, sorted.
func Roots(reg *registry.Registry) []string {
	var roots []string
	for rec := range reg.All() {
		if len(rec.Dependencies) == 0 {
			roots = append(roots, rec.Domain)
		}
	}
	return roots
}

// Depth returns, per domain, the length of the longest dependency chain
// below it: roots are 0, a plugin depending only on roots is 1, and so on.
// Unregistered dependencies do not count. The graph is expected to be
// acyclic; a cycle is cut where it is first re-entered.
func Depth(reg *registry.Registry) map[string]int {
	depth := make(map[string]int, reg.Len())
	visiting := make(map[string]bool)

	var visit func(rec *plugin.Record) int
	visit = func(rec *plugin.Record) int {
		if d, ok := depth[rec.Domain]; ok {
			return d
		}
		if visiting[rec.Domain] {
			return 0
		}
		visiting[rec.Domain] = true

		d := 0
		for _, dep := range rec.Dependencies {
			next, ok := reg.Lookup(dep)
			if !ok || next.Domain == rec.Domain {
				continue
			}
			d = max(d, visit(next)+1)
		}

		delete(visiting, rec.Domain)
		depth[rec.Domain] = d
		return d
	}

	for rec := range reg.All() {
		visit(rec)
	}
	return depth
}
