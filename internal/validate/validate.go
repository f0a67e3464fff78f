package validate

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/vk/plugstrap/internal/ctxlog"
	"github.com/vk/plugstrap/internal/graph"
	"github.com/vk/plugstrap/internal/plugin"
	"github.com/vk/plugstrap/internal/registry"
)

// PrunePolicy controls how often the missing-dependency pass runs.
type PrunePolicy int

const (
	// PruneCascade repeats the pass until no record is removed.
	PruneCascade PrunePolicy = iota
	// PruneSinglePass runs the pass exactly once. A record whose dependency
	// was removed in that pass survives until the scheduler times it out.
	PruneSinglePass
)

// String returns the flag spelling of the policy.
func (p PrunePolicy) String() string {
	switch p {
	case PruneCascade:
		return "cascade"
	case PruneSinglePass:
		return "single"
	default:
		return "unknown"
	}
}

// ParsePrunePolicy parses the flag spelling of a policy.
func ParsePrunePolicy(s string) (PrunePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cascade", "":
		return PruneCascade, nil
	case "single", "single-pass":
		return PruneSinglePass, nil
	default:
		return 0, fmt.Errorf("unknown prune policy %q: must be 'cascade' or 'single'", s)
	}
}

// Removal describes a record dropped by the missing-dependency pass.
type Removal struct {
	Domain string
	// Missing lists the dependencies that were not registered.
	Missing []string
	// Round is the 1-based pass that removed the record.
	Round int
}

// Validator runs both validation passes.
type Validator struct {
	Policy PrunePolicy
}

// New creates a validator with the given policy.
func New(policy PrunePolicy) *Validator {
	return &Validator{Policy: policy}
}

// Validate prunes records with missing dependencies, then checks the rest
// for cycles. Only a cycle produces an error.
func (v *Validator) Validate(ctx context.Context, reg *registry.Registry) ([]Removal, error) {
	removals := v.PruneMissing(ctx, reg)
	if err := DetectCycles(ctx, reg); err != nil {
		return removals, err
	}
	return removals, nil
}

// PruneMissing removes every record that depends on an unregistered domain.
// Records are marked during a full scan and removed afterwards, so the
// outcome of one pass does not depend on iteration order.
func (v *Validator) PruneMissing(ctx context.Context, reg *registry.Registry) []Removal {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	var removals []Removal
	for round := 1; ; round++ {
		marked := scanMissing(ctx, reg, round)
		for _, r := range marked {
			if rec, ok := reg.Lookup(r.Domain); ok {
				reg.Remove(rec.Domain)
				graph.Detach(reg, rec)
			}
		}
		removals = append(removals, marked...)

		if len(marked) == 0 || v.Policy == PruneSinglePass {
			break
		}
		logger.Debug("Missing-dependency pass removed plugins, re-checking.", "round", round, "removed", len(marked))
	}

	logger.Info("Finished checking plugin dependencies.",
		"removed", len(removals), "remaining", reg.Len(), "policy", v.Policy.String(), "duration", time.Since(start))
	return removals
}

func scanMissing(ctx context.Context, reg *registry.Registry, round int) []Removal {
	logger := ctxlog.FromContext(ctx)

	var marked []Removal
	for rec := range reg.All() {
		var missing []string
		for _, dep := range rec.Dependencies {
			if strings.TrimSpace(dep) == "" || reg.Contains(dep) {
				continue
			}
			logger.Warn("Missing plugin dependency, removing dependent plugin to avoid issues.",
				"domain", rec.Domain, "dependency", dep, "error", plugin.ErrMissingDependency)
			missing = append(missing, dep)
		}
		if len(missing) > 0 {
			marked = append(marked, Removal{Domain: rec.Domain, Missing: missing, Round: round})
		}
	}
	return marked
}

// CycleError reports a plugin that transitively depends on itself.
type CycleError struct {
	// Domain is the plugin the cycle was found from.
	Domain string
	// Path is the dependency chain from Domain back to itself.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected for plugin with domain name '%s': %s",
		e.Domain, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return plugin.ErrCircularDependency }

// DetectCycles walks, for every record with dependencies, the full
// transitive closure of its dependencies (never its dependents). Reaching
// the starting domain again is a cycle. Records are visited in domain order,
// so the reported domain is deterministic.
func DetectCycles(ctx context.Context, reg *registry.Registry) error {
	logger := ctxlog.FromContext(ctx)

	for rec := range reg.All() {
		if len(rec.Dependencies) == 0 {
			continue
		}
		if path := findCycle(reg, rec); path != nil {
			err := &CycleError{Domain: rec.Domain, Path: path}
			logger.Error("Circular plugin dependency.", "domain", rec.Domain, "path", strings.Join(path, " -> "))
			return err
		}
	}
	logger.Debug("No circular dependencies found.", "plugins", reg.Len())
	return nil
}

// findCycle returns the path root -> ... -> root, or nil. Each domain is
// expanded at most once per root, which also keeps cycles that do not pass
// through root from looping forever.
func findCycle(reg *registry.Registry, root *plugin.Record) []string {
	visited := make(map[string]bool)
	path := []string{root.Domain}

	var walk func(rec *plugin.Record) bool
	walk = func(rec *plugin.Record) bool {
		for _, dep := range rec.Dependencies {
			next, ok := reg.Lookup(dep)
			if !ok {
				continue
			}
			if next.Domain == root.Domain {
				path = append(path, next.Domain)
				return true
			}
			if visited[next.Domain] {
				continue
			}
			visited[next.Domain] = true

			path = append(path, next.Domain)
			if walk(next) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}

	if walk(root) {
		return slices.Clone(path)
	}
	return nil
}
