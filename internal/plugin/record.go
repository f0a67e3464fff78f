package plugin

import (
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync/atomic"
)

// Descriptor is what a discovery source reports for one plugin.
type Descriptor struct {
	Domain       string
	Version      string
	Name         string
	Dependencies []string
	Handle       any
	// Source is where the descriptor came from (a manifest path, "static", ...).
	Source string
	// ResourceRoot is the directory holding the plugin's resources. Empty
	// means the plugin has none.
	ResourceRoot string
}

// Record is a normalized descriptor plus the reverse edges computed by the
// graph builder.
type Record struct {
	// Domain is the normalized, unique key of the plugin.
	Domain  string
	Version string
	// Name is the human-readable display name.
	Name string
	// Dependencies holds the normalized domains that must initialize first.
	Dependencies []string
	// Handle is the instantiated plugin, handed to the notifier.
	Handle any
	// Metadata is optional enrichment attached after the graph is built.
	Metadata *Metadata
	Source   string
	// ResourceRoot is copied from the descriptor. Resources serves its
	// files once the application has attached them; nil means none.
	ResourceRoot string
	Resources    fs.FS

	dependents map[string]struct{}
	state      atomic.Int32
}

// NormalizeDomain is the case-folding rule used for every domain comparison.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// NewRecord builds a record from a descriptor. Dependencies are normalized,
// de-duplicated and stripped of blank entries, keeping first-seen order.
func NewRecord(d Descriptor) (*Record, error) {
	domain := NormalizeDomain(d.Domain)
	if domain == "" {
		return nil, fmt.Errorf("%w (name %q, source %q)", ErrInvalidDomain, d.Name, d.Source)
	}

	deps := make([]string, 0, len(d.Dependencies))
	for _, dep := range d.Dependencies {
		dep = NormalizeDomain(dep)
		if dep == "" || slices.Contains(deps, dep) {
			continue
		}
		deps = append(deps, dep)
	}

	return &Record{
		Domain:       domain,
		Version:      d.Version,
		Name:         d.Name,
		Dependencies: deps,
		Handle:       d.Handle,
		Source:       d.Source,
		ResourceRoot: d.ResourceRoot,
		dependents:   make(map[string]struct{}),
	}, nil
}

// DependsOn reports whether domain is one of the record's dependencies.
func (r *Record) DependsOn(domain string) bool {
	return slices.Contains(r.Dependencies, NormalizeDomain(domain))
}

// Dependents returns the domains depending on this record, sorted.
func (r *Record) Dependents() []string {
	out := make([]string, 0, len(r.dependents))
	for d := range r.dependents {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// HasDependent reports whether domain depends on this record.
func (r *Record) HasDependent(domain string) bool {
	_, ok := r.dependents[NormalizeDomain(domain)]
	return ok
}

// AddDependent records a reverse edge. A record never lists itself.
func (r *Record) AddDependent(domain string) {
	domain = NormalizeDomain(domain)
	if domain == "" || domain == r.Domain {
		return
	}
	if r.dependents == nil {
		r.dependents = make(map[string]struct{})
	}
	r.dependents[domain] = struct{}{}
}

// RemoveDependent drops a reverse edge.
func (r *Record) RemoveDependent(domain string) {
	delete(r.dependents, NormalizeDomain(domain))
}

// ClearDependents drops every reverse edge.
func (r *Record) ClearDependents() {
	clear(r.dependents)
}

// State atomically returns the record's initialization state.
func (r *Record) State() State {
	return State(r.state.Load())
}

// SetState atomically sets the record's initialization state.
func (r *Record) SetState(s State) {
	r.state.Store(int32(s))
}

// String returns "domain@version".
func (r *Record) String() string {
	if r.Version == "" {
		return r.Domain
	}
	return r.Domain + "@" + r.Version
}
