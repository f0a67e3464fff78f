package registry

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vk/plugstrap/internal/plugin"
)

// ErrSealed is returned when registering into a sealed registry.
var ErrSealed = errors.New("registry is sealed")

// Registry maps normalized domains to plugin records. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*plugin.Record
	sealed  atomic.Bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		records: make(map[string]*plugin.Record),
	}
}

// Register inserts a record. A domain that is already present yields an
// error wrapping plugin.ErrDuplicateDomain and leaves the registry unchanged.
func (r *Registry) Register(rec *plugin.Record) error {
	if rec == nil {
		return errors.New("registry: nil record")
	}
	if r.sealed.Load() {
		return fmt.Errorf("registering '%s': %w", rec.Domain, ErrSealed)
	}
	domain := plugin.NormalizeDomain(rec.Domain)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.records[domain]; ok {
		return fmt.Errorf("domain '%s' (from %s) is already used by %s: %w",
			domain, sourceOf(rec), sourceOf(existing), plugin.ErrDuplicateDomain)
	}
	r.records[domain] = rec
	return nil
}

// Lookup returns the record for a domain, case-insensitively.
func (r *Registry) Lookup(domain string) (*plugin.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[plugin.NormalizeDomain(domain)]
	return rec, ok
}

// Contains reports whether a domain is registered.
func (r *Registry) Contains(domain string) bool {
	_, ok := r.Lookup(domain)
	return ok
}

// Remove deletes a record. It reports whether the domain was present and
// removed; a sealed registry removes nothing.
func (r *Registry) Remove(domain string) bool {
	domain = plugin.NormalizeDomain(domain)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return false
	}
	if _, ok := r.records[domain]; !ok {
		return false
	}
	delete(r.records, domain)
	return true
}

// All returns a lazy sequence over the current records in domain order.
// Each iteration takes a fresh look at the registry, so the sequence can be
// ranged over again after the registry has changed. Every pass sorts the
// domains; callers that iterate in a loop over a large registry should take
// Domains once instead.
func (r *Registry) All() iter.Seq[*plugin.Record] {
	return func(yield func(*plugin.Record) bool) {
		for _, domain := range r.Domains() {
			rec, ok := r.Lookup(domain)
			if !ok {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Domains returns the registered domains, sorted.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	domains := make([]string, 0, len(r.records))
	for d := range r.records {
		domains = append(domains, d)
	}
	slices.Sort(domains)
	return domains
}

// Len returns the number of registered records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// AttachMetadata attaches enrichment to a registered domain. Unknown domains
// and sealed registries are ignored; the return value reports whether
// anything was attached.
func (r *Registry) AttachMetadata(domain string, md *plugin.Metadata) bool {
	if md == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return false
	}

	rec, ok := r.records[plugin.NormalizeDomain(domain)]
	if !ok {
		return false
	}
	rec.Metadata = md
	return true
}

// Seal makes the registry read-only: Register fails with ErrSealed, Remove
// and AttachMetadata become no-ops. It returns true if this call changed the
// state.
func (r *Registry) Seal() bool { return !r.sealed.Swap(true) }

// Sealed reports whether the registry has been sealed.
func (r *Registry) Sealed() bool { return r.sealed.Load() }

func sourceOf(rec *plugin.Record) string {
	if rec.Source == "" {
		return "<unknown source>"
	}
	return rec.Source
}
