package testutil

import (
	"github.com/vk/plugstrap/internal/plugin"
	"github.com/vk/plugstrap/internal/registry"
)

// Probe is the handle NewRegistry gives every record. The Recorder notifier
// uses it to tell plugins apart.
type Probe struct {
	Domain string
}

// NewRegistry builds a registry from a domain -> dependencies map. Records
// get a *Probe handle and are not linked; call graph.PopulateDependents
// when the test needs dependents.
func NewRegistry(t TB, deps map[string][]string) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for domain, d := range deps {
		rec, err := plugin.NewRecord(plugin.Descriptor{
			Domain:       domain,
			Version:      "1.0.0",
			Name:         "Plugin " + domain,
			Dependencies: d,
			Handle:       &Probe{Domain: plugin.NormalizeDomain(domain)},
			Source:       "testutil",
		})
		if err != nil {
			t.Fatalf("building record %q: %v", domain, err)
		}
		if err := reg.Register(rec); err != nil {
			t.Fatalf("registering %q: %v", domain, err)
		}
	}
	return reg
}
