// Package resource gives every plugin domain its own read-only file space.
//
// A domain's resources live under a root directory, by default the
// directory its manifest was found in. Resources are addressed by a
// Location, the pair (domain, slash-separated path), and resolved through
// the Master that owns one Manager per domain.
package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/vk/plugstrap/internal/fsutil"
	"github.com/vk/plugstrap/internal/plugin"
)

// ErrUnknownDomain is returned when a location names a domain without a
// resource manager. It matches fs.ErrNotExist.
var ErrUnknownDomain = fmt.Errorf("no resource manager for domain: %w", fs.ErrNotExist)

// Location names one resource of one domain.
type Location struct {
	Domain string
	Path   string
}

// ParseLocation parses "domain:path/to/file". The domain is normalized.
func ParseLocation(s string) (Location, error) {
	domain, path, ok := strings.Cut(s, ":")
	domain = plugin.NormalizeDomain(domain)
	if !ok || domain == "" || !fs.ValidPath(path) {
		return Location{}, fmt.Errorf("invalid resource location %q: want domain:path", s)
	}
	return Location{Domain: domain, Path: path}, nil
}

// String returns "domain:path".
func (l Location) String() string { return l.Domain + ":" + l.Path }

// Manager serves the resources of a single domain. It implements fs.FS and
// fs.ReadFileFS, so it can be handed to anything that reads from an fs.FS.
type Manager struct {
	Domain string
	Root   string
	fsys   fs.FS
}

// NewManager serves the files under root for domain.
func NewManager(domain, root string) *Manager {
	return newManager(domain, root, os.DirFS(root))
}

func newManager(domain, root string, fsys fs.FS) *Manager {
	return &Manager{Domain: plugin.NormalizeDomain(domain), Root: root, fsys: fsys}
}

// Open implements fs.FS.
func (m *Manager) Open(name string) (fs.File, error) {
	return m.fsys.Open(name)
}

// ReadFile implements fs.ReadFileFS.
func (m *Manager) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(m.fsys, name)
}

// Exists reports whether name is a regular file of this domain.
func (m *Manager) Exists(name string) bool {
	info, err := fs.Stat(m.fsys, name)
	return err == nil && !info.IsDir()
}

// Location returns the location of name within this domain.
func (m *Manager) Location(name string) Location {
	return Location{Domain: m.Domain, Path: name}
}

// Locations lists the domain's resources accepted by match (nil accepts
// all), in lexical order. A root that does not exist has no resources.
func (m *Manager) Locations(match func(path string) bool) ([]Location, error) {
	paths, err := fsutil.FindFilesFS(m.fsys, match)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing resources of '%s': %w", m.Domain, err)
	}
	locs := make([]Location, len(paths))
	for i, p := range paths {
		locs[i] = m.Location(p)
	}
	return locs, nil
}

// Master owns the resource manager of every domain. It is safe for
// concurrent use.
type Master struct {
	mu       sync.RWMutex
	managers map[string]*Manager
}

// NewMaster creates a master without managers.
func NewMaster() *Master {
	return &Master{managers: make(map[string]*Manager)}
}

// Create registers a manager for domain rooted at root. A domain can only
// be created once; a second attempt wraps plugin.ErrDuplicateDomain.
func (m *Master) Create(domain, root string) (*Manager, error) {
	return m.add(NewManager(domain, root))
}

func (m *Master) add(mgr *Manager) (*Manager, error) {
	if mgr.Domain == "" {
		return nil, fmt.Errorf("resource manager: %w", plugin.ErrInvalidDomain)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.managers[mgr.Domain]; ok {
		return nil, fmt.Errorf("resource domain '%s' (root %s) already served from %s: %w",
			mgr.Domain, mgr.Root, existing.Root, plugin.ErrDuplicateDomain)
	}
	m.managers[mgr.Domain] = mgr
	return mgr, nil
}

// Get returns the manager of domain, case-insensitively.
func (m *Master) Get(domain string) (*Manager, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mgr, ok := m.managers[plugin.NormalizeDomain(domain)]
	return mgr, ok
}

// Domains returns the domains with a manager, sorted.
func (m *Master) Domains() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	domains := make([]string, 0, len(m.managers))
	for d := range m.managers {
		domains = append(domains, d)
	}
	slices.Sort(domains)
	return domains
}

// Open resolves loc to the owning domain's manager and opens it.
func (m *Master) Open(loc Location) (fs.File, error) {
	mgr, ok := m.Get(loc.Domain)
	if !ok {
		return nil, fmt.Errorf("opening %s: %w", loc, ErrUnknownDomain)
	}
	return mgr.Open(loc.Path)
}

// ReadFile resolves loc and reads it whole.
func (m *Master) ReadFile(loc Location) ([]byte, error) {
	mgr, ok := m.Get(loc.Domain)
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", loc, ErrUnknownDomain)
	}
	return mgr.ReadFile(loc.Path)
}

// Locations lists the resources of every domain accepted by match, ordered
// by domain then path.
func (m *Master) Locations(match func(path string) bool) ([]Location, error) {
	var all []Location
	for _, domain := range m.Domains() {
		mgr, _ := m.Get(domain)
		locs, err := mgr.Locations(match)
		if err != nil {
			return nil, err
		}
		all = append(all, locs...)
	}
	return all, nil
}
