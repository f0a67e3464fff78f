package latch

import (
	"sort"
	"sync"
)

// Set holds one latch per plugin domain.
type Set struct {
	latches sync.Map // map[string]*Latch
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{}
}

// GetOrCreate returns the latch for domain, creating it with count n if it
// does not exist. Concurrent callers for the same domain all get the same
// latch; n is ignored when the latch already exists.
func (s *Set) GetOrCreate(domain string, n int) *Latch {
	if l, ok := s.latches.Load(domain); ok {
		return l.(*Latch)
	}
	l, _ := s.latches.LoadOrStore(domain, New(n))
	return l.(*Latch)
}

// Get returns the latch for domain, if any.
func (s *Set) Get(domain string) (*Latch, bool) {
	l, ok := s.latches.Load(domain)
	if !ok {
		return nil, false
	}
	return l.(*Latch), true
}

// Len returns the number of latches in the set.
func (s *Set) Len() int {
	n := 0
	s.latches.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Pending returns the domains whose latch has not been released yet, sorted.
func (s *Set) Pending() []string {
	var out []string
	s.latches.Range(func(k, v any) bool {
		if v.(*Latch).Count() > 0 {
			out = append(out, k.(string))
		}
		return true
	})
	sort.Strings(out)
	return out
}

// Clear removes every latch.
func (s *Set) Clear() {
	s.latches.Clear()
}
