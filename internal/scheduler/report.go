package scheduler

import (
	"slices"
	"strings"
	"time"

	"github.com/vk/plugstrap/internal/plugin"
)

// Outcome is what happened to one plugin during a run.
type Outcome struct {
	Domain string
	State  plugin.State
	// Err is a *plugin.NotifyError, or wraps plugin.ErrInitTimeout or the
	// context's error.
	Err error
	// Order is the 1-based position at which the plugin was notified; zero
	// when it never was.
	Order    int
	Started  time.Time
	Finished time.Time
	// Waited is the time spent waiting for dependencies.
	Waited time.Duration
}

// Report collects the outcomes of a run, sorted by domain.
type Report struct {
	RunID    string
	Outcomes []Outcome
	Duration time.Duration
}

func newReport(runID string, records []*plugin.Record) *Report {
	r := &Report{RunID: runID, Outcomes: make([]Outcome, len(records))}
	for i, rec := range records {
		r.Outcomes[i] = Outcome{Domain: rec.Domain, State: plugin.Pending}
	}
	return r
}

// Outcome returns the outcome for a domain.
func (r *Report) Outcome(domain string) (Outcome, bool) {
	domain = plugin.NormalizeDomain(domain)
	i, ok := slices.BinarySearchFunc(r.Outcomes, domain, func(o Outcome, d string) int {
		return strings.Compare(o.Domain, d)
	})
	if !ok {
		return Outcome{}, false
	}
	return r.Outcomes[i], true
}

// Failed returns the plugins that did not initialize, sorted by domain.
func (r *Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.State == plugin.Failed {
			out = append(out, o)
		}
	}
	return out
}

// Succeeded returns the plugins that initialized, in notification order.
func (r *Report) Succeeded() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.State == plugin.Done {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b Outcome) int { return a.Order - b.Order })
	return out
}
