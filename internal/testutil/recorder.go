package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/plugstrap/internal/plugin"
)

// Recorder is a plugin.Notifier for scheduler tests. It records when each
// plugin was initialized and can be told to sleep, fail, panic or block for
// specific domains.
type Recorder struct {
	mu      sync.Mutex
	records map[string]*ExecutionRecord
	events  map[string]plugin.Event
	order   int

	// Sleep is applied to every notify call.
	Sleep time.Duration
	// Fail maps a domain to the error its notify call returns.
	Fail map[string]error
	// Panic lists domains whose notify call panics.
	Panic map[string]bool
	// Block maps a domain to a channel its notify call waits on.
	Block map[string]chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		records: make(map[string]*ExecutionRecord),
		events:  make(map[string]plugin.Event),
		Fail:    make(map[string]error),
		Panic:   make(map[string]bool),
		Block:   make(map[string]chan struct{}),
	}
}

// Notify implements plugin.Notifier.
func (r *Recorder) Notify(ctx context.Context, handle any, ev plugin.Event) error {
	probe, ok := handle.(*Probe)
	if !ok {
		return fmt.Errorf("recorder: unexpected handle %T", handle)
	}

	r.mu.Lock()
	r.order++
	rec := &ExecutionRecord{Order: r.order, Start: time.Now()}
	r.records[probe.Domain] = rec
	r.events[probe.Domain] = ev
	block := r.Block[probe.Domain]
	failErr := r.Fail[probe.Domain]
	shouldPanic := r.Panic[probe.Domain]
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	if r.Sleep > 0 {
		time.Sleep(r.Sleep)
	}

	r.mu.Lock()
	rec.End = time.Now()
	r.mu.Unlock()

	if shouldPanic {
		panic("recorder: panic requested for " + probe.Domain)
	}
	return failErr
}

// Record returns the execution record for a domain.
func (r *Recorder) Record(domain string) (ExecutionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[domain]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *rec, true
}

// Event returns the event a domain was notified with.
func (r *Recorder) Event(domain string) (plugin.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[domain]
	return ev, ok
}

// Count returns how many notify calls were made.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
