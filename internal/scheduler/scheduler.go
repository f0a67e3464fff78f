package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/plugstrap/internal/ctxlog"
	"github.com/vk/plugstrap/internal/latch"
	"github.com/vk/plugstrap/internal/plugin"
	"github.com/vk/plugstrap/internal/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds how long a plugin waits for its dependencies.
const DefaultTimeout = time.Minute

const instrumentationName = "plugstrap.scheduler"

// Misuse errors returned by Run.
var (
	ErrNilRegistry = errors.New("scheduler: registry is nil")
	ErrNilNotifier = errors.New("scheduler: notifier is nil")
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTimeout sets the per-plugin wait timeout. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTimeoutFunc computes the wait timeout per plugin. It takes precedence
// over WithTimeout; a non-positive result falls back to it.
func WithTimeoutFunc(fn func(*plugin.Record) time.Duration) Option {
	return func(s *Scheduler) { s.timeoutFor = fn }
}

// WithTracerProvider sets the provider spans are created from. Defaults to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Scheduler) {
		if tp != nil {
			s.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// DepthTimeout returns a timeout function that scales base by the plugin's
// depth in the dependency graph: base * (depth + 1). Plugins missing from
// depths get base.
func DepthTimeout(base time.Duration, depths map[string]int) func(*plugin.Record) time.Duration {
	return func(rec *plugin.Record) time.Duration {
		return base * time.Duration(depths[rec.Domain]+1)
	}
}

// Scheduler runs the initialization of a registry's plugins. It holds only
// configuration, so one scheduler may run several registries, even
// concurrently.
type Scheduler struct {
	notifier   plugin.Notifier
	timeout    time.Duration
	timeoutFor func(*plugin.Record) time.Duration
	tracer     trace.Tracer
}

// runState is the state of one Run call.
type runState struct {
	reg     *registry.Registry
	latches *latch.Set
	ev      plugin.Event
	seq     atomic.Int64
}

// New creates a scheduler that delivers the initialization event through
// notifier.
func New(notifier plugin.Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		notifier: notifier,
		timeout:  DefaultTimeout,
		tracer:   otel.GetTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run initializes every plugin in reg and returns once all of them have
// either initialized, failed or timed out. Per-plugin failures are recorded
// in the report; the returned error is only set for misuse.
//
// Dependents must have been populated and the graph validated beforehand:
// a cycle makes every plugin on it wait for its full timeout.
func (s *Scheduler) Run(ctx context.Context, reg *registry.Registry) (*Report, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if s.notifier == nil {
		return nil, ErrNilNotifier
	}

	runID := uuid.NewString()
	ctx, logger := ctxlog.With(ctx, "run_id", runID)
	if err := initMetrics(); err != nil {
		logger.Warn("Failed to create scheduler metrics, continuing without them.", "error", err)
	}

	records := slices.Collect(reg.All())
	ctx, span := s.tracer.Start(ctx, "scheduler.Run",
		trace.WithAttributes(
			attribute.String("plugstrap.run_id", runID),
			attribute.Int("plugstrap.plugins", len(records)),
		),
	)
	defer span.End()

	logger.Info("Initializing plugins...", "plugins", len(records))
	start := time.Now()

	r := &runState{
		reg:     reg,
		latches: latch.NewSet(),
		ev:      plugin.Event{Kind: plugin.InitializationEvent, RunID: runID, Time: start, Plugins: reg},
	}
	for _, rec := range records {
		rec.SetState(plugin.Pending)
		r.latches.GetOrCreate(rec.Domain, len(rec.Dependencies))
	}
	report := newReport(runID, records)

	var g errgroup.Group
	for i, rec := range records {
		out := &report.Outcomes[i]
		g.Go(func() error {
			s.initialize(ctx, r, rec, out)
			return nil
		})
	}
	_ = g.Wait()
	r.latches.Clear()

	report.Duration = time.Since(start)
	failed := report.Failed()
	span.SetAttributes(attribute.Int("plugstrap.failed", len(failed)))
	if len(failed) > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d plugin(s) failed to initialize", len(failed)))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	if runLatency != nil {
		runLatency.Record(ctx, report.Duration.Seconds())
	}

	logger.Info("Finished initializing all plugins.",
		"initialized", len(records)-len(failed), "failed", len(failed), "duration", report.Duration)
	return report, nil
}

// initialize is the body of one plugin's task. Whatever happens, the
// plugin's dependents are counted down on return.
func (s *Scheduler) initialize(ctx context.Context, r *runState, rec *plugin.Record, out *Outcome) {
	ctx, logger := ctxlog.With(ctx, "domain", rec.Domain)
	ctx, span := s.tracer.Start(ctx, "plugin.initialize",
		trace.WithAttributes(
			attribute.String("plugstrap.domain", rec.Domain),
			attribute.String("plugstrap.version", rec.Version),
			attribute.Int("plugstrap.dependencies", len(rec.Dependencies)),
		),
	)
	defer span.End()
	defer r.release(ctx, rec)

	attrs := metric.WithAttributes(attribute.String("domain", rec.Domain))
	out.Started = time.Now()

	if len(rec.Dependencies) > 0 {
		rec.SetState(plugin.Waiting)
		timeout := s.timeoutOf(rec)
		logger.Debug("Waiting for plugin dependencies.", "dependencies", rec.Dependencies, "timeout", timeout)

		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		err := r.latches.GetOrCreate(rec.Domain, len(rec.Dependencies)).Wait(waitCtx)
		cancel()
		out.Waited = time.Since(out.Started)

		if err != nil {
			if ctx.Err() == nil {
				err = fmt.Errorf("%w after %s", plugin.ErrInitTimeout, timeout)
				if timedOut != nil {
					timedOut.Add(ctx, 1, attrs)
				}
			} else {
				err = fmt.Errorf("waiting for plugin dependencies: %w", ctx.Err())
			}
			logger.Error("Plugin dependencies did not finish, skipping initialization.",
				"pending", pendingDependencies(r.reg, rec), "waited", out.Waited, "error", err)
			s.fail(ctx, span, rec, out, err)
			return
		}
	}

	rec.SetState(plugin.Running)
	out.Order = int(r.seq.Add(1))
	logger.Debug("Notifying plugin.", "order", out.Order)

	err := s.notify(ctx, rec, r.ev)
	out.Finished = time.Now()
	elapsed := out.Finished.Sub(out.Started) - out.Waited
	if initLatency != nil {
		initLatency.Record(ctx, elapsed.Seconds(), attrs)
	}

	if err != nil {
		err = &plugin.NotifyError{Domain: rec.Domain, Err: err}
		logger.Error("Plugin failed to initialize.", "error", err)
		s.fail(ctx, span, rec, out, err)
		return
	}

	rec.SetState(plugin.Done)
	out.State = plugin.Done
	if initialized != nil {
		initialized.Add(ctx, 1, attrs)
	}
	span.SetStatus(codes.Ok, "")
	logger.Info("Plugin initialized.", "duration", elapsed)
}

// notify calls the notifier, turning a panic into an error.
func (s *Scheduler) notify(ctx context.Context, rec *plugin.Record, ev plugin.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s: %v", ev.Kind, r)
		}
	}()
	return s.notifier.Notify(ctx, rec.Handle, ev)
}

func (s *Scheduler) fail(ctx context.Context, span trace.Span, rec *plugin.Record, out *Outcome, err error) {
	rec.SetState(plugin.Failed)
	out.State = plugin.Failed
	out.Err = err
	if out.Finished.IsZero() {
		out.Finished = time.Now()
	}
	if failures != nil {
		failures.Add(ctx, 1, metric.WithAttributes(attribute.String("domain", rec.Domain)))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// release counts down the latch of every dependent of rec.
func (r *runState) release(ctx context.Context, rec *plugin.Record) {
	for _, domain := range rec.Dependents() {
		dependent, ok := r.reg.Lookup(domain)
		if !ok {
			continue
		}
		r.latches.GetOrCreate(dependent.Domain, len(dependent.Dependencies)).CountDown()
		ctxlog.FromContext(ctx).Debug("Released dependent.", "dependent", dependent.Domain)
	}
}

func (s *Scheduler) timeoutOf(rec *plugin.Record) time.Duration {
	if s.timeoutFor != nil {
		if d := s.timeoutFor(rec); d > 0 {
			return d
		}
	}
	return s.timeout
}

// pendingDependencies lists the dependencies of rec that have not reached a
// terminal state, including those that are not registered at all.
func pendingDependencies(reg *registry.Registry, rec *plugin.Record) []string {
	var pending []string
	for _, dep := range rec.Dependencies {
		d, ok := reg.Lookup(dep)
		if !ok || !d.State().Terminal() {
			pending = append(pending, dep)
		}
	}
	return pending
}
