package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/plugstrap/internal/ctxlog"
	"github.com/vk/plugstrap/internal/graph"
	"github.com/vk/plugstrap/internal/metadata"
	"github.com/vk/plugstrap/internal/plugin"
	"github.com/vk/plugstrap/internal/scheduler"
)

// ErrNoSource is returned by Run when the app was built without a discovery source.
var ErrNoSource = errors.New("no plugin source configured")

// Run brings up every plugin: discover, register, link dependents, validate,
// attach resources and metadata, then initialize. Structural problems (discovery errors,
// duplicate domains, cycles) abort the run with an error; failures of
// individual plugins are logged and reported. Run is meant to be called once.
func (a *App) Run(ctx context.Context) (*scheduler.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.source == nil {
		return nil, ErrNoSource
	}

	descriptors, err := a.source.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover plugins: %w", err)
	}
	if err := a.register(ctx, descriptors); err != nil {
		return nil, fmt.Errorf("failed to register plugins: %w", err)
	}

	graph.PopulateDependents(ctx, a.registry)

	removed, err := a.validator.Validate(ctx, a.registry)
	a.removed = removed
	if err != nil {
		return nil, fmt.Errorf("plugin dependency validation failed: %w", err)
	}

	if err := a.attachResources(ctx); err != nil {
		return nil, fmt.Errorf("failed to attach plugin resources: %w", err)
	}
	a.attachMetadata(ctx)

	a.registry.Seal()
	a.logger.Info("Plugin graph ready.", "plugins", a.registry.Len(), "roots", graph.Roots(a.registry))

	report, err := scheduler.New(a.notifier, a.schedulerOptions()...).Run(ctx, a.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize plugins: %w", err)
	}
	for _, out := range report.Failed() {
		a.logger.Warn("Plugin did not initialize.", "domain", out.Domain, "error", out.Err)
	}

	a.logger.Debug("App.Run method finished.")
	return report, nil
}

func (a *App) register(ctx context.Context, descriptors []plugin.Descriptor) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Registering plugins...", "discovered", len(descriptors))
	start := time.Now()

	for _, d := range descriptors {
		rec, err := plugin.NewRecord(d)
		if err != nil {
			return fmt.Errorf("plugin from %s: %w", d.Source, err)
		}
		if err := a.registry.Register(rec); err != nil {
			return err
		}
	}

	logger.Info("Finished registering plugins.", "plugins", a.registry.Len(), "duration", time.Since(start))
	return nil
}

// attachResources gives every surviving plugin with a resource root its own
// resource manager.
func (a *App) attachResources(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for rec := range a.registry.All() {
		if rec.ResourceRoot == "" {
			continue
		}
		mgr, err := a.resources.Create(rec.Domain, rec.ResourceRoot)
		if err != nil {
			return err
		}
		rec.Resources = mgr
		logger.Debug("Attached plugin resources.", "domain", rec.Domain, "root", rec.ResourceRoot)
	}
	return nil
}

// attachMetadata is best-effort: a metadata directory that cannot be read
// only costs the plugins their descriptions.
func (a *App) attachMetadata(ctx context.Context) {
	if a.config.MetadataPath == "" {
		return
	}
	entries, err := metadata.Load(ctx, a.config.MetadataPath)
	if err != nil {
		a.logger.Warn("Failed to load plugin metadata, continuing without it.", "error", err)
		return
	}
	attached := metadata.Apply(ctx, a.registry, entries)
	a.logger.Debug("Attached plugin metadata.", "attached", attached, "entries", len(entries))
}

func (a *App) schedulerOptions() []scheduler.Option {
	opts := []scheduler.Option{scheduler.WithTimeout(a.config.InitTimeout)}
	if a.config.DepthAwareTimeout {
		depths := graph.Depth(a.registry)
		opts = append(opts, scheduler.WithTimeoutFunc(scheduler.DepthTimeout(a.config.InitTimeout, depths)))
	}
	return opts
}
