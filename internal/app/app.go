package app

import (
	"io"
	"log/slog"

	"github.com/vk/plugstrap/internal/discovery"
	"github.com/vk/plugstrap/internal/plugin"
	"github.com/vk/plugstrap/internal/registry"
	"github.com/vk/plugstrap/internal/resource"
	"github.com/vk/plugstrap/internal/validate"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	source    discovery.Source
	notifier  plugin.Notifier
	registry  *registry.Registry
	resources *resource.Master
	validator *validate.Validator
	removed   []validate.Removal
}

// NewApp is the constructor for the main application. It returns an App
// with its own isolated logger and an empty registry. A nil notifier
// selects plugin.Dispatcher.
func NewApp(outW io.Writer, cfg *Config, source discovery.Source, notifier plugin.Notifier) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	if notifier == nil {
		notifier = plugin.Dispatcher{}
	}

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		source:    source,
		notifier:  notifier,
		registry:  registry.New(),
		resources: resource.NewMaster(),
		validator: validate.New(cfg.PrunePolicy),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Resources returns the per-domain resource managers created during Run.
func (a *App) Resources() *resource.Master {
	return a.resources
}

// Removed returns the plugins dropped for missing dependencies during Run.
func (a *App) Removed() []validate.Removal {
	return a.removed
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}
