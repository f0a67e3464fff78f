package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/plugstrap/internal/scheduler"
	"github.com/vk/plugstrap/internal/validate"
)

// Trace exporters understood by the telemetry package.
const (
	TraceNone   = "none"
	TraceStdout = "stdout"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PluginsPath  string // plugin manifests
	MetadataPath string // meta.json / meta.hcl files; defaults to PluginsPath

	LogFormat string
	LogLevel  string

	// InitTimeout bounds how long each plugin waits for its dependencies.
	InitTimeout time.Duration
	// DepthAwareTimeout scales InitTimeout by each plugin's depth.
	DepthAwareTimeout bool
	PrunePolicy       validate.PrunePolicy
	TraceExporter     string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PluginsPath == "" {
		return nil, errors.New("PluginsPath is a required configuration field and cannot be empty")
	}
	if cfg.MetadataPath == "" {
		cfg.MetadataPath = cfg.PluginsPath
	}

	switch {
	case cfg.InitTimeout == 0:
		cfg.InitTimeout = scheduler.DefaultTimeout
	case cfg.InitTimeout < 0:
		return nil, fmt.Errorf("InitTimeout must be positive, got %s", cfg.InitTimeout)
	}

	if cfg.PrunePolicy.String() == "unknown" {
		return nil, fmt.Errorf("unknown prune policy %d", cfg.PrunePolicy)
	}

	switch cfg.TraceExporter {
	case "":
		cfg.TraceExporter = TraceNone
	case TraceNone, TraceStdout:
	default:
		return nil, fmt.Errorf("unknown trace exporter %q: must be '%s' or '%s'", cfg.TraceExporter, TraceNone, TraceStdout)
	}

	return &cfg, nil
}
