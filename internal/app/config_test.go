package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/plugstrap/internal/scheduler"
	"github.com/vk/plugstrap/internal/validate"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := NewConfig(Config{PluginsPath: "plugins"})
		require.NoError(t, err)
		assert.Equal(t, "plugins", cfg.MetadataPath)
		assert.Equal(t, scheduler.DefaultTimeout, cfg.InitTimeout)
		assert.Equal(t, validate.PruneCascade, cfg.PrunePolicy)
		assert.Equal(t, TraceNone, cfg.TraceExporter)
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		cfg, err := NewConfig(Config{
			PluginsPath:   "plugins",
			MetadataPath:  "meta",
			InitTimeout:   time.Second,
			PrunePolicy:   validate.PruneSinglePass,
			TraceExporter: TraceStdout,
		})
		require.NoError(t, err)
		assert.Equal(t, "meta", cfg.MetadataPath)
		assert.Equal(t, time.Second, cfg.InitTimeout)
	})

	for name, cfg := range map[string]Config{
		"missing path":     {},
		"negative timeout": {PluginsPath: "p", InitTimeout: -time.Second},
		"unknown policy":   {PluginsPath: "p", PrunePolicy: validate.PrunePolicy(7)},
		"unknown exporter": {PluginsPath: "p", TraceExporter: "jaeger"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfig(cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = newLogger("nonsense", "text", &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestSchedulerOptions(t *testing.T) {
	cfg, err := NewConfig(Config{PluginsPath: "p", DepthAwareTimeout: true})
	require.NoError(t, err)
	a := NewApp(&bytes.Buffer{}, cfg, nil, nil)
	assert.Len(t, a.schedulerOptions(), 2)

	cfg.DepthAwareTimeout = false
	assert.Len(t, a.schedulerOptions(), 1)
}
