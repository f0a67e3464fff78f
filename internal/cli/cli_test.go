package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/plugstrap/internal/app"
	"github.com/vk/plugstrap/internal/validate"
)

func TestParse(t *testing.T) {
	t.Run("positional path and defaults", func(t *testing.T) {
		cfg, exit, err := Parse([]string{"plugins"}, &bytes.Buffer{})
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, &app.Config{
			PluginsPath:   "plugins",
			MetadataPath:  "plugins",
			LogFormat:     "text",
			LogLevel:      "info",
			InitTimeout:   time.Minute,
			PrunePolicy:   validate.PruneCascade,
			TraceExporter: app.TraceNone,
		}, cfg)
	})

	t.Run("all flags", func(t *testing.T) {
		cfg, exit, err := Parse([]string{
			"--plugins", "dir",
			"--metadata", "meta",
			"--log-format", "JSON",
			"--log-level", "debug",
			"--timeout", "5s",
			"--depth-timeout",
			"--prune", "single",
			"--trace", "stdout",
		}, &bytes.Buffer{})
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "dir", cfg.PluginsPath)
		assert.Equal(t, "meta", cfg.MetadataPath)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, 5*time.Second, cfg.InitTimeout)
		assert.True(t, cfg.DepthAwareTimeout)
		assert.Equal(t, validate.PruneSinglePass, cfg.PrunePolicy)
		assert.Equal(t, app.TraceStdout, cfg.TraceExporter)
	})

	t.Run("shorthand flag wins over positional", func(t *testing.T) {
		cfg, _, err := Parse([]string{"-p", "short", "positional"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "short", cfg.PluginsPath)
	})

	t.Run("no path prints usage and exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse(nil, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("help exits cleanly", func(t *testing.T) {
		_, exit, err := Parse([]string{"-h"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.True(t, exit)
	})
}

func TestParse_UsageErrors(t *testing.T) {
	cases := map[string][]string{
		"unknown flag":       {"--nope", "p"},
		"bad log format":     {"--log-format", "xml", "p"},
		"bad log level":      {"--log-level", "loud", "p"},
		"bad timeout":        {"--timeout", "soon", "p"},
		"negative timeout":   {"--timeout", "-1s", "p"},
		"bad prune policy":   {"--prune", "sometimes", "p"},
		"bad trace exporter": {"--trace", "jaeger", "p"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, exit, err := Parse(args, &bytes.Buffer{})
			assert.False(t, exit)
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
