package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vk/plugstrap/internal/discovery"
	"github.com/vk/plugstrap/internal/handlers"
	"github.com/vk/plugstrap/internal/plugin"
	"github.com/vk/plugstrap/internal/scheduler"
	"github.com/vk/plugstrap/internal/testutil"
)

// HarnessResult is what RunAppTest observed.
type HarnessResult struct {
	App       *App
	Report    *scheduler.Report
	Err       error
	LogOutput string
	Root      string
}

// RunAppTest writes files into a temporary plugins directory, discovers
// them with the given handler modules and runs the full pipeline with debug
// logging. A nil notifier selects plugin.Dispatcher.
func RunAppTest(t *testing.T, files map[string]string, notifier plugin.Notifier, modules ...handlers.Module) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}

	cfg, err := NewConfig(Config{
		PluginsPath: root,
		LogLevel:    "debug",
		LogFormat:   "text",
		InitTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("building config: %v", err)
	}

	logBuffer := &testutil.SafeBuffer{}
	source := &discovery.HCLSource{Root: root, Handlers: handlers.New(modules...)}
	testApp := NewApp(logBuffer, cfg, source, notifier)

	t.Cleanup(func() {
		if os.Getenv("PLUGSTRAP_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	report, err := testApp.Run(context.Background())
	return &HarnessResult{
		App:       testApp,
		Report:    report,
		Err:       err,
		LogOutput: logBuffer.String(),
		Root:      root,
	}
}
