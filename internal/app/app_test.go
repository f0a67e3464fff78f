package app_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/plugstrap/internal/app"
	"github.com/vk/plugstrap/internal/discovery"
	"github.com/vk/plugstrap/internal/handlers"
	"github.com/vk/plugstrap/internal/plugin"
	"github.com/vk/plugstrap/internal/resource"
	"github.com/vk/plugstrap/internal/testutil"
)

// probeModule registers "probe.<domain>" handlers returning testutil probes.
type probeModule []string

func (m probeModule) Register(h *handlers.Handlers) {
	for _, domain := range m {
		h.Register("probe."+domain, func() any { return &testutil.Probe{Domain: domain} })
	}
}

var probes = probeModule{"a", "b", "c", "d"}

func TestRun_InitializesInDependencyOrder(t *testing.T) {
	rec := testutil.NewRecorder()
	files := map[string]string{
		"core/plugin.hcl": `
			plugin "a" {
			  version = "1.0.0"
			  handler = "probe.a"
			}
		`,
		"mid/plugins.hcl": `
			plugin "b" {
			  depends_on = ["a"]
			  handler    = "probe.b"
			}
			plugin "c" {
			  depends_on = ["a"]
			  handler    = "probe.c"
			}
		`,
		"top/plugin.hcl": `
			plugin "d" {
			  depends_on = ["b", "c"]
			  handler    = "probe.d"
			}
		`,
	}

	result := app.RunAppTest(t, files, rec, probes)
	require.NoError(t, result.Err)
	require.Len(t, result.Report.Succeeded(), 4)

	a, _ := rec.Record("a")
	d, _ := rec.Record("d")
	for _, mid := range []string{"b", "c"} {
		r, ok := rec.Record(mid)
		require.True(t, ok)
		assert.Greater(t, r.Order, a.Order)
		assert.Less(t, r.Order, d.Order)
	}
	assert.True(t, result.App.Registry().Sealed())
	assert.Contains(t, result.LogOutput, "Finished initializing all plugins.")
}

func TestRun_PrunesMissingDependencies(t *testing.T) {
	rec := testutil.NewRecorder()
	files := map[string]string{
		"plugins.hcl": `
			plugin "a" { handler = "probe.a" }
			plugin "b" {
			  depends_on = ["ghost"]
			  handler    = "probe.b"
			}
			plugin "c" {
			  depends_on = ["b"]
			  handler    = "probe.c"
			}
		`,
	}

	result := app.RunAppTest(t, files, rec, probes)
	require.NoError(t, result.Err)

	assert.Equal(t, []string{"a"}, result.App.Registry().Domains())
	require.Len(t, result.App.Removed(), 2)
	assert.Equal(t, "b", result.App.Removed()[0].Domain)
	assert.Equal(t, 1, rec.Count())

	assert.Contains(t, result.LogOutput, "Missing plugin dependency")
	assert.Contains(t, result.LogOutput, "domain=b")
	assert.Contains(t, result.LogOutput, "dependency=ghost")
}

func TestRun_DomainsAreCaseInsensitive(t *testing.T) {
	rec := testutil.NewRecorder()
	files := map[string]string{
		"plugins.hcl": `
			plugin "A" { handler = "probe.a" }
			plugin "b" {
			  depends_on = ["a"]
			  handler    = "probe.b"
			}
		`,
	}

	result := app.RunAppTest(t, files, rec, probes)
	require.NoError(t, result.Err)
	assert.Len(t, result.Report.Succeeded(), 2)
	assert.Empty(t, result.App.Removed())
}

func TestRun_StructuralErrors(t *testing.T) {
	cases := []struct {
		name    string
		files   map[string]string
		wantIs  error
		wantMsg string
	}{
		{
			name: "duplicate domain",
			files: map[string]string{
				"one.hcl": `plugin "a" { handler = "probe.a" }`,
				"two.hcl": `plugin "A" { handler = "probe.b" }`,
			},
			wantIs:  plugin.ErrDuplicateDomain,
			wantMsg: "failed to register plugins",
		},
		{
			name: "circular dependency",
			files: map[string]string{
				"plugins.hcl": `
					plugin "a" {
					  depends_on = ["c"]
					  handler    = "probe.a"
					}
					plugin "b" {
					  depends_on = ["a"]
					  handler    = "probe.b"
					}
					plugin "c" {
					  depends_on = ["b"]
					  handler    = "probe.c"
					}
				`,
			},
			wantIs:  plugin.ErrCircularDependency,
			wantMsg: "circular dependency detected for plugin with domain name 'a'",
		},
		{
			name: "unknown handler",
			files: map[string]string{
				"plugins.hcl": `plugin "a" { handler = "probe.zzz" }`,
			},
			wantMsg: "failed to discover plugins",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			result := app.RunAppTest(t, tc.files, rec, probes)

			require.Error(t, result.Err)
			assert.Nil(t, result.Report)
			if tc.wantIs != nil {
				assert.ErrorIs(t, result.Err, tc.wantIs)
			}
			assert.ErrorContains(t, result.Err, tc.wantMsg)
			assert.Zero(t, rec.Count(), "no plugin may be initialized")
		})
	}
}

func TestRun_FailuresAreReportedNotReturned(t *testing.T) {
	rec := testutil.NewRecorder()
	boom := errors.New("boom")
	rec.Fail["a"] = boom
	files := map[string]string{
		"plugins.hcl": `
			plugin "a" { handler = "probe.a" }
			plugin "b" {
			  depends_on = ["a"]
			  handler    = "probe.b"
			}
		`,
	}

	result := app.RunAppTest(t, files, rec, probes)
	require.NoError(t, result.Err)

	failed := result.Report.Failed()
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, boom)
	b, _ := result.Report.Outcome("b")
	assert.Equal(t, plugin.Done, b.State)
	assert.Contains(t, result.LogOutput, "Plugin did not initialize.")
}

func TestRun_AttachesMetadata(t *testing.T) {
	var (
		mu   sync.Mutex
		seen string
	)
	notifier := plugin.NotifyFunc(func(_ context.Context, handle any, ev plugin.Event) error {
		self, ok := ev.Plugins.Lookup(handle.(*testutil.Probe).Domain)
		if ok && self.Metadata != nil {
			mu.Lock()
			seen = self.Metadata.Description
			mu.Unlock()
		}
		return nil
	})
	files := map[string]string{
		"a/plugin.hcl": `plugin "a" { handler = "probe.a" }`,
		"a/meta.json":  `{"domain": "A", "description": "hello from a"}`,
		"x/meta.json":  `{"domain": "unknown"}`,
	}

	result := app.RunAppTest(t, files, notifier, probes)
	require.NoError(t, result.Err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "hello from a", seen)
}

func TestRun_AttachesResources(t *testing.T) {
	var (
		mu   sync.Mutex
		read = map[string]string{}
	)
	// b reads its own resource and one of a's through the plugin directory.
	notifier := plugin.NotifyFunc(func(_ context.Context, handle any, ev plugin.Event) error {
		if handle.(*testutil.Probe).Domain != "b" {
			return nil
		}
		for _, want := range []resource.Location{
			{Domain: "b", Path: "logo.txt"},
			{Domain: "a", Path: "greeting.txt"},
		} {
			rec, ok := ev.Plugins.Lookup(want.Domain)
			if !ok || rec.Resources == nil {
				return errors.New("no resources for " + want.Domain)
			}
			data, err := fs.ReadFile(rec.Resources, want.Path)
			if err != nil {
				return err
			}
			mu.Lock()
			read[want.String()] = string(data)
			mu.Unlock()
		}
		return nil
	})
	files := map[string]string{
		"a/plugin.hcl":   `plugin "a" { handler = "probe.a" }`,
		"a/greeting.txt": "hello",
		"b/plugin.hcl": `
			plugin "b" {
			  depends_on = ["a"]
			  handler    = "probe.b"
			  resources  = "assets"
			}
		`,
		"b/assets/logo.txt": "logo",
	}

	result := app.RunAppTest(t, files, notifier, probes)
	require.NoError(t, result.Err)
	assert.Empty(t, result.Report.Failed())

	mu.Lock()
	assert.Equal(t, map[string]string{"b:logo.txt": "logo", "a:greeting.txt": "hello"}, read)
	mu.Unlock()

	master := result.App.Resources()
	assert.Equal(t, []string{"a", "b"}, master.Domains())
	mgr, ok := master.Get("b")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(result.Root, "b", "assets"), mgr.Root)

	locs, err := master.Locations(func(p string) bool { return filepath.Ext(p) == ".txt" })
	require.NoError(t, err)
	assert.Equal(t, []resource.Location{
		{Domain: "a", Path: "greeting.txt"},
		{Domain: "b", Path: "logo.txt"},
	}, locs)
}

func TestRun_StaticSourceWithDispatcher(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	hook := func(domain string) plugin.InitializerFunc {
		return func(context.Context, plugin.Event) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, domain)
			return nil
		}
	}
	source := discovery.StaticSource{
		{Domain: "net", Dependencies: []string{"core"}, Handle: hook("net")},
		{Domain: "core", Handle: hook("core")},
		{Domain: "mute", Handle: struct{}{}},
	}

	cfg, err := app.NewConfig(app.Config{PluginsPath: "static", MetadataPath: t.TempDir()})
	require.NoError(t, err)
	var logs bytes.Buffer
	report, err := app.NewApp(&logs, cfg, source, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"core", "net"}, order)
	mute, _ := report.Outcome("mute")
	assert.Equal(t, plugin.Failed, mute.State)
	assert.ErrorIs(t, mute.Err, plugin.ErrNotInitializable)
}

func TestRun_NoSource(t *testing.T) {
	cfg, err := app.NewConfig(app.Config{PluginsPath: "x"})
	require.NoError(t, err)
	_, err = app.NewApp(&bytes.Buffer{}, cfg, nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, app.ErrNoSource)
}
