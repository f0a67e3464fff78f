// Package sample provides the demonstration plugins shipped with plugstrap:
// a small a <- b <- c chain and a game-flavoured trio where third_party
// waits on both game and game_engine.
package sample

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/vk/plugstrap/internal/ctxlog"
	"github.com/vk/plugstrap/internal/handlers"
	"github.com/vk/plugstrap/internal/plugin"
)

// Module implements the handlers.Module interface for this package.
type Module struct {
	// Delay overrides the simulated work of every plugin when non-zero.
	Delay time.Duration
}

// Plugin is the handle behind every sample plugin.
type Plugin struct {
	Domain string
	Label  string
	// Work is how long OnInit pretends to be busy.
	Work time.Duration
	// Describe makes OnInit log the plugin's own metadata description.
	Describe bool
	// Greeting names a resource OnInit reads and logs, if the plugin has it.
	Greeting string
}

// OnInit implements plugin.Initializer.
func (p *Plugin) OnInit(ctx context.Context, ev plugin.Event) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Initializing " + p.Label + "...")

	if p.Describe && ev.Plugins != nil {
		description := "(none)"
		if self, ok := ev.Plugins.Lookup(p.Domain); ok && self.Metadata != nil {
			description = self.Metadata.Description
		}
		logger.Info(p.Label+"'s description.", "description", description)
	}

	if p.Greeting != "" && ev.Plugins != nil {
		if err := p.greet(ctx, ev.Plugins); err != nil {
			return err
		}
	}

	if p.Work <= 0 {
		return nil
	}
	select {
	case <-time.After(p.Work):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Plugin) greet(ctx context.Context, plugins plugin.Directory) error {
	logger := ctxlog.FromContext(ctx)
	self, ok := plugins.Lookup(p.Domain)
	if !ok || self.Resources == nil {
		logger.Debug(p.Label + " has no resources.")
		return nil
	}
	data, err := fs.ReadFile(self.Resources, p.Greeting)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug(p.Label+" has no greeting.", "resource", p.Greeting)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading greeting: %w", err)
	}
	logger.Info(p.Label+"'s greeting.", "greeting", strings.TrimSpace(string(data)))
	return nil
}

// Register registers the sample handle factories.
func (m *Module) Register(h *handlers.Handlers) {
	samples := []Plugin{
		{Domain: "a", Label: "plugin A", Work: 200 * time.Millisecond, Describe: true, Greeting: "greeting.txt"},
		{Domain: "b", Label: "plugin B", Work: 200 * time.Millisecond},
		{Domain: "c", Label: "plugin C"},
		{Domain: "game_engine", Label: "Game Engine plugin", Work: 2 * time.Second},
		{Domain: "game", Label: "Game plugin"},
		{Domain: "third_party", Label: "Third Party plugin", Work: 200 * time.Millisecond},
	}
	for _, s := range samples {
		if m.Delay != 0 && s.Work != 0 {
			s.Work = m.Delay
		}
		h.Register("sample."+s.Domain, func() any {
			p := s
			return &p
		})
	}
}
