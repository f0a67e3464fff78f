package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/vk/plugstrap/internal/app"
	"github.com/vk/plugstrap/internal/cli"
	"github.com/vk/plugstrap/internal/discovery"
	"github.com/vk/plugstrap/internal/handlers"
	"github.com/vk/plugstrap/internal/telemetry"
)

// main is the entrypoint for the plugstrap application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Plugins that fail to initialize do not make it fail; only
// structural problems do.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Handler registration panics on programmer errors; report them cleanly.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := telemetry.Init(ctx, appConfig.TraceExporter, outW)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if serr := shutdown(context.Background()); serr != nil && err == nil {
			err = fmt.Errorf("failed to flush telemetry: %w", serr)
		}
	}()

	source := &discovery.HCLSource{
		Root:     appConfig.PluginsPath,
		Handlers: handlers.New(app.CoreModules...),
	}
	plugstrapApp := app.NewApp(outW, appConfig, source, nil)

	report, err := plugstrapApp.Run(ctx)
	if err != nil {
		return err
	}
	plugstrapApp.Logger().Info("Plugin bring-up complete.",
		"initialized", len(report.Succeeded()), "failed", len(report.Failed()), "duration", report.Duration)
	return nil
}
