package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/plugstrap/internal/app"
	"github.com/vk/plugstrap/internal/scheduler"
	"github.com/vk/plugstrap/internal/validate"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("plugstrap", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
plugstrap - discovers plugins and initializes them in dependency order.

Usage:
  plugstrap [options] [PLUGINS_PATH]

Arguments:
  PLUGINS_PATH
    Path to a single .hcl manifest or a directory searched recursively for them.

Options:
`)
		flagSet.PrintDefaults()
	}

	pluginsFlag := flagSet.String("plugins", "", "Path to the plugin manifest file or directory.")
	pFlag := flagSet.String("p", "", "Path to the plugin manifest file or directory (shorthand).")
	metadataFlag := flagSet.String("metadata", "", "Directory searched for meta.json/meta.hcl files. Defaults to the plugins path.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	timeoutFlag := flagSet.Duration("timeout", scheduler.DefaultTimeout, "How long each plugin waits for its dependencies.")
	depthFlag := flagSet.Bool("depth-timeout", false, "Scale the timeout by each plugin's depth in the dependency graph.")
	pruneFlag := flagSet.String("prune", "cascade", "Missing-dependency pruning. Options: 'cascade' or 'single'.")
	traceFlag := flagSet.String("trace", app.TraceNone, "Telemetry exporter. Options: 'none' or 'stdout'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *pluginsFlag != "" {
		path = *pluginsFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		slog.Warn("No plugin location provided, nothing to do.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	if *timeoutFlag <= 0 {
		return nil, false, usageError("invalid timeout: must be positive, got %s", *timeoutFlag)
	}

	policy, err := validate.ParsePrunePolicy(*pruneFlag)
	if err != nil {
		return nil, false, usageError("invalid prune: %v", err)
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		PluginsPath:       path,
		MetadataPath:      *metadataFlag,
		LogFormat:         logFormat,
		LogLevel:          logLevel,
		InitTimeout:       *timeoutFlag,
		DepthAwareTimeout: *depthFlag,
		PrunePolicy:       policy,
		TraceExporter:     strings.ToLower(*traceFlag),
	})
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
