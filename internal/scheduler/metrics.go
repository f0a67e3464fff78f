package scheduler

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter(instrumentationName)

var (
	initialized metric.Int64Counter
	failures    metric.Int64Counter
	timedOut    metric.Int64Counter
	initLatency metric.Float64Histogram
	runLatency  metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the scheduler instruments. Safe to call multiple
// times; instruments that failed to build stay nil and are skipped.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		initialized, err = meter.Int64Counter(
			"plugstrap_plugins_initialized_total",
			metric.WithDescription("Number of plugins that initialized successfully"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		failures, err = meter.Int64Counter(
			"plugstrap_plugins_failed_total",
			metric.WithDescription("Number of plugins that failed or timed out during initialization"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		timedOut, err = meter.Int64Counter(
			"plugstrap_plugins_timed_out_total",
			metric.WithDescription("Number of plugins whose dependencies did not finish in time"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		initLatency, err = meter.Float64Histogram(
			"plugstrap_plugin_init_duration_seconds",
			metric.WithDescription("Time spent in a plugin's initialization handler"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runLatency, err = meter.Float64Histogram(
			"plugstrap_run_duration_seconds",
			metric.WithDescription("Total time to initialize all plugins"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}
