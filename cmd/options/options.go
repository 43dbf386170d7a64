package options

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/operator-framework/backtrack/pkg/backtrack"
	"github.com/operator-framework/backtrack/pkg/backtrack/telemetry"
)

const tracerName = "github.com/operator-framework/backtrack/cmd"

// Options holds the search and logging flags shared by every
// sub-command.
type Options struct {
	MaxDepth        int
	FailAtMaxDepth  bool
	MaxAlternatives int
	Label           string

	Trace   bool
	Spans   bool
	Metrics bool

	LogLevel  string
	LogFormat string
	LogFile   string

	level    slog.LevelVar
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	provider *sdktrace.TracerProvider
	closers  []io.Closer
}

// AddFlags registers the persistent flags on cmd.
func (o *Options) AddFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.IntVar(&o.MaxDepth, "max-depth", backtrack.DefaultMaxDepth, "maximum search depth; sub-commands pick a suitable depth when unset")
	flags.BoolVar(&o.FailAtMaxDepth, "fail-at-max-depth", true, "fail the search when the maximum depth is reached")
	flags.IntVar(&o.MaxAlternatives, "max-alternatives", 0, "maximum alternatives tried per goal, 0 for no limit")
	flags.StringVar(&o.Label, "label", "", "label attached to trace output (default a random UUID)")
	flags.BoolVar(&o.Trace, "trace", false, "print every search step to stderr")
	flags.BoolVar(&o.Spans, "spans", false, "print the OpenTelemetry spans of each search to stderr")
	flags.BoolVar(&o.Metrics, "metrics", false, "print search metrics to stderr on exit")
	flags.StringVar(&o.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&o.LogFormat, "log-format", "text", "log format (text, json)")
	flags.StringVar(&o.LogFile, "log-file", "", "also write JSON logs to this file")
}

// Setup builds the logger and telemetry. It is meant to run as the
// root command's PersistentPreRunE.
func (o *Options) Setup(cmd *cobra.Command) error {
	if err := o.level.UnmarshalText([]byte(o.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.LogLevel, err)
	}
	if o.MaxDepth < 0 {
		return fmt.Errorf("max depth must not be negative, got %d", o.MaxDepth)
	}
	if o.MaxAlternatives < 0 {
		return fmt.Errorf("max alternatives must not be negative, got %d", o.MaxAlternatives)
	}
	if o.Label == "" {
		o.Label = uuid.NewString()
	}

	var handlers []slog.Handler
	handlerOptions := &slog.HandlerOptions{Level: &o.level}
	switch strings.ToLower(o.LogFormat) {
	case "text":
		handlers = append(handlers, slog.NewTextHandler(cmd.ErrOrStderr(), handlerOptions))
	case "json":
		handlers = append(handlers, slog.NewJSONHandler(cmd.ErrOrStderr(), handlerOptions))
	default:
		return fmt.Errorf("invalid log format %q", o.LogFormat)
	}
	if o.LogFile != "" {
		f, err := os.OpenFile(o.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("error opening log file (%s): %w", o.LogFile, err)
		}
		o.closers = append(o.closers, f)
		handlers = append(handlers, slog.NewJSONHandler(f, handlerOptions))
	}
	o.logger = slog.New(slogmulti.Fanout(handlers...)).With(slog.String("label", o.Label))

	if o.Metrics {
		o.registry = prometheus.NewRegistry()
		o.metrics = telemetry.NewMetrics(o.registry)
	}
	if o.Spans {
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(cmd.ErrOrStderr()),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return fmt.Errorf("error creating span exporter: %w", err)
		}
		o.provider = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	}
	return nil
}

// Logger returns the logger built by Setup.
func (o *Options) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// Depth returns the --max-depth flag when it was given and fallback
// otherwise.
func (o *Options) Depth(cmd *cobra.Command, fallback int) int {
	if cmd.Flags().Changed("max-depth") {
		return o.MaxDepth
	}
	return fallback
}

// SearchOptions returns the options for backtrack.Search. maxDepth is
// the depth the search will run with, used to indent trace output.
func (o *Options) SearchOptions(cmd *cobra.Command, maxDepth int) []backtrack.Option {
	tracers := backtrack.Tracers{backtrack.SlogTracer{Logger: o.Logger()}}
	if o.Trace {
		tracers = append(tracers, backtrack.LoggingTracer{Writer: cmd.ErrOrStderr(), MaxDepth: maxDepth})
	}
	if o.metrics != nil {
		tracers = append(tracers, o.metrics)
	}
	opts := []backtrack.Option{
		backtrack.WithLogger(o.Logger()),
	}
	if o.provider != nil {
		tracers = append(tracers, telemetry.SpanEvents{})
		opts = append(opts, backtrack.WithOTelTracer(o.provider.Tracer(tracerName)))
	}
	return append(opts, backtrack.WithTracer(tracers))
}

// Finish prints the collected metrics and releases what Setup opened.
// It is meant to run once a command is done, whether or not it failed.
func (o *Options) Finish(cmd *cobra.Command) error {
	defer func() {
		for _, c := range o.closers {
			_ = c.Close()
		}
		o.closers = nil
	}()
	if o.provider != nil {
		provider := o.provider
		o.provider = nil
		if err := provider.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("error flushing spans: %w", err)
		}
	}
	if o.registry == nil {
		return nil
	}
	registry := o.registry
	o.registry = nil
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("error gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(cmd.ErrOrStderr(), mf); err != nil {
			return fmt.Errorf("error writing metrics: %w", err)
		}
	}
	return nil
}
