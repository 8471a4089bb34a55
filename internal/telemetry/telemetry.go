package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const serviceVersion = "1.0.0"

func rotatingFile(dir, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10, // 10 MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// InitLogger initializes structured logging with rotation.
// Logs go only to <dir>/<name>.log so the terminal stays free for the conversation.
func InitLogger(dir, name string, debug bool) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	logFile := rotatingFile(dir, name+".log")

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With("service", name)
	slog.SetDefault(logger)

	closeFn := func() {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}
	return logger, closeFn, nil
}

// Options configures InitTelemetry
type Options struct {
	Dir            string // directory for the trace and metric files
	ServiceName    string
	ServiceVersion string        // defaults to the build version
	MetricInterval time.Duration // how often metrics are exported, 10s if zero
}

func (o Options) traceFile() string   { return o.ServiceName + "_traces.log" }
func (o Options) metricsFile() string { return o.ServiceName + "_metrics.log" }

// InitTelemetry initializes OpenTelemetry tracing and metrics for opts.ServiceName.
// Both are exported as JSON into rotated files under opts.Dir.
func InitTelemetry(ctx context.Context, opts Options) (trace.Tracer, metric.Meter, func(), error) {
	if opts.ServiceName == "" {
		return nil, nil, nil, fmt.Errorf("service name cannot be empty")
	}
	if opts.ServiceVersion == "" {
		opts.ServiceVersion = serviceVersion
	}
	if opts.MetricInterval <= 0 {
		opts.MetricInterval = 10 * time.Second
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceFile := rotatingFile(opts.Dir, opts.traceFile())
	tp, err := newTracerProvider(res, traceFile)
	if err != nil {
		traceFile.Close()
		return nil, nil, nil, err
	}

	metricsFile := rotatingFile(opts.Dir, opts.metricsFile())
	mp, err := newMeterProvider(res, metricsFile, opts.MetricInterval)
	if err != nil {
		traceFile.Close()
		metricsFile.Close()
		return nil, nil, nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", "error", err)
		}
		if err := mp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown meter provider", "error", err)
		}
		for _, f := range []*lumberjack.Logger{traceFile, metricsFile} {
			if err := f.Close(); err != nil {
				slog.Error("failed to close telemetry file", "file", f.Filename, "error", err)
			}
		}
	}

	return tp.Tracer(opts.ServiceName), mp.Meter(opts.ServiceName), shutdown, nil
}

func newTracerProvider(res *resource.Resource, w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(res *resource.Resource, w io.Writer, interval time.Duration) (*sdkmetric.MeterProvider, error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	), nil
}
