package telemetry

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporters selectable with OTEL_EXPORTER.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Options selects where spans and metrics go.
type Options struct {
	Exporter       string
	ServiceName    string
	MetricInterval time.Duration
	// Writer receives stdout exports; os.Stderr when nil.
	Writer io.Writer
}

// Setup installs SDK providers for the chosen exporter and returns a
// shutdown that flushes them. With ExporterNone (or empty) nothing is
// installed and shutdown is a no-op.
func Setup(ctx context.Context, opts Options) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	switch opts.Exporter {
	case "", ExporterNone:
		return noop, nil
	case ExporterStdout:
	default:
		return noop, errors.Errorf("unknown telemetry exporter %q", opts.Exporter)
	}

	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}
	if opts.MetricInterval <= 0 {
		opts.MetricInterval = time.Minute
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "recruiter-bot"
	}
	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))

	spans, err := stdouttrace.New(stdouttrace.WithWriter(opts.Writer))
	if err != nil {
		return noop, errors.Wrap(err, "create span exporter")
	}
	metrics, err := stdoutmetric.New(stdoutmetric.WithWriter(opts.Writer))
	if err != nil {
		return noop, errors.Wrap(err, "create metric exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spans),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metrics, sdkmetric.WithInterval(opts.MetricInterval))),
		sdkmetric.WithResource(res),
	)
	Install(tp, mp)
	log.Printf("[Telemetry] exporting spans and metrics to %s every %s", opts.Exporter, opts.MetricInterval)

	return func(ctx context.Context) error {
		terr := tp.Shutdown(ctx)
		merr := mp.Shutdown(ctx)
		if terr != nil {
			return errors.Wrap(terr, "shutdown tracer provider")
		}
		if merr != nil {
			return errors.Wrap(merr, "shutdown meter provider")
		}
		return nil
	}, nil
}
