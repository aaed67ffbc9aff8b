// Package telemetry holds the OpenTelemetry handles shared by the core.
// Until Setup or Install runs, the global providers are no-ops.
package telemetry

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ahmednasr/recruiter-bot"

// Metric names.
const (
	MetricToolCalls   = "recruiter.tool.calls"
	MetricRateLimited = "recruiter.github.rate_limited"
	MetricTurns       = "recruiter.turns"
)

type instruments struct {
	toolCalls   metric.Int64Counter
	rateLimited metric.Int64Counter
	turns       metric.Int64Counter
}

var (
	mu    sync.RWMutex
	bound *instruments
)

// Install makes tp and mp the global providers and rebinds the counters.
func Install(tp trace.TracerProvider, mp metric.MeterProvider) {
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	in := newInstruments(mp.Meter(instrumentationName))
	mu.Lock()
	bound = in
	mu.Unlock()
}

func newInstruments(meter metric.Meter) *instruments {
	var (
		in  instruments
		err error
	)
	if in.toolCalls, err = meter.Int64Counter(MetricToolCalls,
		metric.WithDescription("Tool calls dispatched for the reasoning engine")); err != nil {
		log.Printf("[Telemetry] tool counter: %v", err)
	}
	if in.rateLimited, err = meter.Int64Counter(MetricRateLimited,
		metric.WithDescription("GitHub requests rejected by the shared quota")); err != nil {
		log.Printf("[Telemetry] rate-limit counter: %v", err)
	}
	if in.turns, err = meter.Int64Counter(MetricTurns,
		metric.WithDescription("Conversation turns by final state")); err != nil {
		log.Printf("[Telemetry] turn counter: %v", err)
	}
	return &in
}

func current() *instruments {
	mu.RLock()
	in := bound
	mu.RUnlock()
	if in != nil {
		return in
	}

	mu.Lock()
	defer mu.Unlock()
	if bound == nil {
		bound = newInstruments(otel.Meter(instrumentationName))
	}
	return bound
}

// Tracer returns the tracer used for turn, engine and tool spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// RecordToolCall counts one tool dispatch with its outcome.
func RecordToolCall(ctx context.Context, tool, outcome string) {
	if c := current().toolCalls; c != nil {
		c.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("outcome", outcome),
		))
	}
}

// RecordRateLimited counts one request refused because of quota.
func RecordRateLimited(ctx context.Context) {
	if c := current().rateLimited; c != nil {
		c.Add(ctx, 1)
	}
}

// RecordTurn counts one finished turn by its final state.
func RecordTurn(ctx context.Context, state string) {
	if c := current().turns; c != nil {
		c.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
	}
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
