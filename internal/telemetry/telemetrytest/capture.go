// Package telemetrytest records spans and metrics in memory for tests.
package telemetrytest

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ahmednasr/recruiter-bot/internal/telemetry"
)

// Capture holds the in-memory reader and span recorder installed by Start.
type Capture struct {
	t      testing.TB
	reader *sdkmetric.ManualReader
	spans  *tracetest.SpanRecorder
}

// Start installs recording providers for the rest of the test and restores
// the previous ones on cleanup.
func Start(t testing.TB) *Capture {
	t.Helper()
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()

	c := &Capture{t: t, reader: sdkmetric.NewManualReader(), spans: tracetest.NewSpanRecorder()}
	telemetry.Install(
		sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(c.spans)),
		sdkmetric.NewMeterProvider(sdkmetric.WithReader(c.reader)),
	)
	t.Cleanup(func() { telemetry.Install(prevTP, prevMP) })
	return c
}

// Count sums the data points of the int64 counter name whose attributes
// include every one of attrs.
func (c *Capture) Count(name string, attrs ...attribute.KeyValue) int64 {
	c.t.Helper()
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(context.Background(), &rm); err != nil {
		c.t.Fatalf("collect metrics: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				c.t.Fatalf("%s is %T, not an int64 sum", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if hasAll(dp.Attributes, attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

// SpanNames lists the names of ended spans in end order.
func (c *Capture) SpanNames() []string {
	var names []string
	for _, s := range c.spans.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func hasAll(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, kv := range attrs {
		v, ok := set.Value(kv.Key)
		if !ok || v.Emit() != kv.Value.Emit() {
			return false
		}
	}
	return true
}
