package telemetry_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ahmednasr/recruiter-bot/internal/telemetry"
	"github.com/ahmednasr/recruiter-bot/internal/telemetry/telemetrytest"
)

func TestCounters(t *testing.T) {
	c := telemetrytest.Start(t)
	ctx := context.Background()

	telemetry.RecordToolCall(ctx, "get_profile", "ok")
	telemetry.RecordToolCall(ctx, "get_profile", "ok")
	telemetry.RecordToolCall(ctx, "get_file_tree", "failed")
	telemetry.RecordRateLimited(ctx)
	telemetry.RecordTurn(ctx, "finalized")

	tests := []struct {
		name   string
		metric string
		attrs  []attribute.KeyValue
		want   int64
	}{
		{"all tool calls", telemetry.MetricToolCalls, nil, 3},
		{"profile ok", telemetry.MetricToolCalls, []attribute.KeyValue{
			attribute.String("tool", "get_profile"), attribute.String("outcome", "ok"),
		}, 2},
		{"failures", telemetry.MetricToolCalls, []attribute.KeyValue{attribute.String("outcome", "failed")}, 1},
		{"rate limited", telemetry.MetricRateLimited, nil, 1},
		{"turns", telemetry.MetricTurns, []attribute.KeyValue{attribute.String("state", "finalized")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Count(tt.metric, tt.attrs...); got != tt.want {
				t.Errorf("Count(%s) = %d, want %d", tt.metric, got, tt.want)
			}
		})
	}
}

func TestSetup(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() { telemetry.Install(prevTP, prevMP) })
	ctx := context.Background()

	if _, err := telemetry.Setup(ctx, telemetry.Options{Exporter: "zipkin"}); err == nil {
		t.Error("unknown exporter should fail")
	}
	shutdown, err := telemetry.Setup(ctx, telemetry.Options{Exporter: telemetry.ExporterNone})
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(ctx); err != nil {
		t.Errorf("no-op shutdown: %v", err)
	}

	var out bytes.Buffer
	shutdown, err = telemetry.Setup(ctx, telemetry.Options{
		Exporter:       telemetry.ExporterStdout,
		MetricInterval: time.Hour,
		Writer:         &out,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, span := telemetry.Tracer().Start(ctx, "setup.check")
	span.End()
	telemetry.RecordToolCall(ctx, "get_profile", "ok")
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	for _, want := range []string{"setup.check", telemetry.MetricToolCalls} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("export lacks %q:\n%s", want, out.String())
		}
	}
}
