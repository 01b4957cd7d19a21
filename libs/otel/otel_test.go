package otelx

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	tp, ts := TraceContextStrings(ctx)
	if tp == "" {
		t.Fatalf("expected a traceparent")
	}
	got := trace.SpanContextFromContext(ContextWithTraceContext(context.Background(), tp, ts))
	if got.TraceID() != traceID || got.SpanID() != spanID {
		t.Fatalf("round trip gave %s/%s", got.TraceID(), got.SpanID())
	}
	if ContextWithTraceContext(context.Background(), "", "") != context.Background() {
		t.Fatalf("empty trace context should return ctx unchanged")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("OTEL_SAMPLING_RATIO", "2")
	t.Setenv("DEPLOY_ENV", "staging")
	cfg := ConfigFromEnv("availability-service")
	if cfg.Enabled || cfg.SampleRatio != 1 || cfg.ServiceName != "availability-service" {
		t.Fatalf("ConfigFromEnv() = %+v", cfg)
	}
	if cfg.Environment != "staging" || cfg.Version != "dev" || !cfg.Insecure {
		t.Fatalf("ConfigFromEnv() = %+v", cfg)
	}
}

func TestConfigAttributes(t *testing.T) {
	attrs := Config{ServiceName: "availability-service", Environment: "prod"}.attributes()
	want := map[string]string{
		string(semconv.ServiceNameKey):           "availability-service",
		string(semconv.ServiceNamespaceKey):      "meetsync",
		string(semconv.DeploymentEnvironmentKey): "prod",
	}
	if len(attrs) != len(want) {
		t.Fatalf("attributes = %v", attrs)
	}
	for _, kv := range attrs {
		if want[string(kv.Key)] != kv.Value.AsString() {
			t.Fatalf("attribute %s = %q", kv.Key, kv.Value.AsString())
		}
	}
}

func TestFailSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	if err := FailSpan(span, nil, "noop"); err != nil {
		t.Fatalf("FailSpan(nil) = %v", err)
	}
	boom := errors.New("boom")
	if err := FailSpan(span, boom, "store"); !errors.Is(err, boom) {
		t.Fatalf("FailSpan() = %v", err)
	}
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d", len(ended))
	}
	if st := ended[0].Status(); st.Code != codes.Error || st.Description != "store" {
		t.Fatalf("status = %+v", st)
	}
	if len(ended[0].Events()) != 1 {
		t.Fatalf("events = %v", ended[0].Events())
	}
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}
}
