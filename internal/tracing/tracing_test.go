package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("Init should not error when disabled: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Shutdown function should not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown should not error: %v", err)
	}
}

func TestInit_Enabled(t *testing.T) {
	defer func() { tracer = nil }()

	// The exporter connects lazily, so an unreachable endpoint is fine here.
	shutdown, err := Init(context.Background(), Options{
		ServiceName: "test-service",
		Enabled:     true,
		Endpoint:    "localhost:14318",
		SampleRate:  1,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if tracer == nil {
		t.Fatal("expected tracer to be installed")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Logf("Shutdown error (expected in test): %v", err)
	}
}

func TestGetVersion(t *testing.T) {
	t.Setenv("SERVICE_VERSION", "")
	if v := getVersion(); v != "dev" {
		t.Errorf("Expected default version 'dev', got %s", v)
	}
	t.Setenv("SERVICE_VERSION", "1.2.3")
	if v := getVersion(); v != "1.2.3" {
		t.Errorf("Expected version '1.2.3', got %s", v)
	}
}

func TestStartSpanWithoutInit(t *testing.T) {
	tracer = nil
	ctx, span := StartSpan(context.Background(), "test-span")
	defer span.End()
	if ctx == nil {
		t.Fatal("StartSpan should return a context")
	}
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status().Code)
	}
	if spans[0].Status().Description != "boom" {
		t.Errorf("expected description boom, got %q", spans[0].Status().Description)
	}
}
